package models

import "time"

// MaxTitleLength bounds titles and names, matching the original column width.
const MaxTitleLength = 256

// Category groups posts. Hidden categories (IsPublished=false) take their posts out of public listings.
type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:256;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Slug        string    `gorm:"size:64;not null;uniqueIndex" json:"slug"`
	IsPublished bool      `gorm:"not null;index" json:"is_published"`
	CreatedAt   time.Time `json:"created_at"`
	Posts       []Post    `gorm:"foreignKey:CategoryID" json:"-"`
}
