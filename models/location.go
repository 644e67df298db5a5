package models

import "time"

// DefaultLocationName is used when a location is created without a name.
const DefaultLocationName = "Планета земля"

// Location is where a post was written. Its published flag only affects display, never post visibility.
type Location struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:256;not null" json:"name"`
	IsPublished bool      `gorm:"not null;index" json:"is_published"`
	CreatedAt   time.Time `json:"created_at"`
	Posts       []Post    `gorm:"foreignKey:LocationID" json:"-"`
}
