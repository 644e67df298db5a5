package models

import (
	"time"

	"gorm.io/gorm"
)

// Post is a dated blog entry. PubDate may lie in the future for scheduled publication.
type Post struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:256;not null" json:"title"`
	Text        string    `gorm:"type:text;not null" json:"text"`
	PubDate     time.Time `gorm:"not null;index" json:"pub_date"`
	IsPublished bool      `gorm:"not null;index" json:"is_published"`
	CreatedAt   time.Time `json:"created_at"`
	Image       string    `gorm:"size:1024" json:"image"`
	AuthorID    uint      `gorm:"index;not null" json:"author_id"`
	LocationID  *uint     `gorm:"index" json:"location_id"`
	CategoryID  *uint     `gorm:"index" json:"category_id"`
	Author      User      `gorm:"foreignKey:AuthorID" json:"author"`
	Location    *Location `gorm:"foreignKey:LocationID" json:"location"`
	Category    *Category `gorm:"foreignKey:CategoryID" json:"category"`
	Comments    []Comment `gorm:"foreignKey:PostID" json:"-"`

	// CommentCount is filled by listing queries only.
	CommentCount int64 `gorm:"->;-:migration" json:"comment_count"`
}

// BeforeSave stores publication dates in UTC so comparisons against "now" are consistent across drivers.
func (p *Post) BeforeSave(tx *gorm.DB) error {
	p.PubDate = p.PubDate.UTC()
	return nil
}
