package models

import "time"

// UploadedImage records which user an image URL was issued to.
// Only that user may attach the image to a post, and the file is removed
// once no post of theirs references it.
type UploadedImage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	URL       string    `gorm:"size:512;not null;uniqueIndex" json:"url"`
	OwnerID   uint      `gorm:"index;not null" json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}
