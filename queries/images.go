package queries

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/cppla/blogicum/models"
)

// RecordImage registers url as uploaded by ownerID.
func (s *Store) RecordImage(ctx context.Context, ownerID uint, url string) error {
	if ownerID == 0 || url == "" {
		return invalid("image owner and url are required")
	}
	img := models.UploadedImage{URL: url, OwnerID: ownerID}
	if err := s.db.WithContext(ctx).Create(&img).Error; err != nil {
		return fmt.Errorf("record image: %w", err)
	}
	return nil
}

// validateImage accepts the post's current image, no image, or an image uploaded by authorID.
func (s *Store) validateImage(ctx context.Context, authorID uint, current string, image *string) error {
	if image == nil || *image == "" || *image == current {
		return nil
	}
	var n int64
	err := s.db.WithContext(ctx).Model(&models.UploadedImage{}).
		Where("url = ? AND owner_id = ?", *image, authorID).
		Count(&n).Error
	if err != nil {
		return fmt.Errorf("check image: %w", err)
	}
	if n == 0 {
		return invalid("image was not uploaded by the post author")
	}
	return nil
}

// ReleaseImage forgets url once it belongs to ownerID and no post references it any more.
// It reports whether the stored file may be deleted; images of other users are never released.
func (s *Store) ReleaseImage(ctx context.Context, ownerID uint, url string) (bool, error) {
	if url == "" {
		return false, nil
	}
	released := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var img models.UploadedImage
		err := tx.Where("url = ? AND owner_id = ?", url, ownerID).Take(&img).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load image: %w", err)
		}
		var refs int64
		if err := tx.Model(&models.Post{}).Where("image = ?", url).Count(&refs).Error; err != nil {
			return fmt.Errorf("count image references: %w", err)
		}
		if refs > 0 {
			return nil
		}
		if err := tx.Delete(&models.UploadedImage{}, img.ID).Error; err != nil {
			return fmt.Errorf("forget image: %w", err)
		}
		released = true
		return nil
	})
	return released, err
}
