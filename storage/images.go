// Package storage keeps uploaded post images on local disk or in an S3 compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cppla/blogicum/config"
)

var (
	// ErrTooLarge is returned when an upload exceeds the configured size.
	ErrTooLarge = errors.New("image too large")
	// ErrNotImage is returned for payloads that are not a supported image type.
	ErrNotImage = errors.New("unsupported image type")
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ImageStore persists image payloads and returns the public URL they are served from.
type ImageStore interface {
	Put(ctx context.Context, key, contentType string, payload []byte) (string, error)
	Delete(ctx context.Context, publicURL string) error
}

// New builds the store selected by c.ImageStore.
func New(c config.AppConfig) (ImageStore, error) {
	switch strings.ToLower(c.ImageStore) {
	case "", "local":
		return NewLocal(c.UploadDir, c.UploadURLPrefix), nil
	case "s3":
		return NewS3(S3Options{
			Bucket:        c.S3Bucket,
			Region:        c.S3Region,
			Endpoint:      c.S3Endpoint,
			AccessKey:     c.S3AccessKey,
			SecretKey:     c.S3SecretKey,
			PublicBaseURL: c.S3PublicBaseURL,
			PathStyle:     c.S3PathStyle,
		})
	default:
		return nil, fmt.Errorf("unsupported image store: %s", c.ImageStore)
	}
}

// ReadImage reads at most maxBytes from r and checks the payload is a supported image.
// It returns the payload and its sniffed content type.
func ReadImage(r io.Reader, maxBytes int64) ([]byte, string, error) {
	payload, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(payload)) > maxBytes {
		return nil, "", ErrTooLarge
	}
	contentType := http.DetectContentType(payload)
	if _, ok := imageExtensions[contentType]; !ok {
		return nil, "", ErrNotImage
	}
	return payload, contentType, nil
}

// ObjectKey names a new image as <yyyy>/<mm>/<dd>/<uuid><ext>.
func ObjectKey(now time.Time, contentType string) string {
	return path.Join(now.UTC().Format("2006/01/02"), uuid.NewString()+imageExtensions[contentType])
}

// Upload validates r as an image and stores it under a fresh key.
func Upload(ctx context.Context, store ImageStore, r io.Reader, maxBytes int64) (string, error) {
	payload, contentType, err := ReadImage(r, maxBytes)
	if err != nil {
		return "", err
	}
	return store.Put(ctx, ObjectKey(time.Now(), contentType), contentType, payload)
}
