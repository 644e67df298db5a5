package storage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// pngHeader is enough for content sniffing to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestReadImage(t *testing.T) {
	if _, _, err := ReadImage(bytes.NewReader([]byte("plain text")), 1024); !errors.Is(err, ErrNotImage) {
		t.Fatalf("text err = %v", err)
	}
	if _, _, err := ReadImage(bytes.NewReader(pngHeader), 4); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("oversize err = %v", err)
	}
	_, ct, err := ReadImage(bytes.NewReader(pngHeader), 1024)
	if err != nil || ct != "image/png" {
		t.Fatalf("png = %q %v", ct, err)
	}
}

func TestObjectKey(t *testing.T) {
	key := ObjectKey(time.Date(2024, 3, 9, 23, 0, 0, 0, time.UTC), "image/png")
	if !strings.HasPrefix(key, "2024/03/09/") || !strings.HasSuffix(key, ".png") {
		t.Fatalf("key = %q", key)
	}
}

func TestLocalPutAndDelete(t *testing.T) {
	dir := t.TempDir()
	store := NewLocal(dir, "/media/post_images/")
	ctx := context.Background()

	url, err := Upload(ctx, store, bytes.NewReader(pngHeader), 1024)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.HasPrefix(url, "/media/post_images/") {
		t.Fatalf("url = %q", url)
	}
	onDisk := filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(url, "/media/post_images/")))
	if b, err := os.ReadFile(onDisk); err != nil || !bytes.Equal(b, pngHeader) {
		t.Fatalf("stored file: %v", err)
	}

	if err := store.Delete(ctx, url); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(onDisk); !os.IsNotExist(err) {
		t.Fatalf("file still present: %v", err)
	}
	if err := store.Delete(ctx, "https://elsewhere.example/x.png"); err != nil {
		t.Fatalf("foreign url: %v", err)
	}
}

func TestNewS3RequiresCredentials(t *testing.T) {
	if _, err := NewS3(S3Options{Bucket: "b"}); err == nil {
		t.Fatal("incomplete config accepted")
	}
	s, err := NewS3(S3Options{Bucket: "b", Region: "us-east-1", AccessKey: "a", SecretKey: "s", Endpoint: "minio.local:9000"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if got := s.PublicURL("2024/01/01/x.png"); got != "https://minio.local:9000/b/2024/01/01/x.png" {
		t.Fatalf("public url = %q", got)
	}
}
