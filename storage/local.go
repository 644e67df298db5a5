package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Local writes images below a directory that the HTTP server exposes under urlPrefix.
type Local struct {
	dir       string
	urlPrefix string
}

// NewLocal returns a Local store rooted at dir.
func NewLocal(dir, urlPrefix string) *Local {
	return &Local{dir: dir, urlPrefix: "/" + strings.Trim(urlPrefix, "/")}
}

// Dir is the directory images are written to.
func (l *Local) Dir() string { return l.dir }

// URLPrefix is the path images are served under.
func (l *Local) URLPrefix() string { return l.urlPrefix }

func (l *Local) Put(_ context.Context, key, _ string, payload []byte) (string, error) {
	dst := filepath.Join(l.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}
	if err := os.WriteFile(dst, payload, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return l.urlPrefix + "/" + key, nil
}

func (l *Local) Delete(_ context.Context, publicURL string) error {
	key, ok := strings.CutPrefix(publicURL, l.urlPrefix+"/")
	if !ok || key == "" || strings.Contains(key, "..") {
		return nil
	}
	err := os.Remove(filepath.Join(l.dir, filepath.FromSlash(key)))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
