// Package storage persists uploaded product images on the local disk.
package storage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"
)

// Local stores files under a single upload directory, served statically by
// the HTTP layer.
type Local struct {
	dir string
}

// NewLocal creates the upload directory if needed.
func NewLocal(dir string) (*Local, error) {
	if dir == "" {
		dir = "uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create %s: %w", dir, err)
	}
	return &Local{dir: dir}, nil
}

// Dir returns the upload directory path.
func (l *Local) Dir() string { return l.dir }

// Save writes an uploaded file under a unique timestamped name to prevent
// overwrites, and returns the stored filename (relative to Dir).
func (l *Local) Save(fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("storage: open upload: %w", err)
	}
	defer src.Close()

	name := fmt.Sprintf("%d-%s", time.Now().UnixNano(), filepath.Base(fh.Filename))
	dst, err := os.Create(filepath.Join(l.dir, name))
	if err != nil {
		return "", fmt.Errorf("storage: create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("storage: write file: %w", err)
	}
	return name, nil
}

// Remove deletes a stored file by its relative name. Missing files are not
// an error.
func (l *Local) Remove(name string) error {
	err := os.Remove(filepath.Join(l.dir, filepath.Base(name)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
