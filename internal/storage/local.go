package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MediaStore accepts an opaque blob and returns a stable reference string.
// Callers store the reference on accounts and posts and never interpret
// the bytes behind it.
type MediaStore interface {
	Save(reader io.Reader, suggestedName string) (string, error)
	Open(ref string) (io.ReadCloser, error)
	Remove(ref string) error
}

var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
}

type LocalStore struct {
	basePath string
}

func NewLocalStore(basePath string) (*LocalStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStore{basePath: basePath}, nil
}

// Save writes the blob under a collision-free name and returns the
// reference. The suggested name only contributes its extension, which must
// be on the image allow-list.
func (s *LocalStore) Save(reader io.Reader, suggestedName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(suggestedName))
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("file extension %q is not allowed", ext)
	}

	ref := fmt.Sprintf("%d_%s%s", time.Now().Unix(), uuid.New().String(), ext)

	dst, err := os.Create(filepath.Join(s.basePath, ref))
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, reader); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return ref, nil
}

func (s *LocalStore) Open(ref string) (io.ReadCloser, error) {
	// 引用名由 Save 生成，不允许路径穿越
	if ref != filepath.Base(ref) {
		return nil, fmt.Errorf("invalid media reference %q", ref)
	}
	return os.Open(filepath.Join(s.basePath, ref))
}

func (s *LocalStore) Remove(ref string) error {
	if ref != filepath.Base(ref) {
		return fmt.Errorf("invalid media reference %q", ref)
	}
	return os.Remove(filepath.Join(s.basePath, ref))
}
