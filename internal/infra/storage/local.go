// Package storage persists uploaded images on local disk or in MinIO.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	domain "github.com/bryanwahyu/vetscan/internal/domain/analysis"
)

const keyPrefix = "analysis"

// LocalStore writes images under a base directory. Paths it returns are
// relative and always use forward slashes.
type LocalStore struct {
	baseDir    string
	publicBase string
}

var _ domain.ImageStore = (*LocalStore)(nil)

func NewLocal(baseDir, publicBaseURL string) (*LocalStore, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, errors.New("storage: local dir is required")
	}
	if err := os.MkdirAll(filepath.Join(baseDir, keyPrefix), 0o755); err != nil {
		return nil, fmt.Errorf("storage: create %s: %w", baseDir, err)
	}
	return &LocalStore{baseDir: baseDir, publicBase: strings.TrimRight(publicBaseURL, "/")}, nil
}

// Dir is the root served under /uploads.
func (s *LocalStore) Dir() string { return s.baseDir }

func (s *LocalStore) Save(_ context.Context, data []byte, contentType string) (string, error) {
	rel := newObjectKey(contentType)
	full, err := s.resolve(rel)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write %s: %w", rel, err)
	}
	return rel, nil
}

// Delete ignores files that are already gone.
func (s *LocalStore) Delete(_ context.Context, relPath string) error {
	if relPath == "" {
		return nil
	}
	full, err := s.resolve(relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: remove %s: %w", relPath, err)
	}
	return nil
}

func (s *LocalStore) URL(relPath string) string {
	return joinURL(s.publicBase, relPath)
}

// resolve keeps every path inside baseDir.
func (s *LocalStore) resolve(relPath string) (string, error) {
	clean := path.Clean("/" + filepath.ToSlash(relPath))
	if clean == "/" {
		return "", fmt.Errorf("storage: invalid path %q", relPath)
	}
	return filepath.Join(s.baseDir, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

func newObjectKey(contentType string) string {
	return keyPrefix + "/" + uuid.NewString() + domain.ImageExt(contentType)
}

func joinURL(base, relPath string) string {
	if relPath == "" {
		return ""
	}
	if base == "" {
		return "/" + strings.TrimLeft(relPath, "/")
	}
	return base + "/" + strings.TrimLeft(relPath, "/")
}
