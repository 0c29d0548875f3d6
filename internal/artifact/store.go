// Package artifact persists annotated result images for audit.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/google/uuid"

	"spacedetect/internal/detection"
)

var validID = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// NewID returns a short unique artifact id
func NewID() string {
	return uuid.New().String()[:8]
}

// FileName returns the file name an artifact id is stored under
func FileName(id string) string {
	return fmt.Sprintf("result_%s.jpg", id)
}

// Store writes artifacts into a single directory. Files are never read back.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir. The directory is created on the
// first save.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) Dir() string {
	return s.dir
}

// Save writes data under the id and returns its path. The file appears
// atomically.
func (s *Store) Save(data []byte, id string) (string, error) {
	if !validID.MatchString(id) {
		return "", fmt.Errorf("%w: invalid artifact id %q", detection.ErrPersistence, id)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: failed to create output directory: %w", detection.ErrPersistence, err)
	}

	path := filepath.Join(s.dir, FileName(id))
	tmp, err := os.CreateTemp(s.dir, ".result-*")
	if err != nil {
		return "", fmt.Errorf("%w: failed to create temp file: %w", detection.ErrPersistence, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("%w: failed to write %s: %w", detection.ErrPersistence, path, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("%w: failed to write %s: %w", detection.ErrPersistence, path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", fmt.Errorf("%w: failed to set permissions on %s: %w", detection.ErrPersistence, path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("%w: failed to move %s into place: %w", detection.ErrPersistence, path, err)
	}
	return path, nil
}
