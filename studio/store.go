package studio

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// OutputStore writes generated images as <dir>/<uuid>.png.
type OutputStore struct {
	dir   string
	newID func() string
}

// NewOutputStore returns a store rooted at dir. The directory is created on
// first save.
func NewOutputStore(dir string) *OutputStore {
	return &OutputStore{dir: dir, newID: uuid.NewString}
}

// Dir returns the output directory.
func (s *OutputStore) Dir() string {
	return s.dir
}

// Save writes png under a fresh UUID name and returns the path. Existing
// files are never overwritten.
func (s *OutputStore) Save(png []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: creating %s: %v", ErrPersist, s.dir, err)
	}

	path := filepath.Join(s.dir, s.newID()+".png")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPersist, err)
	}
	if _, err := f.Write(png); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("%w: writing %s: %v", ErrPersist, path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("%w: closing %s: %v", ErrPersist, path, err)
	}
	return path, nil
}
