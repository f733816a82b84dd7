package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStorage manages downloaded images inside a single destination directory.
// Payloads are first written under their bare candidate name and become
// visible under their final name only through Promote.
type FileStorage struct {
	dir string
}

// NewFileStorage creates a new FileStorage instance with the given directory.
func NewFileStorage(dir string) *FileStorage {
	return &FileStorage{dir: dir}
}

// Dir returns the destination directory.
func (s *FileStorage) Dir() string {
	return s.dir
}

// EnsureDir creates the destination directory if it does not exist.
func (s *FileStorage) EnsureDir() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", s.dir, err)
	}
	return nil
}

// TempPath returns the path a payload for name is staged at.
func (s *FileStorage) TempPath(name string) string {
	return filepath.Join(s.dir, name)
}

// FinalPath returns the path name is exposed at once promoted with ext.
func (s *FileStorage) FinalPath(name, ext string) string {
	return filepath.Join(s.dir, name+ext)
}

// WriteTemp stages data under name. Returns the path written.
func (s *FileStorage) WriteTemp(name string, data []byte) (string, error) {
	path := s.TempPath(name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write temp file: %w", err)
	}
	return path, nil
}

// Promote atomically renames the staged payload for name to name+ext.
// An existing file at the final path is replaced.
func (s *FileStorage) Promote(name, ext string) (string, error) {
	final := s.FinalPath(name, ext)
	if err := os.Rename(s.TempPath(name), final); err != nil {
		return "", fmt.Errorf("promote %s: %w", name, err)
	}
	return final, nil
}

// Discard removes the staged payload for name. A missing file is not an error.
func (s *FileStorage) Discard(name string) error {
	if err := os.Remove(s.TempPath(name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("discard %s: %w", name, err)
	}
	return nil
}

// FileExists checks whether a file exists in the storage directory.
func (s *FileStorage) FileExists(filename string) bool {
	_, err := os.Stat(filepath.Join(s.dir, filename))
	return err == nil
}
