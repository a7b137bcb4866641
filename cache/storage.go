package cache

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Storage is a flat key/value area, absent keys return an error matching os.ErrNotExist
type Storage interface {
	GetItem(key string) ([]byte, error)
	SetItem(key string, value []byte) error
	RemoveItem(key string) error
}

// FileStorage keeps one file per key inside a directory of an afero filesystem
type FileStorage struct {
	fs  afero.Fs
	dir string
}

// NewFileStorage creates the directory when it does not exist yet
func NewFileStorage(fs afero.Fs, dir string) (*FileStorage, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	return &FileStorage{fs: fs, dir: dir}, nil
}

func (s *FileStorage) GetItem(key string) ([]byte, error) {
	return afero.ReadFile(s.fs, s.path(key))
}

func (s *FileStorage) SetItem(key string, value []byte) error {
	// write then rename so a reader never sees half an entry
	tmp := s.path(key) + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, value, 0o644); err != nil {
		return err
	}

	return s.fs.Rename(tmp, s.path(key))
}

func (s *FileStorage) RemoveItem(key string) error {
	err := s.fs.Remove(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (s *FileStorage) path(key string) string {
	return filepath.Join(s.dir, sanitizeKey(key)+".json")
}

func sanitizeKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, key)
}
