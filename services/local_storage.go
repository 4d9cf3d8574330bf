package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gatsishub/gatsishub-api/utils"
)

// LocalStorage keeps uploads on disk and serves them through /api/v1/uploads
type LocalStorage struct {
	dir string
}

// NewLocalStorage stores files under dir
func NewLocalStorage(dir string) *LocalStorage {
	return &LocalStorage{dir: dir}
}

// Dir is the directory files are written to
func (s *LocalStorage) Dir() string {
	return s.dir
}

func (s *LocalStorage) Put(ctx context.Context, key string, body []byte, contentType string) error {
	return utils.WriteFile(s.dir, utils.LocalFilename(key), body)
}

func (s *LocalStorage) URL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	return utils.GetFileURL(utils.LocalFilename(key)), nil
}

func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, utils.LocalFilename(key)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
