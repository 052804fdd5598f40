package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore is the binary blob store backing brochure and drawing
// downloads: put/delete/full-path addressing by relative path under a
// managed root directory.
type FileStore struct {
	root string
}

func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

// Put writes a blob under the given relative path and returns that path.
func (s *FileStore) Put(relPath string, data []byte) (string, error) {
	full, err := s.FullPath(relPath)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", err
	}
	return relPath, nil
}

func (s *FileStore) Delete(relPath string) error {
	full, err := s.FullPath(relPath)
	if err != nil {
		return err
	}
	err = os.Remove(full)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// FullPath maps a stored relative path to its absolute location, refusing
// paths that escape the root.
func (s *FileStore) FullPath(relPath string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(relPath))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid blob path: %s", relPath)
	}
	return filepath.Join(s.root, cleaned), nil
}
