package blob

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store keeps attachment blobs on the local filesystem, keyed by the
// owning email's external id and the attachment filename. Writing a key
// that already exists reuses the existing blob.
type Store struct {
	dir string
}

// NewStore creates a blob store rooted at dir
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Put stores data under (externalID, filename) and returns the blob
// location. A duplicate write from a prior partial run is treated as
// success and the existing blob is kept.
func (s *Store) Put(externalID, filename string, data []byte) (string, error) {
	path := filepath.Join(s.dir, sanitize(externalID), sanitize(filename))

	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create blob subdirectory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write blob: %w", err)
	}

	return path, nil
}

// Get reads a blob back by its location
func (s *Store) Get(location string) ([]byte, error) {
	data, err := os.ReadFile(location)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}
	return data, nil
}

// sanitize keeps keys usable as single path segments. Message ids carry
// angle brackets and slashes; filenames may try to traverse directories.
func sanitize(key string) string {
	key = strings.Trim(key, "<>")
	key = filepath.Base(key)
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "<", "_", ">", "_")
	key = replacer.Replace(key)
	if key == "" || key == "." || key == ".." {
		key = "_"
	}
	return key
}
