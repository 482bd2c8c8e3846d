package tokenstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileBackend persists the session blob as a single file, written
// atomically via a temp file and rename.
type FileBackend struct {
	path string
}

var _ Backend = (*FileBackend)(nil)

// NewFileBackend creates a Backend storing the blob at path. If path is
// empty, ~/.bankauth/session.json is used. The parent directory is
// created with 0700 permissions.
func NewFileBackend(path string) (*FileBackend, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, ".bankauth", "session.json")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return &FileBackend{path: path}, nil
}

// Path returns the file the backend writes to.
func (b *FileBackend) Path() string { return b.path }

func (b *FileBackend) Load(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	return data, nil
}

func (b *FileBackend) Save(ctx context.Context, blob []byte) error {
	tempPath := b.path + ".tmp"
	if err := os.WriteFile(tempPath, blob, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tempPath, b.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save session file: %w", err)
	}
	return nil
}

func (b *FileBackend) Delete(ctx context.Context) error {
	if err := os.Remove(b.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}
