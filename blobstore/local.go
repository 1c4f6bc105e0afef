package blobstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// LocalStore implements Store on the local file system.
type LocalStore struct {
	root string
}

// NewLocalStore creates a LocalStore rooted at dir, creating it if
// needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("blobstore: create root: %w", err)
	}
	return &LocalStore{root: dir}, nil
}

// Put writes the blob to a temp file and renames it into place so
// readers never observe a partial write.
func (s *LocalStore) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target := filepath.Join(s.root, name)
	tmp, err := os.CreateTemp(s.root, filepath.Base(name)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()
	_ = tmp.Chmod(0644)
	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, target); err != nil {
		return err
	}
	tmpName = "" // the rename consumed the temp file
	return nil
}

// Get returns the blob's content.
func (s *LocalStore) Get(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.root, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

// Delete removes the blob.
func (s *LocalStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.root, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
