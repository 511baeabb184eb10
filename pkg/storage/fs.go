package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FSStore serves files from a directory on the local filesystem
type FSStore struct {
	root string
}

// NewFSStore creates a store rooted at dir
func NewFSStore(dir string) (*FSStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve public directory: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to access public directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("public directory %s is not a directory", abs)
	}

	return &FSStore{root: abs}, nil
}

// GetFileStream implements the FileStore interface
func (s *FSStore) GetFileStream(ctx context.Context, name string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	rel, err := CleanName(name)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open %q: %w", name, err)
	}

	fullPath := filepath.Join(s.root, filepath.FromSlash(rel))

	f, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{}, fmt.Errorf("failed to open %q: %w", name, ErrNotFound)
		}
		return Result{}, fmt.Errorf("failed to open %q: %w", name, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return Result{}, fmt.Errorf("failed to stat %q: %w", name, err)
	}
	if info.IsDir() {
		f.Close()
		return Result{}, fmt.Errorf("%q is a directory: %w", name, ErrNotFound)
	}

	return Result{Stream: f, Type: filepath.Ext(fullPath)}, nil
}
