package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/octu0/bitcaskdb"
)

// BitcaskStore serves files kept in an embedded bitcask database. Keys are
// the slash-separated file names without a leading slash.
type BitcaskStore struct {
	db *bitcaskdb.Bitcask
}

// OpenBitcaskStore opens (or creates) the database at path
func OpenBitcaskStore(path string) (*BitcaskStore, error) {
	db, err := bitcaskdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open bitcask database: %w", err)
	}
	return &BitcaskStore{db: db}, nil
}

// Close closes the underlying database
func (s *BitcaskStore) Close() error {
	return s.db.Close()
}

// GetFileStream implements the FileStore interface
func (s *BitcaskStore) GetFileStream(ctx context.Context, name string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	key, err := CleanName(name)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open %q: %w", name, err)
	}

	entry, err := s.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, bitcaskdb.ErrKeyNotFound) {
			return Result{}, fmt.Errorf("failed to open %q: %w", name, ErrNotFound)
		}
		return Result{}, fmt.Errorf("failed to read %q from bitcask: %w", name, err)
	}

	var r io.Reader = entry
	stream, ok := r.(io.ReadCloser)
	if !ok {
		stream = io.NopCloser(r)
	}

	return Result{Stream: stream, Type: TypeOf(key)}, nil
}

// PutFile implements the Importer interface
func (s *BitcaskStore) PutFile(ctx context.Context, name string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key, err := CleanName(name)
	if err != nil {
		return fmt.Errorf("failed to store %q: %w", name, err)
	}

	if err := s.db.Put([]byte(key), r); err != nil {
		return fmt.Errorf("failed to write %q to bitcask: %w", name, err)
	}
	return nil
}
