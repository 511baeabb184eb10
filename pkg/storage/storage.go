// Package storage provides the file stores the router streams pages and
// static assets from.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// Common errors
var (
	// ErrNotFound is wrapped by every store when no backing object exists
	// for the requested name. Callers check it with errors.Is.
	ErrNotFound = errors.New("file not found")
	// ErrInvalidPath is returned for names that try to escape the store root.
	// It wraps ErrNotFound so such requests are answered like missing files.
	ErrInvalidPath = fmt.Errorf("%w: invalid file path", ErrNotFound)
)

// Result is a successfully opened file.
type Result struct {
	// Stream yields the file contents. The receiver owns it and must close it.
	Stream io.ReadCloser
	// Type is the file extension including the leading dot, or "" when the
	// store could not determine one.
	Type string
}

// FileStore defines the interface the router uses to open files
type FileStore interface {
	// GetFileStream opens the file identified by name. Names are either page
	// identifiers ("home/index.html") or literal request paths ("/app.js").
	GetFileStream(ctx context.Context, name string) (Result, error)
}

// Importer is implemented by stores that can be loaded with content
type Importer interface {
	// PutFile stores the content read from r under name
	PutFile(ctx context.Context, name string, r io.Reader) error
}

// IsNotFound reports whether err means the requested file does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// CleanName normalizes a page identifier or request path into a
// slash-separated key relative to the store root. Traversal attempts
// ("..", NUL bytes, backslashes) are rejected.
func CleanName(name string) (string, error) {
	if strings.IndexByte(name, 0) != -1 || strings.Contains(name, "\\") {
		return "", ErrInvalidPath
	}

	rel := strings.TrimLeft(name, "/")
	for _, seg := range strings.Split(rel, "/") {
		if seg == ".." {
			return "", ErrInvalidPath
		}
	}

	clean := path.Clean(rel)
	if clean == "." || clean == "" {
		return "", ErrInvalidPath
	}

	return clean, nil
}

// TypeOf returns the extension of name including the dot, or ""
func TypeOf(name string) string {
	return path.Ext(name)
}
