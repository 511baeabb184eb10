package storage

import (
	"context"
	"io"
	"strings"
	"sync"
)

// MockFileStore is a mock implementation of the FileStore interface
// for testing purposes
type MockFileStore struct {
	mu sync.Mutex

	// GetFileStreamFunc, when set, is called instead of returning the canned values
	GetFileStreamFunc func(ctx context.Context, name string) (Result, error)
	// GetFileStreamContent is the body of the stream returned on success
	GetFileStreamContent string
	// GetFileStreamType is the type returned on success
	GetFileStreamType string
	// GetFileStreamError is the error to return from GetFileStream
	GetFileStreamError error

	// Calls records every name GetFileStream was called with
	Calls []string
	// Streams records every stream handed out, so tests can check it was closed
	Streams []*MockStream
}

// NewMockFileStore creates a MockFileStore that succeeds with content and no type
func NewMockFileStore(content string) *MockFileStore {
	return &MockFileStore{GetFileStreamContent: content}
}

// GetFileStream implements the FileStore interface
func (m *MockFileStore) GetFileStream(ctx context.Context, name string) (Result, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, name)
	m.mu.Unlock()

	if m.GetFileStreamFunc != nil {
		return m.GetFileStreamFunc(ctx, name)
	}
	if m.GetFileStreamError != nil {
		return Result{}, m.GetFileStreamError
	}

	stream := NewMockStream(m.GetFileStreamContent)
	m.mu.Lock()
	m.Streams = append(m.Streams, stream)
	m.mu.Unlock()

	return Result{Stream: stream, Type: m.GetFileStreamType}, nil
}

// CallCount returns how many times GetFileStream was called
func (m *MockFileStore) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// MockStream is an in-memory stream that records whether it was closed
type MockStream struct {
	io.Reader
	Closed bool
}

// NewMockStream creates a stream yielding content
func NewMockStream(content string) *MockStream {
	return &MockStream{Reader: strings.NewReader(content)}
}

// Close implements io.Closer
func (s *MockStream) Close() error {
	s.Closed = true
	return nil
}
