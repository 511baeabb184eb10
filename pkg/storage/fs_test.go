package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePublicFile(t *testing.T, root, name, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0644))
}

func TestFSStoreGetFileStream(t *testing.T) {
	root := t.TempDir()
	writePublicFile(t, root, "home/index.html", "<h1>home</h1>")
	writePublicFile(t, root, "app.js", "console.log(1)")
	writePublicFile(t, root, "LICENSE", "MIT")

	store, err := NewFSStore(root)
	require.NoError(t, err)

	tests := []struct {
		name     string
		request  string
		wantBody string
		wantType string
	}{
		{name: "page identifier", request: "home/index.html", wantBody: "<h1>home</h1>", wantType: ".html"},
		{name: "literal request path", request: "/app.js", wantBody: "console.log(1)", wantType: ".js"},
		{name: "no extension", request: "/LICENSE", wantBody: "MIT", wantType: ""},
		{name: "redundant separators", request: "//home/./index.html", wantBody: "<h1>home</h1>", wantType: ".html"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := store.GetFileStream(context.Background(), tt.request)
			require.NoError(t, err)
			defer res.Stream.Close()

			body, err := io.ReadAll(res.Stream)
			require.NoError(t, err)
			assert.Equal(t, tt.wantBody, string(body))
			assert.Equal(t, tt.wantType, res.Type)
		})
	}
}

func TestFSStoreNotFound(t *testing.T) {
	root := t.TempDir()
	writePublicFile(t, root, "assets/style.css", "body{}")

	store, err := NewFSStore(root)
	require.NoError(t, err)

	for _, name := range []string{"/missing.png", "/assets", "/../etc/passwd", "/a\\b", "/", "/assets/\x00.css"} {
		t.Run(name, func(t *testing.T) {
			_, err := store.GetFileStream(context.Background(), name)
			require.Error(t, err)
			assert.True(t, IsNotFound(err), "expected not found for %q, got %v", name, err)
		})
	}
}

func TestFSStoreGenericError(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}

	root := t.TempDir()
	writePublicFile(t, root, "secret.html", "nope")
	require.NoError(t, os.Chmod(filepath.Join(root, "secret.html"), 0000))

	store, err := NewFSStore(root)
	require.NoError(t, err)

	_, err = store.GetFileStream(context.Background(), "/secret.html")
	require.Error(t, err)
	assert.False(t, IsNotFound(err))
}

func TestFSStoreCancelledContext(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.GetFileStream(ctx, "/index.html")
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, IsNotFound(err))
}

func TestNewFSStoreRejectsMissingDir(t *testing.T) {
	_, err := NewFSStore(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	_, err = NewFSStore(file)
	assert.Error(t, err)
}

func TestCleanName(t *testing.T) {
	clean, err := CleanName("/css/../css/site.css")
	assert.ErrorIs(t, err, ErrInvalidPath)
	assert.Empty(t, clean)

	clean, err = CleanName("/css//site.css")
	require.NoError(t, err)
	assert.Equal(t, "css/site.css", clean)

	assert.True(t, IsNotFound(ErrInvalidPath))
}
