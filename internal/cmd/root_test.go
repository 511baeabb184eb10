package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/niels/page-server/pkg/storage"
	"github.com/spf13/cobra"
)

func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	return executeCommandContext(context.Background(), root, args...)
}

func executeCommandContext(ctx context.Context, root *cobra.Command, args ...string) (output string, err error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)

	err = root.ExecuteContext(ctx)
	return buf.String(), err
}

// importingStore is a FileStore that also accepts imports
type importingStore struct {
	*storage.MockFileStore
	mu    sync.Mutex
	files map[string]string
}

func newImportingStore() *importingStore {
	return &importingStore{MockFileStore: storage.NewMockFileStore(""), files: map[string]string{}}
}

func (s *importingStore) PutFile(ctx context.Context, name string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = string(data)
	return nil
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		full := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatalf("Failed to create directory: %v", err)
		}
		if err := os.WriteFile(full, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write file: %v", err)
		}
	}
}

func TestVersionFlag(t *testing.T) {
	output, err := executeCommand(NewRootCmd(), "--version")
	if err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if !strings.Contains(output, "page-server version 0.1.0") {
		t.Errorf("Expected version information, got: %s", output)
	}
}

func TestHelpFlag(t *testing.T) {
	output, err := executeCommand(NewRootCmd(), "--help")
	if err != nil {
		t.Errorf("Unexpected error: %v", err)
	}

	for _, content := range []string{"page-server", "--config", "--debug", "serve", "routes", "import"} {
		if !strings.Contains(output, content) {
			t.Errorf("Help output missing: %s", content)
		}
	}
}

func TestRoutesCommand(t *testing.T) {
	output, err := executeCommand(NewRootCmd(), "routes", "--no-color")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	for _, content := range []string{
		"GET /",
		"redirect",
		"-> /home",
		"/controller",
		"-> controller/index.html",
		".css",
		"text/css",
		"Storage backend: fs",
	} {
		if !strings.Contains(output, content) {
			t.Errorf("Routes output missing %q, got:\n%s", content, output)
		}
	}
}

func TestRoutesCommandWithConfigFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "page-server.yaml")
	writeFiles(t, filepath.Dir(configPath), map[string]string{
		"page-server.yaml": "location:\n  home: /welcome\npages:\n  /welcome: welcome.html\n",
	})

	output, err := executeCommand(NewRootCmd(), "--config", configPath, "routes", "--no-color")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(output, "-> /welcome") || !strings.Contains(output, "-> welcome.html") {
		t.Errorf("Expected configured routes, got:\n%s", output)
	}
	if strings.Contains(output, "/controller") {
		t.Errorf("Default pages should be replaced, got:\n%s", output)
	}
}

func TestConfigFlagMissingFile(t *testing.T) {
	_, err := executeCommand(NewRootCmd(), "--config", filepath.Join(t.TempDir(), "missing.yaml"), "routes")
	if err == nil {
		t.Errorf("Expected error for an explicit missing config file")
	}
}

func TestServeWithInjectedStore(t *testing.T) {
	store := storage.NewMockFileStore("data")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := executeCommandContext(ctx, NewRootCmdWithStore(store), "serve", "--addr", "127.0.0.1:0")
	if err != nil {
		t.Errorf("Expected clean shutdown, got: %v", err)
	}
}

func TestServeFailsWithoutPublicDir(t *testing.T) {
	t.Setenv("PAGE_SERVER_PUBLIC_DIR", filepath.Join(t.TempDir(), "missing"))

	_, err := executeCommand(NewRootCmd(), "serve", "--addr", "127.0.0.1:0")
	if err == nil {
		t.Errorf("Expected error when the public directory does not exist")
	}
}

func TestImportCommand(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"home/index.html":       "<h1>home</h1>",
		"controller/index.html": "<h1>controller</h1>",
		"css/site.css":          "body{}",
	})

	store := newImportingStore()
	output, err := executeCommand(NewRootCmdWithStore(store), "import", dir)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(output, "3 files") {
		t.Errorf("Expected import summary, got: %s", output)
	}

	names := make([]string, 0, len(store.files))
	for name := range store.files {
		names = append(names, name)
	}
	sort.Strings(names)

	expected := []string{"controller/index.html", "css/site.css", "home/index.html"}
	if strings.Join(names, ",") != strings.Join(expected, ",") {
		t.Errorf("Expected imported files %v, got %v", expected, names)
	}
	if store.files["css/site.css"] != "body{}" {
		t.Errorf("Expected css content to be imported, got %q", store.files["css/site.css"])
	}
}

func TestImportRejectsFSBackend(t *testing.T) {
	_, err := executeCommand(NewRootCmd(), "import", t.TempDir())
	if err == nil {
		t.Errorf("Expected error when importing into the fs backend")
	}
}

func TestImportIntoBitcask(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "pages.db")
	configPath := filepath.Join(tempDir, "config.yaml")
	writeFiles(t, tempDir, map[string]string{
		"config.yaml":          "storage:\n  backend: bitcask\n  bitcask_path: " + dbPath + "\n",
		"site/home/index.html": "<h1>home</h1>",
	})

	_, err := executeCommand(NewRootCmd(), "--config", configPath, "import", filepath.Join(tempDir, "site"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	store, err := storage.OpenBitcaskStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen bitcask store: %v", err)
	}
	defer store.Close()

	res, err := store.GetFileStream(context.Background(), "home/index.html")
	if err != nil {
		t.Fatalf("Expected imported page, got error: %v", err)
	}
	defer res.Stream.Close()

	body, _ := io.ReadAll(res.Stream)
	if string(body) != "<h1>home</h1>" {
		t.Errorf("Expected imported content, got %q", string(body))
	}
}
