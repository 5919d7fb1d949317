package configwatch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/harpou-com/llm-gateway/internal/config"
)

func writeConfig(t *testing.T, path, primaryBackend string) {
	t.Helper()
	doc := `{
		"llm_backends": [{"name":"openai","type":"openai-compatible","base_url":"https://api.openai.com/v1","auto_load":true}],
		"primary_backend_name": "` + primaryBackend + `"
	}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func TestWatcherReloadsOnFileWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	writeConfig(t, path, "openai")

	reloaded := make(chan *config.Config, 1)
	w, err := New(path, func(cfg *config.Config) {
		reloaded <- cfg
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Stop()
	w.Start()

	writeConfig(t, path, "anthropic")

	select {
	case cfg := <-reloaded:
		if cfg.PrimaryBackendName != "anthropic" {
			t.Errorf("PrimaryBackendName = %q, want %q", cfg.PrimaryBackendName, "anthropic")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("onChange was not called after file write")
	}
}

func TestWatcherIgnoresUnrelatedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	writeConfig(t, path, "openai")

	reloaded := make(chan *config.Config, 1)
	w, err := New(path, func(cfg *config.Config) {
		reloaded <- cfg
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Stop()
	w.Start()

	if err := os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("noise"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	select {
	case <-reloaded:
		t.Fatal("onChange fired for a write to an unrelated file")
	case <-time.After(400 * time.Millisecond):
	}
}

func TestWatcherKeepsPreviousConfigOnMalformedWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	writeConfig(t, path, "openai")

	reloaded := make(chan *config.Config, 1)
	w, err := New(path, func(cfg *config.Config) {
		reloaded <- cfg
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Stop()
	w.Start()

	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	select {
	case <-reloaded:
		t.Fatal("onChange fired despite a malformed config write")
	case <-time.After(400 * time.Millisecond):
	}
}
