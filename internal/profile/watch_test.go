package profile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hubwrap/hubwrap/internal/errors"
)

const validProfilesYAML = `profiles:
  - display_name: Small
    key: small
    description: one CPU
    type: local
    config:
      start_timeout: 15
  - display_name: Large
    key: large
    type: local
`

func writeProfiles(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadCatalogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	writeProfiles(t, path, validProfilesYAML)

	catalog, err := LoadCatalogFile(path)
	if err != nil {
		t.Fatalf("LoadCatalogFile failed: %v", err)
	}
	if len(catalog) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(catalog))
	}
	if catalog.Default().Key != "small" {
		t.Errorf("expected default small, got %s", catalog.Default().Key)
	}
	if catalog[0].Config["start_timeout"] != 15 {
		t.Errorf("config not parsed: %v", catalog[0].Config)
	}
}

func TestLoadCatalogFileErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadCatalogFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("missing file should fail")
	}

	bad := filepath.Join(dir, "bad.yaml")
	writeProfiles(t, bad, ":\nnot yaml: [")
	var perr *errors.ProfileError
	if _, err := LoadCatalogFile(bad); !errors.As(err, &perr) {
		t.Errorf("expected ProfileError for unparseable file, got %v", err)
	}

	invalid := filepath.Join(dir, "invalid.yaml")
	writeProfiles(t, invalid, "profiles:\n  - key: a\n") // missing type
	if _, err := LoadCatalogFile(invalid); err == nil {
		t.Error("invalid catalog should fail validation")
	}
}

func TestWatcherReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	writeProfiles(t, path, validProfilesYAML)

	reloaded := make(chan Catalog, 4)
	w, err := NewWatcher(path, nil, func(c Catalog) { reloaded <- c })
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()

	writeProfiles(t, path, validProfilesYAML+`  - display_name: GPU
    key: gpu
    type: batch
`)

	select {
	case catalog := <-reloaded:
		if len(catalog) != 3 {
			t.Errorf("expected 3 profiles after reload, got %d", len(catalog))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not reload after file change")
	}

	if len(w.Catalog()) != 3 {
		t.Errorf("snapshot not updated: %d profiles", len(w.Catalog()))
	}
}

func TestWatcherKeepsPreviousCatalogOnInvalidEdit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	writeProfiles(t, path, validProfilesYAML)

	w, err := NewWatcher(path, nil, nil)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()

	writeProfiles(t, path, "profiles: [")

	// The invalid edit is picked up asynchronously; the previous catalog must
	// survive it. Give the watcher a moment to process the event.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(w.Catalog()) != 2 {
			t.Fatalf("invalid edit replaced the catalog: %v", w.Catalog())
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestWatcherCloseIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	writeProfiles(t, path, validProfilesYAML)

	w, err := NewWatcher(path, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}
