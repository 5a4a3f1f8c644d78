package module

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestLoader_DiscoverManifests(t *testing.T) {
	loader := NewLoader(zap.NewNop())

	manifests, err := loader.DiscoverManifests([]string{filepath.Join("testdata", "modules")})
	if err != nil {
		t.Fatalf("DiscoverManifests() failed: %v", err)
	}

	// invalid-yaml, missing-fields and duplicate-export are skipped
	if len(manifests) != 2 {
		t.Fatalf("expected 2 manifests, got %d", len(manifests))
	}

	if _, ok := manifests["example"]; !ok {
		t.Error("expected manifest for 'example'")
	}

	sleeper, ok := manifests["sleeper"]
	if !ok {
		t.Fatal("expected manifest for 'sleeper'")
	}
	if !sleeper.Disabled {
		t.Error("'sleeper' should be disabled")
	}
}

func TestLoader_MissingPath(t *testing.T) {
	loader := NewLoader(zap.NewNop())

	manifests, err := loader.DiscoverManifests([]string{"/nonexistent/modules"})
	if err != nil {
		t.Fatalf("missing paths should be skipped, got %v", err)
	}

	if len(manifests) != 0 {
		t.Errorf("expected no manifests, got %d", len(manifests))
	}
}

func TestLoader_SkipsDirectoriesWithoutManifest(t *testing.T) {
	base := t.TempDir()
	if err := os.Mkdir(filepath.Join(base, "empty"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(base, "stray.yaml"), []byte("name: x"), 0o644); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader(zap.NewNop())
	manifests, err := loader.DiscoverManifests([]string{base})
	if err != nil {
		t.Fatalf("DiscoverManifests() failed: %v", err)
	}

	if len(manifests) != 0 {
		t.Errorf("expected no manifests, got %d", len(manifests))
	}
}

func TestLoader_DuplicateNameKeepsFirst(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	for _, base := range []string{first, second} {
		dir := filepath.Join(base, "dup")
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		content := []byte("name: dup\nversion: 1.0.0\n")
		if err := os.WriteFile(filepath.Join(dir, ManifestFile), content, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	loader := NewLoader(zap.NewNop())
	manifests, err := loader.DiscoverManifests([]string{first, second})
	if err != nil {
		t.Fatalf("DiscoverManifests() failed: %v", err)
	}

	if got := manifests["dup"].Dir(); got != filepath.Join(first, "dup") {
		t.Errorf("expected first directory to win, got %s", got)
	}
}
