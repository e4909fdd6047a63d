package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeTemplateDir(t *testing.T, root, id, config string, files ...string) {
	t.Helper()
	dir := filepath.Join(root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if config != "" {
		if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(config), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(dir, f), []byte("img"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestLoadDir(t *testing.T) {
	root := t.TempDir()
	writeTemplateDir(t, root, "drake",
		`{"name":"Drake Hotline Bling","lines":2,"styles":["alt"],"example":["no","yes"]}`,
		"default.jpg")
	writeTemplateDir(t, root, "party", "", "default.png", "animated.gif")
	writeTemplateDir(t, root, "bare", "")

	m, err := LoadDir(root)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}

	drake, err := m.Get(context.Background(), "drake")
	if err != nil {
		t.Fatalf("get drake: %v", err)
	}
	if drake.Name != "Drake Hotline Bling" || drake.Lines != 2 {
		t.Errorf("drake metadata = %+v", drake)
	}
	if !drake.ImageExists() {
		t.Error("drake background should exist")
	}
	if drake.Animated {
		t.Error("drake is not animated")
	}

	party, err := m.Get(context.Background(), "party")
	if err != nil {
		t.Fatalf("get party: %v", err)
	}
	if !party.Animated {
		t.Error("party should be animated")
	}
	if party.Name != "party" {
		t.Errorf("default name = %q", party.Name)
	}

	bare, err := m.Get(context.Background(), "bare")
	if err != nil {
		t.Fatalf("get bare: %v", err)
	}
	if bare.ImageExists() {
		t.Error("bare template has no background")
	}

	all, err := m.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("len = %d, want 3", len(all))
	}
}

func TestLoadDirBadConfig(t *testing.T) {
	root := t.TempDir()
	writeTemplateDir(t, root, "broken", `{not json`)

	if _, err := LoadDir(root); err == nil {
		t.Fatal("expected error for malformed config.json")
	}
}
