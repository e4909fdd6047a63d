package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// templateConfig is the per-directory metadata file.
type templateConfig struct {
	Name    string   `json:"name"`
	Lines   int      `json:"lines"`
	Styles  []string `json:"styles"`
	Example []string `json:"example"`
}

// LoadDir builds an in-memory catalog from a template directory tree.
// Each subdirectory is one template: an optional config.json with
// metadata plus a background image named default.<ext>. A template is
// animated when an animated.gif rendition is present.
func LoadDir(dir string) (*Memory, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read template dir: %w", err)
	}

	m := NewMemory()
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		t, err := loadTemplate(filepath.Join(dir, entry.Name()), entry.Name())
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", entry.Name(), err)
		}
		m.Put(t)
	}
	return m, nil
}

func loadTemplate(dir, id string) (*Template, error) {
	t := &Template{
		ID:    id,
		Name:  id,
		Lines: 2,
	}

	raw, err := os.ReadFile(filepath.Join(dir, "config.json"))
	switch {
	case err == nil:
		var cfg templateConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("config.json: %w", err)
		}
		if cfg.Name != "" {
			t.Name = cfg.Name
		}
		if cfg.Lines > 0 {
			t.Lines = cfg.Lines
		}
		t.Styles = cfg.Styles
		t.Example = cfg.Example
	case os.IsNotExist(err):
		// Bare directories are fine; defaults apply.
	default:
		return nil, err
	}

	for _, ext := range []string{"png", "jpg", "jpeg", "gif"} {
		p := filepath.Join(dir, "default."+ext)
		if _, err := os.Stat(p); err == nil {
			t.ImagePath = p
			break
		}
	}

	if _, err := os.Stat(filepath.Join(dir, AnimatedStyle+".gif")); err == nil {
		t.Animated = true
	}
	return t, nil
}
