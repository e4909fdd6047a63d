// Package registry is the template namespace: named templates come from a
// catalog (postgres or in-memory), custom templates are derived from a
// background URL and cached through the storage provider.
package registry

import (
	"os"
	"path/filepath"
	"slices"

	"memed/internal/urlkit"
)

// DefaultStyle is the style every template supports implicitly.
const DefaultStyle = "default"

// AnimatedStyle selects a template's animated rendition when it has one.
const AnimatedStyle = "animated"

// Template is a named background image plus metadata about the styles and
// overlay layout it supports.
type Template struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Lines    int      `json:"lines"`
	Styles   []string `json:"styles,omitempty"`
	Animated bool     `json:"animated"`
	Example  []string `json:"example,omitempty"`

	// ImagePath is the default background on local disk. Empty means the
	// image could not be located (missing template dir, failed download).
	ImagePath string `json:"-"`
}

// ImageExists reports whether the template's background image is present.
func (t *Template) ImageExists() bool {
	if t == nil || t.ImagePath == "" {
		return false
	}
	_, err := os.Stat(t.ImagePath)
	return err == nil
}

// SupportsStyle reports whether the requested style is valid for this
// template. The default style always is; ad-hoc URL styles are never
// fetched and so never validate.
func (t *Template) SupportsStyle(style string) bool {
	if t == nil {
		return false
	}
	if style == "" || style == DefaultStyle {
		return true
	}
	if style == AnimatedStyle {
		return t.Animated
	}
	if urlkit.HasScheme(style) {
		return false
	}
	return slices.Contains(t.Styles, style)
}

// StylePath returns the background image for the given style, falling back
// to the default background when the style has no dedicated file.
func (t *Template) StylePath(style string) string {
	if t == nil || t.ImagePath == "" {
		return ""
	}
	if style == "" || style == DefaultStyle || !slices.Contains(t.Styles, style) {
		return t.ImagePath
	}
	alt := filepath.Join(filepath.Dir(t.ImagePath), style+filepath.Ext(t.ImagePath))
	if _, err := os.Stat(alt); err != nil {
		return t.ImagePath
	}
	return alt
}
