package meme

import "slices"

// CustomTemplateID is the sentinel identifier for ad-hoc background URLs.
const CustomTemplateID = "custom"

// Config is the immutable pipeline configuration. It is passed in
// explicitly so the resolution cascade stays pure and unit-testable.
type Config struct {
	// AllowedExtensions whitelists output formats; anything else falls
	// back to DefaultExtension with a 422.
	AllowedExtensions []string
	DefaultExtension  string
	DefaultStyle      string

	// Placeholder is the magic identifier/URL/style that resolves to
	// blank content without ever surfacing an error status.
	Placeholder string

	// ErrorTemplateID is rendered whenever resolution fails.
	ErrorTemplateID string

	// MaxSegmentBytes bounds a single encoded slug segment; longer slugs
	// are truncated to TruncatedLength characters plus an ellipsis.
	MaxSegmentBytes int
	TruncatedLength int
}

func DefaultConfig() Config {
	return Config{
		AllowedExtensions: []string{"png", "jpg", "jpeg", "gif"},
		DefaultExtension:  "png",
		DefaultStyle:      "default",
		Placeholder:       "string",
		ErrorTemplateID:   "_error",
		MaxSegmentBytes:   200,
		TruncatedLength:   50,
	}
}

// IsPlaceholder reports whether a value is the placeholder sentinel. Used
// uniformly at every escalation point of the cascade.
func (c Config) IsPlaceholder(v string) bool {
	return v != "" && v == c.Placeholder
}

func (c Config) IsAllowedExtension(ext string) bool {
	return slices.Contains(c.AllowedExtensions, ext)
}
