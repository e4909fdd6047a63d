package urlkit

import (
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestArg(t *testing.T) {
	values := url.Values{
		"style": {"mini"},
		"alt":   {"wide"},
		"blank": {""},
	}

	tests := []struct {
		name string
		def  string
		keys []string
		want string
	}{
		{"first key wins", "default", []string{"style", "alt"}, "mini"},
		{"falls through to alias", "default", []string{"missing", "alt"}, "wide"},
		{"empty value skipped", "default", []string{"blank", "alt"}, "wide"},
		{"default when none present", "default", []string{"nope", "nada"}, "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Arg(values, tt.def, tt.keys...); got != tt.want {
				t.Errorf("Arg(%v) = %q, want %q", tt.keys, got, tt.want)
			}
		})
	}
}

func TestHasScheme(t *testing.T) {
	tests := []struct {
		v    string
		want bool
	}{
		{"http://example.com/bg.png", true},
		{"https://example.com", true},
		{"default", false},
		{"mini", false},
		{"", false},
		{"example.com/no-scheme", false},
	}

	for _, tt := range tests {
		if got := HasScheme(tt.v); got != tt.want {
			t.Errorf("HasScheme(%q) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestClean(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"/images/drake.png?style=", "/images/drake.png"},
		{"/images/drake.png?width=5&style=mini", "/images/drake.png?style=mini&width=5"},
		{"/images/drake/a_b.png", "/images/drake/a_b.png"},
	}

	for _, tt := range tests {
		if got := Clean(tt.raw); got != tt.want {
			t.Errorf("Clean(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestWithout(t *testing.T) {
	values := url.Values{"style": {"animated"}, "width": {"5"}}
	got := Without(values, "style")
	if got.Get("style") != "" || got.Get("width") != "5" {
		t.Errorf("Without returned %v", got)
	}
	if values.Get("style") != "animated" {
		t.Error("Without mutated the input values")
	}
}

func TestAbsolute(t *testing.T) {
	r := httptest.NewRequest("GET", "http://memes.test/images/drake/a.png?style=mini", nil)
	if got := Absolute(r); got != "http://memes.test/images/drake/a.png?style=mini" {
		t.Errorf("Absolute = %q", got)
	}

	r.Header.Set("X-Forwarded-Proto", "https")
	if got := Absolute(r); got != "https://memes.test/images/drake/a.png?style=mini" {
		t.Errorf("Absolute with forwarded proto = %q", got)
	}
}
