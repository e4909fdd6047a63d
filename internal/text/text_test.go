package text

import (
	"reflect"
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		slug string
		want []string
	}{
		{"empty", "", nil},
		{"single line", "hello_world", []string{"hello world"}},
		{"two lines", "top_text/bottom_text", []string{"top text", "bottom text"}},
		{"dash as space", "hello-world", []string{"hello world"}},
		{"literal underscore", "snake__case", []string{"snake_case"}},
		{"literal dash", "well--known", []string{"well-known"}},
		{"question mark", "what~q", []string{"what?"}},
		{"ampersand", "you_~a_me", []string{"you & me"}},
		{"percent", "100~p", []string{"100%"}},
		{"hash", "~hwinning", []string{"#winning"}},
		{"slash", "either~sor", []string{"either/or"}},
		{"backslash", "c~b_drive", []string{`c\ drive`}},
		{"angle brackets", "~lhtml~g", []string{"<html>"}},
		{"newline", "line~nbreak", []string{"line\nbreak"}},
		{"double quote", "say_''hi''", []string{`say "hi"`}},
		{"unknown tilde code kept", "a~zb", []string{"a~zb"}},
		{"empty segment", "top//bottom", []string{"top", "", "bottom"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decode(tt.slug)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Decode(%q) = %v, want %v", tt.slug, got, tt.want)
			}
		})
	}
}

func TestEncodeLines(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  string
	}{
		{"simple", []string{"hello world"}, "hello_world"},
		{"two lines", []string{"top", "bottom"}, "top/bottom"},
		{"underscore escaped", []string{"snake_case"}, "snake__case"},
		{"dash escaped", []string{"well-known"}, "well--known"},
		{"reserved chars", []string{"50% off? #deal"}, "50~p_off~q_~hdeal"},
		{"embedded slash", []string{"either/or"}, "either~sor"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EncodeLines(tt.lines); got != tt.want {
				t.Errorf("EncodeLines(%v) = %q, want %q", tt.lines, got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		slug    string
		want    string
		changed bool
	}{
		{"hello_world", "hello_world", false},
		{"hello-world", "hello_world", true},
		{"top_text/bottom_text", "top_text/bottom_text", false},
		{"Hello World", "Hello_World", true},
		{"snake__case", "snake__case", false},
	}

	for _, tt := range tests {
		t.Run(tt.slug, func(t *testing.T) {
			got, changed := Normalize(tt.slug)
			if got != tt.want || changed != tt.changed {
				t.Errorf("Normalize(%q) = (%q, %v), want (%q, %v)",
					tt.slug, got, changed, tt.want, tt.changed)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	lines := []string{"one does not simply", "walk into mordor", "it's 100% true?"}
	got := Decode(EncodeLines(lines))
	if !reflect.DeepEqual(got, lines) {
		t.Errorf("round trip = %v, want %v", got, lines)
	}
}
