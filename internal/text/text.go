// Package text implements the reversible slug codec used in meme URLs.
// Each line of overlay text becomes one path segment; spaces and reserved
// characters are escaped so the result survives URL routing untouched.
package text

import "strings"

// Escape sequences for characters that cannot appear raw in a path segment.
// Order matters on encode: literal underscore/dash escapes must win over the
// single-character space encoding.
var escapes = []struct {
	char string
	code string
}{
	{"_", "__"},
	{"-", "--"},
	{" ", "_"},
	{"?", "~q"},
	{"&", "~a"},
	{"%", "~p"},
	{"#", "~h"},
	{"/", "~s"},
	{"\\", "~b"},
	{"<", "~l"},
	{">", "~g"},
	{"\n", "~n"},
	{`"`, "''"},
}

// Encode converts a single line of text into its slug segment form.
func Encode(line string) string {
	var b strings.Builder
	for _, r := range line {
		s := string(r)
		escaped := false
		for _, e := range escapes {
			if s == e.char {
				b.WriteString(e.code)
				escaped = true
				break
			}
		}
		if !escaped {
			b.WriteString(s)
		}
	}
	return b.String()
}

// EncodeLines joins encoded lines into a full slug path.
func EncodeLines(lines []string) string {
	parts := make([]string, len(lines))
	for i, line := range lines {
		parts[i] = Encode(line)
	}
	return strings.Join(parts, "/")
}

// Decode converts a slug path back into its ordered text lines.
// An empty slug yields no lines.
func Decode(slug string) []string {
	if slug == "" {
		return nil
	}
	parts := strings.Split(slug, "/")
	lines := make([]string, len(parts))
	for i, part := range parts {
		lines[i] = decodeSegment(part)
	}
	return lines
}

func decodeSegment(part string) string {
	var b strings.Builder
	runes := []rune(part)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		next := rune(0)
		if i+1 < len(runes) {
			next = runes[i+1]
		}
		switch {
		case r == '_' && next == '_':
			b.WriteByte('_')
			i++
		case r == '-' && next == '-':
			b.WriteByte('-')
			i++
		case r == '_' || r == '-':
			b.WriteByte(' ')
		case r == '\'' && next == '\'':
			b.WriteByte('"')
			i++
		case r == '~' && next != 0:
			if c, ok := tildeCode(next); ok {
				b.WriteRune(c)
				i++
			} else {
				b.WriteRune(r)
			}
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func tildeCode(r rune) (rune, bool) {
	switch r {
	case 'q':
		return '?', true
	case 'a':
		return '&', true
	case 'p':
		return '%', true
	case 'h':
		return '#', true
	case 's':
		return '/', true
	case 'b':
		return '\\', true
	case 'l':
		return '<', true
	case 'g':
		return '>', true
	case 'n':
		return '\n', true
	}
	return 0, false
}

// Normalize re-encodes a slug into its canonical form and reports whether
// the input differed. Handlers redirect to the canonical form when it does.
func Normalize(slug string) (string, bool) {
	canonical := EncodeLines(Decode(slug))
	return canonical, canonical != slug
}
