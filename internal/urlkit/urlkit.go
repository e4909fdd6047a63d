// Package urlkit holds the small URL helpers shared by the meme handlers:
// ordered query-parameter lookup, scheme detection for style values, and
// canonical URL cleanup used when building redirect targets.
package urlkit

import (
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// Arg returns the first present, non-empty value among the candidate keys,
// or def when none is set. Branches that accept an alias key share this
// lookup so the alias order is defined in exactly one place.
func Arg(values url.Values, def string, keys ...string) string {
	for _, k := range keys {
		if v := values.Get(k); v != "" {
			return v
		}
	}
	return def
}

// HasScheme reports whether v looks like an absolute URL rather than a
// plain style or template name.
func HasScheme(v string) bool {
	u, err := url.Parse(v)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}

// Flag parses a boolean query parameter, falling back to def when the
// parameter is absent or unrecognized.
func Flag(values url.Values, key string, def bool) bool {
	switch strings.ToLower(values.Get(key)) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return def
}

// Clean normalizes a URL for use as a redirect target: empty query values
// are dropped and the remaining parameters are emitted in a stable order.
func Clean(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.RawQuery = encodeQuery(u.Query())
	return u.String()
}

// WithParams returns path with the given query parameters appended,
// cleaned the same way redirect targets are.
func WithParams(path string, values url.Values) string {
	q := encodeQuery(values)
	if q == "" {
		return path
	}
	return path + "?" + q
}

// Without returns a copy of values with the given keys removed.
func Without(values url.Values, keys ...string) url.Values {
	out := url.Values{}
	for k, vs := range values {
		out[k] = vs
	}
	for _, k := range keys {
		out.Del(k)
	}
	return out
}

// BaseURL returns the scheme://host prefix for building absolute URLs,
// honoring the proxy-forwarded protocol header when present.
func BaseURL(r *http.Request) string {
	scheme := r.Header.Get("X-Forwarded-Proto")
	if scheme == "" {
		if r.TLS != nil {
			scheme = "https"
		} else {
			scheme = "http"
		}
	}
	return scheme + "://" + r.Host
}

// Absolute reconstructs the full request URL.
func Absolute(r *http.Request) string {
	return BaseURL(r) + r.URL.RequestURI()
}

func encodeQuery(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		for _, v := range values[k] {
			if v == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}
