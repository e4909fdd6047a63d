package meta

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestTokenize(t *testing.T) {
	t.Run("no remote configured", func(t *testing.T) {
		c := NewClient(Config{})
		got, changed, err := c.Tokenize(context.Background(), "http://memes.test/images/drake/a.png")
		if err != nil || changed || got != "http://memes.test/images/drake/a.png" {
			t.Errorf("Tokenize = (%q, %v, %v)", got, changed, err)
		}
	})

	t.Run("remote rewrites url", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/tokenize" {
				t.Errorf("path = %q", r.URL.Path)
			}
			var in map[string]string
			_ = json.NewDecoder(r.Body).Decode(&in)
			_ = json.NewEncoder(w).Encode(map[string]string{"url": in["url"] + "?token=abc"})
		}))
		defer srv.Close()

		c := NewClient(Config{BaseURL: srv.URL})
		got, changed, err := c.Tokenize(context.Background(), "http://memes.test/x.png")
		if err != nil {
			t.Fatal(err)
		}
		if !changed || got != "http://memes.test/x.png?token=abc" {
			t.Errorf("Tokenize = (%q, %v)", got, changed)
		}
	})

	t.Run("remote echoes url unchanged", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var in map[string]string
			_ = json.NewDecoder(r.Body).Decode(&in)
			_ = json.NewEncoder(w).Encode(map[string]string{"url": in["url"]})
		}))
		defer srv.Close()

		c := NewClient(Config{BaseURL: srv.URL})
		_, changed, err := c.Tokenize(context.Background(), "http://memes.test/x.png?token=abc")
		if err != nil || changed {
			t.Errorf("Tokenize changed = %v, err = %v", changed, err)
		}
	})
}

func TestWatermark(t *testing.T) {
	c := NewClient(Config{APIKey: "secret", DefaultWatermark: "memed.example"})

	tests := []struct {
		name    string
		query   string
		want    string
		updated bool
	}{
		{"no override", "", "memed.example", false},
		{"default override is redundant", "watermark=memed.example", "memed.example", true},
		{"custom without token rejected", "watermark=brand", "memed.example", true},
		{"custom with token", "watermark=brand&token=secret", "brand", false},
		{"none with token removes watermark", "watermark=none&token=secret", "", false},
		{"none without token rejected", "watermark=none", "memed.example", true},
		{"bad token rejected", "watermark=brand&token=wrong", "memed.example", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			got, updated, err := c.Watermark(context.Background(), q)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want || updated != tt.updated {
				t.Errorf("Watermark(%q) = (%q, %v), want (%q, %v)",
					tt.query, got, updated, tt.want, tt.updated)
			}
		})
	}
}

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "fry" {
			t.Errorf("q = %q", got)
		}
		if got := r.URL.Query().Get("safe"); got != "true" {
			t.Errorf("safe = %q", got)
		}
		_ = json.NewEncoder(w).Encode([]SearchResult{
			{ImageURL: "http://img.test/fry.png", Confidence: 0.9},
		})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	results, err := c.Search(context.Background(), "fry", true, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ImageURL != "http://img.test/fry.png" {
		t.Errorf("Search = %v", results)
	}
}
