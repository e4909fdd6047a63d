package meme

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"memed/internal/registry"
)

// testStore wires a memory catalog plus a canned custom-background set so
// cascade tests run without redis, postgres, or the storage provider.
type testStore struct {
	catalog *registry.Memory
	// backgrounds maps URL -> image path ("" means download failed)
	backgrounds map[string]string
}

func (s *testStore) Get(ctx context.Context, id string) (*registry.Template, error) {
	return s.catalog.Get(ctx, id)
}

func (s *testStore) CreateFromURL(ctx context.Context, rawURL string) (*registry.Template, error) {
	return &registry.Template{ID: "custom", Name: "custom", ImagePath: s.backgrounds[rawURL]}, nil
}

type recordingTracker struct {
	mu    sync.Mutex
	lines [][]string
}

func (r *recordingTracker) Publish(rawURL string, lines []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, lines)
}

func newTestResolver(t *testing.T) (*Resolver, *testStore, *recordingTracker) {
	t.Helper()
	dir := t.TempDir()

	img := func(name string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte("img"), 0o644); err != nil {
			t.Fatal(err)
		}
		return p
	}

	store := &testStore{
		catalog: registry.NewMemory(
			&registry.Template{ID: "_error", Name: "Error", ImagePath: img("error.png")},
			&registry.Template{ID: "drake", Name: "Drake", Styles: []string{"mini"}, ImagePath: img("drake.png")},
			&registry.Template{ID: "party", Name: "Party", Animated: true, ImagePath: img("party.png")},
		),
		backgrounds: map[string]string{
			"http://good.example/bg.png": img("bg.png"),
			"http://bad.example/x.png":   "",
		},
	}
	tracker := &recordingTracker{}
	return NewResolver(DefaultConfig(), store, tracker, nil), store, tracker
}

func query(raw string) url.Values {
	q, _ := url.ParseQuery(raw)
	return q
}

func TestResolveNamedTemplate(t *testing.T) {
	r, _, _ := newTestResolver(t)
	ctx := context.Background()

	tests := []struct {
		name         string
		req          Request
		wantStatus   int
		wantTemplate string
		wantStyle    string
	}{
		{
			name:         "valid template default style",
			req:          Request{TemplateID: "drake", Slug: "top/bottom", Extension: "png", Query: query("")},
			wantStatus:   200,
			wantTemplate: "drake",
			wantStyle:    "default",
		},
		{
			name:         "valid alternate style",
			req:          Request{TemplateID: "drake", Slug: "a", Extension: "png", Query: query("style=mini")},
			wantStatus:   200,
			wantTemplate: "drake",
			wantStyle:    "mini",
		},
		{
			name:         "alias key resolves style",
			req:          Request{TemplateID: "drake", Slug: "a", Extension: "png", Query: query("alt=mini")},
			wantStatus:   200,
			wantTemplate: "drake",
			wantStyle:    "mini",
		},
		{
			name:         "unknown template",
			req:          Request{TemplateID: "nope", Slug: "a", Extension: "png", Query: query("")},
			wantStatus:   404,
			wantTemplate: "_error",
			wantStyle:    "default",
		},
		{
			name:         "placeholder identifier suppresses 404",
			req:          Request{TemplateID: "string", Slug: "", Extension: "png", Query: query("")},
			wantStatus:   200,
			wantTemplate: "_error",
			wantStyle:    "default",
		},
		{
			name:         "invalid style",
			req:          Request{TemplateID: "drake", Slug: "a", Extension: "png", Query: query("style=bogus")},
			wantStatus:   422,
			wantTemplate: "_error",
			wantStyle:    "bogus",
		},
		{
			name:         "scheme-like style is protocol misuse",
			req:          Request{TemplateID: "drake", Slug: "a", Extension: "png", Query: query("style=http%3A%2F%2Fx.example%2Fy.png")},
			wantStatus:   415,
			wantTemplate: "_error",
		},
		{
			name:         "placeholder style suppresses 422",
			req:          Request{TemplateID: "drake", Slug: "a", Extension: "png", Query: query("style=string")},
			wantStatus:   200,
			wantTemplate: "drake",
		},
		{
			name:         "animated style on animated template",
			req:          Request{TemplateID: "party", Slug: "a", Extension: "gif", Query: query("style=animated")},
			wantStatus:   200,
			wantTemplate: "party",
			wantStyle:    "animated",
		},
		{
			name:         "status override honored",
			req:          Request{TemplateID: "drake", Slug: "a", Extension: "png", Query: query("status=201")},
			wantStatus:   201,
			wantTemplate: "drake",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := r.Resolve(ctx, tt.req)
			if job.Status != tt.wantStatus {
				t.Errorf("Status = %d, want %d", job.Status, tt.wantStatus)
			}
			if job.Template.ID != tt.wantTemplate {
				t.Errorf("Template = %q, want %q", job.Template.ID, tt.wantTemplate)
			}
			if tt.wantStyle != "" && job.Style != tt.wantStyle {
				t.Errorf("Style = %q, want %q", job.Style, tt.wantStyle)
			}
		})
	}
}

func TestResolveCustomBranch(t *testing.T) {
	r, _, _ := newTestResolver(t)
	ctx := context.Background()

	tests := []struct {
		name         string
		rawQuery     string
		wantStatus   int
		wantTemplate string
	}{
		{
			name:         "missing background URL",
			rawQuery:     "",
			wantStatus:   422,
			wantTemplate: "_error",
		},
		{
			name:         "background downloads fine",
			rawQuery:     "background=http%3A%2F%2Fgood.example%2Fbg.png",
			wantStatus:   200,
			wantTemplate: "custom",
		},
		{
			name:         "alias key carries background",
			rawQuery:     "alt=http%3A%2F%2Fgood.example%2Fbg.png",
			wantStatus:   200,
			wantTemplate: "custom",
		},
		{
			name:         "background image absent",
			rawQuery:     "background=http%3A%2F%2Fbad.example%2Fx.png",
			wantStatus:   415,
			wantTemplate: "_error",
		},
		{
			name:         "placeholder background suppresses 415",
			rawQuery:     "background=string",
			wantStatus:   200,
			wantTemplate: "_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := Request{
				TemplateID: CustomTemplateID,
				Slug:       "some_text",
				Extension:  "png",
				Query:      query(tt.rawQuery),
			}
			job := r.Resolve(ctx, req)
			if job.Status != tt.wantStatus {
				t.Errorf("Status = %d, want %d", job.Status, tt.wantStatus)
			}
			if job.Template.ID != tt.wantTemplate {
				t.Errorf("Template = %q, want %q", job.Template.ID, tt.wantTemplate)
			}
		})
	}

	t.Run("style is lowercased unless scheme-like", func(t *testing.T) {
		req := Request{
			TemplateID: CustomTemplateID,
			Slug:       "a",
			Extension:  "png",
			Query:      query("background=http%3A%2F%2Fgood.example%2Fbg.png&style=DEFAULT"),
		}
		job := r.Resolve(ctx, req)
		if job.Style != "default" || job.Status != 200 {
			t.Errorf("Style = %q, Status = %d", job.Style, job.Status)
		}
	})
}

func TestResolveOversizeSlug(t *testing.T) {
	r, _, _ := newTestResolver(t)
	ctx := context.Background()

	long := strings.Repeat("a", 250)
	req := Request{TemplateID: "drake", Slug: long + "/ok", Extension: "png", Query: query("")}

	job := r.Resolve(ctx, req)
	if job.Status != 414 {
		t.Fatalf("Status = %d, want 414", job.Status)
	}
	if job.Template.ID != "_error" {
		t.Errorf("Template = %q, want _error", job.Template.ID)
	}
	if len(job.Lines) != 1 || !strings.HasSuffix(job.Lines[0], "...") {
		t.Errorf("Lines = %v, want single truncated line", job.Lines)
	}
	if got := len([]rune(job.Lines[0])); got != 53 {
		t.Errorf("truncated line length = %d, want 53", got)
	}

	t.Run("preempts the named branch", func(t *testing.T) {
		// The identifier would be a 404, but the oversize check wins.
		req := Request{TemplateID: "nope", Slug: long, Extension: "png", Query: query("")}
		if job := r.Resolve(ctx, req); job.Status != 414 {
			t.Errorf("Status = %d, want 414", job.Status)
		}
	})
}

func TestResolveSizeValidation(t *testing.T) {
	r, _, _ := newTestResolver(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		rawQuery   string
		wantW      int
		wantH      int
		wantStatus int
	}{
		{"no size", "", 0, 0, 200},
		{"valid size", "width=300&height=200", 300, 200, 200},
		{"width only", "width=640", 640, 0, 200},
		{"width too small", "width=5", 0, 0, 422},
		{"height too small", "width=300&height=9", 0, 0, 422},
		{"non-numeric width", "width=abc", 0, 0, 422},
		{"negative height", "height=-3", 0, 0, 422},
		{"boundary ten is valid", "width=10", 10, 0, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := Request{TemplateID: "drake", Slug: "a", Extension: "png", Query: query(tt.rawQuery)}
			job := r.Resolve(ctx, req)
			if job.Width != tt.wantW || job.Height != tt.wantH {
				t.Errorf("size = (%d,%d), want (%d,%d)", job.Width, job.Height, tt.wantW, tt.wantH)
			}
			if job.Status != tt.wantStatus {
				t.Errorf("Status = %d, want %d", job.Status, tt.wantStatus)
			}
			// Size failures never force the error template.
			if job.Template.ID != "drake" {
				t.Errorf("Template = %q, want drake", job.Template.ID)
			}
		})
	}
}

func TestResolveExtensionValidation(t *testing.T) {
	r, _, _ := newTestResolver(t)
	ctx := context.Background()

	t.Run("disallowed extension falls back", func(t *testing.T) {
		req := Request{TemplateID: "drake", Slug: "a", Extension: "tiff", Query: query("")}
		job := r.Resolve(ctx, req)
		if job.Extension != "png" || job.Status != 422 {
			t.Errorf("Extension = %q, Status = %d", job.Extension, job.Status)
		}
		if job.Template.ID != "drake" {
			t.Errorf("Template = %q, want drake", job.Template.ID)
		}
	})

	t.Run("allowed extension preserved alongside style failure", func(t *testing.T) {
		req := Request{TemplateID: "drake", Slug: "a", Extension: "png", Query: query("style=bogus")}
		job := r.Resolve(ctx, req)
		if job.Extension != "png" {
			t.Errorf("Extension = %q, want png", job.Extension)
		}
	})
}

func TestResolveStatusPrecedence(t *testing.T) {
	r, _, _ := newTestResolver(t)
	ctx := context.Background()

	t.Run("size failure raises 404 to 422", func(t *testing.T) {
		req := Request{TemplateID: "nope", Slug: "a", Extension: "png", Query: query("width=5")}
		if job := r.Resolve(ctx, req); job.Status != 422 {
			t.Errorf("Status = %d, want 422", job.Status)
		}
	})

	t.Run("size failure never downgrades a 500 override", func(t *testing.T) {
		req := Request{TemplateID: "drake", Slug: "a", Extension: "png", Query: query("status=500&width=5")}
		if job := r.Resolve(ctx, req); job.Status != 500 {
			t.Errorf("Status = %d, want 500", job.Status)
		}
	})

	t.Run("415 survives extension fallback", func(t *testing.T) {
		req := Request{
			TemplateID: CustomTemplateID,
			Slug:       "a",
			Extension:  "png",
			Query:      query("background=http%3A%2F%2Fbad.example%2Fx.png"),
		}
		if job := r.Resolve(ctx, req); job.Status != 415 {
			t.Errorf("Status = %d, want 415", job.Status)
		}
	})
}

func TestResolvePublishesTracking(t *testing.T) {
	r, _, tracker := newTestResolver(t)

	r.Resolve(context.Background(), Request{
		TemplateID: "drake",
		Slug:       "top_text/bottom_text",
		Extension:  "png",
		Query:      query(""),
	})

	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	if len(tracker.lines) != 1 {
		t.Fatalf("published %d events, want 1", len(tracker.lines))
	}
	want := []string{"top text", "bottom text"}
	got := tracker.lines[0]
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("lines = %v, want %v", got, want)
	}
}
