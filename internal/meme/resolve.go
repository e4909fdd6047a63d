// Package meme contains the request-resolution pipeline: it turns a meme
// request (template identifier, slug, style, rendering options) into one
// fully resolved rendering job with a deterministic status code.
package meme

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"memed/internal/pkg/logger"
	"memed/internal/registry"
	"memed/internal/text"
	"memed/internal/urlkit"
)

// Request is the immutable input to the cascade, built per HTTP request.
type Request struct {
	TemplateID string
	Slug       string
	Watermark  string
	Extension  string
	RawURL     string
	Query      url.Values
}

// Job is the resolved rendering job. Status reflects the most specific
// failure found during resolution; a 404/415/422 from the template or
// style checks implies Template was substituted with the error template.
type Job struct {
	Template  *registry.Template
	Style     string
	Lines     []string
	Watermark string
	Extension string
	Width     int
	Height    int
	Status    int
}

// TemplateStore is the slice of the registry the cascade needs.
type TemplateStore interface {
	Get(ctx context.Context, id string) (*registry.Template, error)
	CreateFromURL(ctx context.Context, rawURL string) (*registry.Template, error)
}

// TrackPublisher is the one-way sink for view-tracking events.
type TrackPublisher interface {
	Publish(rawURL string, lines []string)
}

type Resolver struct {
	cfg     Config
	store   TemplateStore
	tracker TrackPublisher
	log     *logger.Logger
}

func NewResolver(cfg Config, store TemplateStore, tracker TrackPublisher, log *logger.Logger) *Resolver {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Resolver{
		cfg:     cfg,
		store:   store,
		tracker: tracker,
		log:     log.WithComponent("resolver"),
	}
}

// Resolve runs the cascade. It never fails: every problem is folded into
// the job's status code and the error template.
func (r *Resolver) Resolve(ctx context.Context, req Request) Job {
	log := r.log.FromContext(ctx)

	slug := req.Slug
	lines := text.Decode(slug)
	if r.tracker != nil {
		r.tracker.Publish(req.RawURL, lines)
	}

	status := initialStatus(req.Query)

	var tmpl *registry.Template
	var style string

	switch {
	// Oversize text is diagnosed before any template lookup: the fallback
	// content is already fully determined, so the branches below never see
	// an oversized slug.
	case r.slugTooLong(slug):
		log.Error("slug too long", "slug_bytes", len(slug))
		slug = truncateSlug(slug, r.cfg.TruncatedLength)
		lines = text.Decode(slug)
		tmpl = r.errorTemplate(ctx)
		style = r.cfg.DefaultStyle
		status = http.StatusRequestURITooLong

	case req.TemplateID == CustomTemplateID:
		bg := urlkit.Arg(req.Query, "", "background", "alt")
		if bg == "" {
			log.Error("no image URL specified for custom template")
			tmpl = r.errorTemplate(ctx)
			style = r.cfg.DefaultStyle
			status = http.StatusUnprocessableEntity
			break
		}

		created, err := r.store.CreateFromURL(ctx, bg)
		if err != nil || !created.ImageExists() {
			log.Error("unable to download image URL", "url", bg)
			created = r.errorTemplate(ctx)
			if !r.cfg.IsPlaceholder(bg) {
				status = http.StatusUnsupportedMediaType
			}
		}
		tmpl = created

		style = urlkit.Arg(req.Query, r.cfg.DefaultStyle, "style", "alt")
		if !urlkit.HasScheme(style) {
			style = strings.ToLower(style)
		}
		tmpl, status = r.checkStyle(ctx, log, tmpl, style, status)

	default:
		found, err := r.store.Get(ctx, req.TemplateID)
		if err != nil || !found.ImageExists() {
			log.Error("no such template", "template_id", req.TemplateID)
			found = r.errorTemplate(ctx)
			if !r.cfg.IsPlaceholder(req.TemplateID) {
				status = http.StatusNotFound
			}
		}
		tmpl = found

		style = urlkit.Arg(req.Query, r.cfg.DefaultStyle, "style", "alt")
		tmpl, status = r.checkStyle(ctx, log, tmpl, style, status)
	}

	// Size and extension problems layer a 422 on top of whatever the
	// branch decided, but never walk a status back toward 200.
	width, height, ok := parseSize(req.Query)
	if !ok {
		log.Error("invalid size",
			"width", req.Query.Get("width"),
			"height", req.Query.Get("height"),
		)
		width, height = 0, 0
		status = raiseTo(status, http.StatusUnprocessableEntity)
	}

	ext := req.Extension
	if !r.cfg.IsAllowedExtension(ext) {
		ext = r.cfg.DefaultExtension
		status = raiseTo(status, http.StatusUnprocessableEntity)
	}

	return Job{
		Template:  tmpl,
		Style:     style,
		Lines:     lines,
		Watermark: req.Watermark,
		Extension: ext,
		Width:     width,
		Height:    height,
		Status:    status,
	}
}

// checkStyle validates the resolved style against the template. A
// scheme-like invalid style is protocol misuse (415); anything else
// invalid is 422. Both substitute the error template. The placeholder
// sentinel suppresses the 422 escalation and keeps the template, so blank
// previews still render.
func (r *Resolver) checkStyle(ctx context.Context, log *logger.Logger, tmpl *registry.Template, style string, status int) (*registry.Template, int) {
	if tmpl.SupportsStyle(style) {
		return tmpl, status
	}
	log.Error("invalid style for template", "template_id", tmpl.ID, "style", style)
	switch {
	case urlkit.HasScheme(style):
		return r.errorTemplate(ctx), http.StatusUnsupportedMediaType
	case !r.cfg.IsPlaceholder(style):
		return r.errorTemplate(ctx), http.StatusUnprocessableEntity
	}
	return tmpl, status
}

func (r *Resolver) slugTooLong(slug string) bool {
	for _, part := range strings.Split(slug, "/") {
		if len(part) > r.cfg.MaxSegmentBytes {
			return true
		}
	}
	return false
}

func (r *Resolver) errorTemplate(ctx context.Context) *registry.Template {
	t, err := r.store.Get(ctx, r.cfg.ErrorTemplateID)
	if err != nil {
		return &registry.Template{ID: r.cfg.ErrorTemplateID}
	}
	return t
}

func truncateSlug(slug string, limit int) string {
	runes := []rune(slug)
	if len(runes) > limit {
		runes = runes[:limit]
	}
	return string(runes) + "..."
}

// initialStatus honors the status override query parameter, defaulting
// to 200.
func initialStatus(q url.Values) int {
	s, err := strconv.Atoi(urlkit.Arg(q, "200", "status"))
	if err != nil || s < 100 || s > 599 {
		return http.StatusOK
	}
	return s
}

func parseSize(q url.Values) (width, height int, ok bool) {
	width, ok = parseDimension(q.Get("width"))
	if ok {
		height, ok = parseDimension(q.Get("height"))
	}
	if !ok {
		return 0, 0, false
	}
	if (width > 0 && width < 10) || (height > 0 && height < 10) {
		return 0, 0, false
	}
	return width, height, true
}

func parseDimension(s string) (int, bool) {
	if s == "" {
		return 0, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// raiseTo bumps status up to at least floor, never down.
func raiseTo(status, floor int) int {
	if status < floor {
		return floor
	}
	return status
}
