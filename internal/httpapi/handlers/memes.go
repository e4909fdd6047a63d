package handlers

import (
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"memed/internal/httpkit"
	"memed/internal/meme"
	"memed/internal/registry"
	"memed/internal/text"
	"memed/internal/urlkit"
)

// Blank displays a template background without overlay text.
//
// The only canonicalization concern here is the animated-style rewrite:
// plain backgrounds never carry slugs, watermarks, or tracking tokens.
func (h *Handler) Blank(w http.ResponseWriter, r *http.Request) {
	id, ext, ok := splitImageFile(chi.URLParam(r, "templateFile"))
	if !ok {
		httpkit.WriteErr(w, 404, "NOT_FOUND", "not an image path", nil)
		return
	}

	if h.animatedRedirect(w, r, "/images/"+id, ext) {
		return
	}

	h.renderMeme(w, r, meme.Request{
		TemplateID: id,
		Extension:  ext,
		RawURL:     urlkit.Absolute(r),
		Query:      r.URL.Query(),
	})
}

// Meme displays a meme with overlay text. Non-canonical URLs are redirected
// before any rendering work: animated-style rewrite, slug normalization,
// token refresh, then watermark-override consumption, first match wins.
func (h *Handler) Meme(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.log.FromContext(ctx)

	id := chi.URLParam(r, "templateID")
	if id == "" {
		id = meme.CustomTemplateID
	}
	slugPath, ext, ok := splitImageFile(chi.URLParam(r, "*"))
	if !ok {
		httpkit.WriteErr(w, 404, "NOT_FOUND", "not an image path", nil)
		return
	}

	if h.animatedRedirect(w, r, "/images/"+id+"/"+slugPath, ext) {
		return
	}

	slug, changed := text.Normalize(slugPath)
	if changed {
		target := urlkit.WithParams("/images/"+id+"/"+slug+"."+ext, r.URL.Query())
		http.Redirect(w, r, target, http.StatusMovedPermanently)
		return
	}

	tokenized, changed, err := h.meta.Tokenize(ctx, urlkit.Absolute(r))
	if err != nil {
		log.Warn("tokenize failed", "error", err.Error())
	} else if changed {
		http.Redirect(w, r, tokenized, http.StatusFound)
		return
	}

	watermark, changed, err := h.meta.Watermark(ctx, r.URL.Query())
	if err != nil {
		log.Warn("watermark resolution failed", "error", err.Error())
	} else if changed {
		params := urlkit.Without(r.URL.Query(), "watermark")
		target := urlkit.WithParams("/images/"+id+"/"+slug+"."+ext, params)
		http.Redirect(w, r, target, http.StatusFound)
		return
	}

	h.renderMeme(w, r, meme.Request{
		TemplateID: id,
		Slug:       slug,
		Watermark:  watermark,
		Extension:  ext,
		RawURL:     urlkit.Absolute(r),
		Query:      r.URL.Query(),
	})
}

// animatedRedirect rewrites ?style=animated into a .gif path with the
// style parameter dropped. Returns true when a redirect was written.
func (h *Handler) animatedRedirect(w http.ResponseWriter, r *http.Request, basePath, ext string) bool {
	if r.URL.Query().Get("style") != registry.AnimatedStyle || ext == "gif" {
		return false
	}
	params := urlkit.Without(r.URL.Query(), "style")
	target := urlkit.WithParams(basePath+".gif", params)
	http.Redirect(w, r, target, http.StatusMovedPermanently)
	return true
}

// renderMeme runs the resolution cascade, hands the job to the renderer
// pool, and streams the file back with the computed status.
func (h *Handler) renderMeme(w http.ResponseWriter, r *http.Request, req meme.Request) {
	ctx := r.Context()
	log := h.log.FromContext(ctx)

	job := h.resolver.Resolve(ctx, req)

	res, err := h.renderer.Render(ctx, job)
	if err != nil {
		log.Error("render failed",
			"template_id", job.Template.ID,
			"error", err.Error(),
		)
		httpkit.WriteErr(w, 500, "RENDER_FAILED", "unable to render image", nil)
		return
	}

	f, err := os.Open(res.Path)
	if err != nil {
		log.Error("rendered file missing", "path", res.Path, "error", err.Error())
		httpkit.WriteErr(w, 500, "RENDER_FAILED", "rendered file missing", nil)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", res.ContentType)
	if st, err := f.Stat(); err == nil {
		w.Header().Set("Content-Length", strconv.FormatInt(st.Size(), 10))
	}
	w.WriteHeader(job.Status)
	_, _ = io.Copy(w, f)
}

// List returns example memes, optionally filtered by template name or
// example text.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter := strings.ToLower(r.URL.Query().Get("filter"))

	templates, err := h.templates.List(ctx)
	if err != nil {
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "template listing failed", nil)
		return
	}

	base := urlkit.BaseURL(r)
	items := make([]map[string]string, 0, len(templates))
	for _, t := range templates {
		if len(t.Example) == 0 || strings.HasPrefix(t.ID, "_") {
			continue
		}
		if filter != "" && !matchesFilter(t, filter) {
			continue
		}
		items = append(items, map[string]string{
			"url":      base + h.exampleURL(t),
			"template": base + "/templates/" + t.ID,
		})
	}
	httpkit.WriteJSON(w, 200, items)
}

type createRequest struct {
	TemplateID string   `json:"template_id"`
	Background string   `json:"background"`
	TextLines  []string `json:"text_lines"`
	Style      []string `json:"style"`
	Extension  string   `json:"extension"`
	Redirect   bool     `json:"redirect"`
}

// Create builds a meme URL from a JSON body; the template must exist.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	h.generateURL(w, r, true)
}

// CreateCustom builds a meme URL for an arbitrary background image.
func (h *Handler) CreateCustom(w http.ResponseWriter, r *http.Request) {
	h.generateURL(w, r, false)
}

func (h *Handler) generateURL(w http.ResponseWriter, r *http.Request, templateIDRequired bool) {
	ctx := r.Context()

	var req createRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "invalid json body", nil)
		return
	}

	id := strings.TrimSpace(req.TemplateID)
	if templateIDRequired && id == "" {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", `"template_id" is required`, map[string]any{"field": "template_id"})
		return
	}
	if id == "" {
		id = meme.CustomTemplateID
	}

	if id != meme.CustomTemplateID {
		if _, err := h.templates.Get(ctx, id); err != nil {
			httpkit.WriteErr(w, 404, "TEMPLATE_NOT_FOUND", "no such template: "+id, map[string]any{"template_id": id})
			return
		}
	}

	ext := req.Extension
	if !h.cfg.IsAllowedExtension(ext) {
		ext = h.cfg.DefaultExtension
	}

	path := "/images/" + id
	if len(req.TextLines) > 0 {
		path += "/" + text.EncodeLines(req.TextLines)
	}
	path += "." + ext

	params := url.Values{}
	if id == meme.CustomTemplateID && req.Background != "" {
		params.Set("background", req.Background)
	}
	for _, s := range req.Style {
		params.Add("style", s)
	}
	target := urlkit.WithParams(path, params)
	full := urlkit.BaseURL(r) + target

	if req.Redirect {
		http.Redirect(w, r, target, http.StatusFound)
		return
	}
	httpkit.WriteJSON(w, 201, map[string]string{"url": full})
}

// ListCustom returns popular custom memes from the search service.
func (h *Handler) ListCustom(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.log.FromContext(ctx)

	query := strings.ToLower(r.URL.Query().Get("filter"))
	safe := urlkit.Flag(r.URL.Query(), "safe", true)

	results, err := h.meta.Search(ctx, query, safe, "results")
	if err != nil {
		httpkit.WriteErr(w, 502, "SEARCH_FAILED", "search service unavailable", nil)
		return
	}
	log.Info("search results", "count", len(results))
	if len(results) == 0 {
		httpkit.WriteJSON(w, 404, map[string]string{"message": "No results matched: " + query})
		return
	}

	items := make([]map[string]string, 0, len(results))
	for _, res := range results {
		u, _, err := h.meta.Tokenize(ctx, res.ImageURL)
		if err != nil {
			log.Warn("tokenize failed", "error", err.Error())
			u = res.ImageURL
		}
		items = append(items, map[string]string{"url": u})
	}
	httpkit.WriteJSON(w, 200, items)
}

type automaticRequest struct {
	Text     string `json:"text"`
	Safe     *bool  `json:"safe"`
	Redirect bool   `json:"redirect"`
}

// Automatic builds a meme from a word or phrase via the search service.
func (h *Handler) Automatic(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.log.FromContext(ctx)

	var req automaticRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "invalid json body", nil)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", `"text" is required`, map[string]any{"field": "text"})
		return
	}

	safe := true
	if req.Safe != nil {
		safe = *req.Safe
	}

	results, err := h.meta.Search(ctx, req.Text, safe, "")
	if err != nil {
		httpkit.WriteErr(w, 502, "SEARCH_FAILED", "search service unavailable", nil)
		return
	}
	log.Info("search results", "count", len(results))
	if len(results) == 0 {
		httpkit.WriteJSON(w, 404, map[string]string{"message": "No results matched: " + req.Text})
		return
	}

	top := results[0]
	log.Info("top search result", "url", top.ImageURL, "confidence", top.Confidence)

	u, _, err := h.meta.Tokenize(ctx, top.ImageURL)
	if err != nil {
		log.Warn("tokenize failed", "error", err.Error())
		u = top.ImageURL
	}

	if req.Redirect {
		http.Redirect(w, r, u, http.StatusFound)
		return
	}
	httpkit.WriteJSON(w, 201, map[string]any{
		"url":        u,
		"confidence": top.Confidence,
	})
}

func (h *Handler) exampleURL(t *registry.Template) string {
	ext := h.cfg.DefaultExtension
	if t.Animated {
		ext = "gif"
	}
	return "/images/" + t.ID + "/" + text.EncodeLines(t.Example) + "." + ext
}

func matchesFilter(t *registry.Template, filter string) bool {
	if strings.Contains(strings.ToLower(t.ID), filter) ||
		strings.Contains(strings.ToLower(t.Name), filter) {
		return true
	}
	for _, line := range t.Example {
		if strings.Contains(strings.ToLower(line), filter) {
			return true
		}
	}
	return false
}

// splitImageFile splits "drake.png" or "top/bottom.png" into its path and
// extension, rejecting paths without one.
func splitImageFile(p string) (base, ext string, ok bool) {
	i := strings.LastIndex(p, ".")
	if i <= 0 || i == len(p)-1 {
		return "", "", false
	}
	base, ext = p[:i], p[i+1:]
	if strings.ContainsAny(ext, "/.") {
		return "", "", false
	}
	return base, ext, true
}
