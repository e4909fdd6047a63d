package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"memed/internal/httpkit"
	"memed/internal/registry"
	"memed/internal/urlkit"
)

type templateView struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Lines    int      `json:"lines"`
	Styles   []string `json:"styles"`
	Animated bool     `json:"animated"`
	Blank    string   `json:"blank"`
	Example  string   `json:"example,omitempty"`
	Self     string   `json:"self"`
}

// ListTemplates returns the template catalog with ready-to-use URLs.
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter := strings.ToLower(r.URL.Query().Get("filter"))
	animated, animatedSet := boolParam(r, "animated")

	templates, err := h.templates.List(ctx)
	if err != nil {
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "template listing failed", nil)
		return
	}

	base := urlkit.BaseURL(r)
	items := make([]templateView, 0, len(templates))
	for _, t := range templates {
		if strings.HasPrefix(t.ID, "_") {
			continue
		}
		if filter != "" && !matchesFilter(t, filter) {
			continue
		}
		if animatedSet && t.Animated != animated {
			continue
		}
		items = append(items, h.templateView(base, t))
	}
	httpkit.WriteJSON(w, 200, items)
}

// GetTemplate returns a single template by ID.
func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "templateID")

	t, err := h.templates.Get(ctx, id)
	if err != nil {
		httpkit.WriteErr(w, 404, "TEMPLATE_NOT_FOUND", "no such template: "+id, map[string]any{"template_id": id})
		return
	}
	httpkit.WriteJSON(w, 200, h.templateView(urlkit.BaseURL(r), t))
}

func (h *Handler) templateView(base string, t *registry.Template) templateView {
	styles := t.Styles
	if styles == nil {
		styles = []string{}
	}
	v := templateView{
		ID:       t.ID,
		Name:     t.Name,
		Lines:    t.Lines,
		Styles:   styles,
		Animated: t.Animated,
		Blank:    base + "/images/" + t.ID + "." + h.cfg.DefaultExtension,
		Self:     base + "/templates/" + t.ID,
	}
	if len(t.Example) > 0 {
		v.Example = base + h.exampleURL(t)
	}
	return v
}

func boolParam(r *http.Request, key string) (value, set bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return false, false
	}
	return urlkit.Flag(r.URL.Query(), key, false), true
}
