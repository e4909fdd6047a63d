package httpapi

import (
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"

	"memed/internal/httpapi/handlers"
	"memed/internal/httpkit"
	"memed/internal/pkg/logger"
	"memed/internal/pkg/middleware"
)

// NewRouter wires the HTTP surface: the image routes with their
// canonicalization gate, the JSON catalog and shortcut endpoints, and the
// health check.
func NewRouter(d handlers.Deps) http.Handler {
	r := chi.NewRouter()

	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(log))
	r.Use(middleware.Recovery(log))

	// ---- CORS (docs UI + embedding sites) ----
	allowedOrigins := envCSV("CORS_ALLOWED_ORIGINS", []string{"*"})
	r.Use(httpkit.CORS(httpkit.CORSOptions{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "X-API-KEY"},
		AllowCredentials: false,
		MaxAgeSeconds:    600,
	}))

	h := handlers.New(d)

	// ---- HEALTH ----
	r.Get("/health", h.Health)

	// ---- TEMPLATES ----
	r.Get("/templates", h.ListTemplates)
	r.Get("/templates/{templateID}", h.GetTemplate)

	// ---- IMAGES ----
	r.Get("/images", h.List)
	r.Post("/images", h.Create)
	r.Get("/images/custom", h.ListCustom)
	r.Post("/images/custom", h.CreateCustom)
	r.Post("/images/automatic", h.Automatic)
	r.Get("/images/{templateFile}", h.Blank)
	r.Get("/images/{templateID}/*", h.Meme)

	return r
}

func envCSV(key string, def []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
