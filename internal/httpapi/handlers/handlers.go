package handlers

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"memed/internal/meme"
	"memed/internal/meta"
	"memed/internal/pkg/logger"
	"memed/internal/ports"
	"memed/internal/registry"
	"memed/internal/render"
)

// TemplateSource is the slice of the registry the handlers read from.
type TemplateSource interface {
	Get(ctx context.Context, id string) (*registry.Template, error)
	List(ctx context.Context) ([]*registry.Template, error)
}

// Renderer produces the image file for a resolved job.
type Renderer interface {
	Render(ctx context.Context, job meme.Job) (render.Result, error)
}

type Deps struct {
	Cfg       meme.Config
	Resolver  *meme.Resolver
	Templates TemplateSource
	Renderer  Renderer
	Meta      *meta.Client

	// Health-check collaborators; any of them may be nil.
	Pool *pgxpool.Pool
	RDB  *redis.Client
	SP   ports.StorageProvider

	Log *logger.Logger
}

type Handler struct {
	cfg       meme.Config
	resolver  *meme.Resolver
	templates TemplateSource
	renderer  Renderer
	meta      *meta.Client

	pool *pgxpool.Pool
	rdb  *redis.Client
	sp   ports.StorageProvider

	log *logger.Logger
}

func New(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	return &Handler{
		cfg:       d.Cfg,
		resolver:  d.Resolver,
		templates: d.Templates,
		renderer:  d.Renderer,
		meta:      d.Meta,
		pool:      d.Pool,
		rdb:       d.RDB,
		sp:        d.SP,
		log:       log.WithComponent("handlers"),
	}
}
