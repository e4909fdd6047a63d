package tracker

import (
	"context"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"memed/internal/meta"
	"memed/internal/pkg/errors"
	"memed/internal/pkg/logger"
)

// Consumer handles one event at a time: remote delivery first, then the
// local view counter. Either half failing is reported but does not undo
// the other.
type Consumer struct {
	pool *pgxpool.Pool
	meta *meta.Client
	log  *logger.Logger
}

func NewConsumer(pool *pgxpool.Pool, m *meta.Client, log *logger.Logger) *Consumer {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Consumer{pool: pool, meta: m, log: log.WithComponent("consumer")}
}

func (c *Consumer) Consume(ctx context.Context, ev meta.Event) error {
	var remoteErr error
	if c.meta != nil {
		remoteErr = c.meta.SendEvent(ctx, ev)
	}

	if c.pool != nil {
		if err := c.countView(ctx, ev); err != nil {
			return errors.Wrap(err, "tracker.count", "failed to record view")
		}
	}

	if remoteErr != nil {
		return errors.Wrap(remoteErr, "tracker.send", "failed to deliver event")
	}
	return nil
}

func (c *Consumer) countView(ctx context.Context, ev meta.Event) error {
	id := templateIDFromURL(ev.URL)
	if id == "" {
		return nil
	}
	_, err := c.pool.Exec(ctx, `
		INSERT INTO template_views (template_id, views, last_seen)
		VALUES ($1, 1, $2)
		ON CONFLICT (template_id)
		DO UPDATE SET views = template_views.views + 1, last_seen = $2
	`, id, ev.At)
	return err
}

// templateIDFromURL pulls the template identifier out of a meme URL
// (/images/{id}... with or without a text path).
func templateIDFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] != "images" {
		return ""
	}
	id := parts[1]
	if len(parts) == 2 {
		// blank route: strip the extension
		if i := strings.LastIndex(id, "."); i > 0 {
			id = id[:i]
		}
	}
	return id
}
