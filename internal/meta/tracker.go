package meta

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"memed/internal/pkg/logger"
)

// DefaultQueue is the redis list the tracker worker consumes.
const DefaultQueue = "memed:track"

// Event is one rendered-meme view, queued for the tracker worker.
type Event struct {
	URL     string    `json:"url"`
	Lines   []string  `json:"lines"`
	Referer string    `json:"referer,omitempty"`
	At      time.Time `json:"at"`
}

// Publisher enqueues tracking events as a one-way, fire-and-forget send.
// Publish never blocks the request path and its outcome is only logged;
// the goroutine runs on a background context so the parent request's
// completion cannot cancel it.
type Publisher struct {
	rdb   *redis.Client
	queue string
	log   *logger.Logger
}

func NewPublisher(rdb *redis.Client, queue string, log *logger.Logger) *Publisher {
	if queue == "" {
		queue = DefaultQueue
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &Publisher{rdb: rdb, queue: queue, log: log.WithComponent("tracker")}
}

func (p *Publisher) Publish(rawURL string, lines []string) {
	if p == nil || p.rdb == nil {
		return
	}

	ev := Event{URL: rawURL, Lines: lines, At: time.Now().UTC()}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		payload, err := json.Marshal(ev)
		if err != nil {
			p.log.Error("track event marshal failed", "error", err.Error())
			return
		}
		if err := p.rdb.LPush(ctx, p.queue, payload).Err(); err != nil {
			p.log.Warn("track event dropped", "error", err.Error())
		}
	}()
}
