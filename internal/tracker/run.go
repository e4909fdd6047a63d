// Package tracker consumes queued view events and forwards them: one POST
// to the attribution service per event, plus a per-template view counter
// in postgres. Delivery is best-effort; a failed event is logged and
// dropped so the queue never backs up behind a dead remote.
package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"memed/internal/meta"
	"memed/internal/pkg/logger"
)

type Deps struct {
	Pool      *pgxpool.Pool
	RDB       *redis.Client
	Meta      *meta.Client
	QueueName string
	Log       *logger.Logger
}

func Run(ctx context.Context, d Deps) error {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	log = log.WithComponent("tracker")

	queueName := d.QueueName
	if queueName == "" {
		queueName = meta.DefaultQueue
	}
	q := NewRedisQueue(d.RDB, queueName)
	c := NewConsumer(d.Pool, d.Meta, log)

	for {
		select {
		case <-ctx.Done():
			log.Info("tracker context canceled, stopping")
			return ctx.Err()
		default:
		}

		popCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		payload, err := q.Pop(popCtx, 10*time.Second)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				log.Info("tracker stopping due to context cancellation")
				return ctx.Err()
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			log.Warn("queue pop error, retrying", "error", err.Error())
			time.Sleep(1 * time.Second)
			continue
		}

		if payload == "" {
			continue
		}

		var ev meta.Event
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			log.Warn("dropping malformed track event", "error", err.Error())
			continue
		}

		start := time.Now()
		if err := c.Consume(ctx, ev); err != nil {
			log.Warn("track event delivery failed",
				"url", ev.URL,
				"error", err.Error(),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		} else {
			log.Debug("track event delivered",
				"url", ev.URL,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		}
	}
}
