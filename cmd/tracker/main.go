package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"memed/internal/meta"
	"memed/internal/pkg/logger"
	"memed/internal/tracker"
)

func main() {
	log := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Format:      getEnv("LOG_FORMAT", "json"),
		ServiceName: "memed-tracker",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisAddr := mustEnv(log, "REDIS_ADDR")
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer rdb.Close()

	// View counts are optional; without a database the tracker only
	// forwards events to the attribution service.
	var pool *pgxpool.Pool
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		var err error
		pool, err = pgxpool.New(ctx, dbURL)
		if err != nil {
			log.LogFatal("failed to connect to PostgreSQL", err)
		}
		defer pool.Close()
	}

	metaClient := meta.NewClient(meta.Config{
		BaseURL: os.Getenv("META_BASE_URL"),
		APIKey:  os.Getenv("META_API_KEY"),
	})

	log.Info("tracker started", "queue", getEnv("TRACK_QUEUE", meta.DefaultQueue))
	err := tracker.Run(ctx, tracker.Deps{
		Pool:      pool,
		RDB:       rdb,
		Meta:      metaClient,
		QueueName: getEnv("TRACK_QUEUE", meta.DefaultQueue),
		Log:       log,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.LogFatal("tracker stopped", err)
	}
}

func getEnv(key, defaultValue string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	return v
}

func mustEnv(log *logger.Logger, key string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		log.Error("missing required environment variable", "key", key)
		os.Exit(1)
	}
	return v
}
