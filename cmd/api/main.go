package main

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"memed/internal/httpapi"
	"memed/internal/httpapi/handlers"
	"memed/internal/meme"
	"memed/internal/meta"
	"memed/internal/pkg/logger"
	"memed/internal/pkg/shutdown"
	"memed/internal/registry"
	"memed/internal/render"
	"memed/internal/storage"
)

func main() {
	log := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Format:      getEnv("LOG_FORMAT", "json"),
		ServiceName: "memed-api",
		AddSource:   getEnv("LOG_SOURCE", "false") == "true",
	})

	log.Info("starting memed API",
		"version", "0.1.0",
	)

	httpPort := getEnv("HTTP_PORT", "8080")
	dbURL := os.Getenv("DATABASE_URL")
	redisAddr := os.Getenv("REDIS_ADDR")

	ctx := context.Background()
	shutdownMgr := shutdown.NewManager(log, 30*time.Second)

	// PostgreSQL backs the template catalog when configured; otherwise
	// templates are loaded from the local template directory.
	var pool *pgxpool.Pool
	if dbURL != "" {
		log.Info("connecting to PostgreSQL")
		var err error
		pool, err = pgxpool.New(ctx, dbURL)
		if err != nil {
			log.LogFatal("failed to connect to PostgreSQL", err)
		}
		shutdownMgr.Register("postgres", func(ctx context.Context) error {
			pool.Close()
			return nil
		})
		if err := pool.Ping(ctx); err != nil {
			log.LogFatal("failed to ping PostgreSQL", err)
		}
		log.Info("PostgreSQL connected")
	}

	// Redis carries the fire-and-forget view tracking queue.
	var rdb *redis.Client
	if redisAddr != "" {
		log.Info("connecting to Redis")
		rdb = redis.NewClient(&redis.Options{Addr: redisAddr})
		shutdownMgr.Register("redis", func(ctx context.Context) error {
			return rdb.Close()
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.LogFatal("failed to ping Redis", err)
		}
		log.Info("Redis connected")
	}

	log.Info("initializing storage provider")
	sp, err := storage.NewProvider()
	if err != nil {
		log.LogFatal("failed to initialize storage provider", err)
	}
	log.Info("storage provider initialized", "provider", sp.Provider())

	var catalog registry.Catalog
	if pool != nil {
		catalog = registry.NewPostgres(pool)
	} else {
		dir := getEnv("TEMPLATES_DIR", "./templates")
		mem, err := registry.LoadDir(dir)
		if err != nil {
			log.Warn("template directory unavailable, starting empty",
				"dir", dir,
				"error", err.Error(),
			)
			mem = registry.NewMemory()
		}
		catalog = mem
	}

	reg := registry.New(catalog, sp, getEnv("BACKGROUND_CACHE_DIR", "./cache/backgrounds"), log)

	metaClient := meta.NewClient(meta.Config{
		BaseURL:          os.Getenv("META_BASE_URL"),
		APIKey:           os.Getenv("META_API_KEY"),
		DefaultWatermark: getEnv("DEFAULT_WATERMARK", "memed"),
	})

	var publisher *meta.Publisher
	if rdb != nil {
		publisher = meta.NewPublisher(rdb, getEnv("TRACK_QUEUE", meta.DefaultQueue), log)
	}

	renderer, err := render.New(render.Options{
		FontPath: os.Getenv("FONT_PATH"),
		OutDir:   getEnv("RENDER_CACHE_DIR", "./cache/renders"),
		Workers:  getEnvInt("RENDER_WORKERS", 4),
	}, log)
	if err != nil {
		log.LogFatal("failed to initialize renderer", err)
	}

	cfg := meme.DefaultConfig()
	deps := handlers.Deps{
		Cfg:       cfg,
		Resolver:  meme.NewResolver(cfg, reg, publisher, log),
		Templates: reg,
		Renderer:  renderer,
		Meta:      metaClient,
		Pool:      pool,
		RDB:       rdb,
		SP:        sp,
		Log:       log,
	}
	router := httpapi.NewRouter(deps)

	server := &http.Server{
		Addr:         "0.0.0.0:" + httpPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	shutdownMgr.Register("http-server", func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return server.Shutdown(ctx)
	})

	go func() {
		log.Info("HTTP server listening",
			"addr", server.Addr,
			"port", httpPort,
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogFatal("HTTP server failed", err)
		}
	}()

	shutdownMgr.Wait()
}

// getEnv gets an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	return v
}

func getEnvInt(key string, defaultValue int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}
