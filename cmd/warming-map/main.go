package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	httpapi "github.com/i474232898/warming-map/internal/api/http"
	"github.com/i474232898/warming-map/internal/climate"
	"github.com/i474232898/warming-map/internal/config"
	"github.com/i474232898/warming-map/internal/dataset"
	"github.com/i474232898/warming-map/internal/observability"
	"github.com/i474232898/warming-map/internal/policy"
	"github.com/i474232898/warming-map/internal/providers"
	"github.com/i474232898/warming-map/internal/quiz"
	"github.com/i474232898/warming-map/internal/scheduler"
	"github.com/i474232898/warming-map/internal/session"
	"github.com/i474232898/warming-map/internal/store"
)

func main() {
	// Load configuration (.env first, then environment).
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := observability.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	// Refuse to start without the data files.
	catalog := dataset.Catalog{Dir: cfg.DataDir, Variable: cfg.DataVariable, Logger: log}
	if err := catalog.Check(); err != nil {
		log.Error("data directory incomplete", "dir", cfg.DataDir, "error", err)
		os.Exit(1)
	}

	metrics := observability.NewMetrics()

	// Optional shared cache tier.
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = store.NewRedisClient(context.Background(), cfg.RedisURL)
		if err != nil {
			log.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		log.Info("redis cache tier enabled")
	}

	loader := climate.NewLoader(catalog, log,
		climate.WithFieldCache(newMemo[climate.Field]("field", cfg.CacheSize, nil, cfg.CacheTTL, metrics, log)),
		climate.WithRenderCache(newMemo[climate.Render]("render", cfg.CacheSize, rdb, cfg.CacheTTL, metrics, log)),
		climate.WithPointCache(newMemo[climate.Series]("point", cfg.CacheSize*16, rdb, cfg.CacheTTL, metrics, log)),
	)
	defer func() {
		if err := loader.Close(); err != nil {
			log.Warn("closing data files", "error", err)
		}
	}()

	sessions := session.NewManager(cfg.SessionMaxCount, cfg.SessionMaxAge, clockwork.NewRealClock())

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	var basemap *providers.Basemap
	if cfg.BasemapTTL > 0 {
		basemap = providers.NewBasemap(httpClient, cfg.BasemapURL, cfg.BasemapTTL, log)
	}
	places := providers.NewPlaceResolver(cfg.GeocoderAPIKey, cfg.CacheSize*16, log)
	if places == nil {
		log.Info("reverse geocoding disabled; set GEOCODER_API_KEY to enable")
	}

	// Scheduler that warms caches and sweeps sessions.
	sched := scheduler.New(loader, sessions, cfg.WarmInterval, uint8(cfg.DefaultAlpha), metrics, log)
	if err := sched.Start(); err != nil {
		log.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "warming-map",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ok",
			"service":  "warming-map",
			"sessions": sessions.Len(),
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	httpapi.RegisterRoutes(app, httpapi.Deps{
		Loader:       loader,
		Sessions:     sessions,
		Bank:         quiz.DefaultBank(),
		Policies:     policy.Library{Dir: cfg.PolicyDir},
		Basemap:      basemap,
		Places:       places,
		Metrics:      metrics,
		Logger:       log,
		DefaultAlpha: uint8(cfg.DefaultAlpha),
		SeriesFrom:   cfg.SeriesFrom,
		SeriesTo:     cfg.SeriesTo,
	})

	go func() {
		log.Info("listening", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("fiber server stopped", "error", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", "error", err)
	}
}

// newMemo builds a cache for one computation kind, backed by Redis when rdb
// is non-nil.
func newMemo[V any](name string, size int, rdb *redis.Client, ttl time.Duration, m *observability.Metrics, log *slog.Logger) *store.Memo[V] {
	opts := []store.MemoOption[V]{
		store.WithObserver[V](m.ObserveCache),
		store.WithLogger[V](log),
	}
	if rdb != nil {
		opts = append(opts, store.WithRemote[V](store.NewRedis[V](rdb, "warming-map:"+name, ttl)))
	}
	return store.NewMemo[V](name, size, opts...)
}
