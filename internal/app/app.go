package app

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/route-registry/internal/cache"
	"github.com/yungbote/route-registry/internal/data/db"
	"github.com/yungbote/route-registry/internal/observability"
	"github.com/yungbote/route-registry/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Repos    Repos
	Services Services
	Cache    cache.RouteCache
	Metrics  *observability.Metrics

	otelShutdown func(context.Context) error
}

// New connects the database and cache and wires the route services. Schema migration is
// separate, see Migrate.
func New(ctx context.Context, log *logger.Logger, cfg Config) (*App, error) {
	schemas, err := LoadSchemas(cfg.SchemasFile, cfg.Schemas)
	if err != nil {
		return nil, err
	}
	cfg.Schemas = schemas

	shutdown := observability.InitOTel(ctx, log, cfg.Otel)

	theDB, err := db.Open(cfg.DB, log)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	routeCache := cache.NewNoopRouteCache()
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedisRouteCache(log, cache.RedisOptions{
			Addr:   cfg.RedisAddr,
			Prefix: cfg.CachePrefix,
			TTL:    cfg.CacheTTL,
		})
		if err != nil {
			closeDB(theDB)
			return nil, fmt.Errorf("init route cache: %w", err)
		}
		routeCache = rc
	} else {
		log.Info("REDIS_ADDR not set, route lookups are uncached")
	}

	metrics := observability.NewMetrics()
	reposet := wireRepos(theDB, log)
	serviceset := wireServices(log, cfg, reposet, routeCache, metrics)

	return &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Repos:        reposet,
		Services:     serviceset,
		Cache:        routeCache,
		Metrics:      metrics,
		otelShutdown: shutdown,
	}, nil
}

func (a *App) Migrate() error {
	if a == nil || a.DB == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("Migrating route schema...")
	return db.AutoMigrateAll(a.DB)
}

func (a *App) Close(ctx context.Context) {
	if a == nil {
		return
	}
	if a.Metrics != nil && a.Cfg.MetricsFile != "" {
		a.Metrics.CollectDBStats(a.Log, a.DB)
		if err := a.Metrics.WriteTextfile(a.Cfg.MetricsFile); err != nil {
			a.Log.Warn("metrics textfile write failed", "path", a.Cfg.MetricsFile, "error", err)
		}
	}
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.Log.Warn("route cache close failed", "error", err)
		}
	}
	closeDB(a.DB)
	if a.otelShutdown != nil {
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}

func closeDB(theDB *gorm.DB) {
	if theDB == nil {
		return
	}
	if sqlDB, err := theDB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
