package app

import (
	"time"

	"github.com/yungbote/route-registry/internal/cache"
	"github.com/yungbote/route-registry/internal/data/db"
	"github.com/yungbote/route-registry/internal/observability"
	"github.com/yungbote/route-registry/internal/platform/envutil"
	"github.com/yungbote/route-registry/internal/platform/logger"
	"github.com/yungbote/route-registry/internal/routing"
)

type Config struct {
	Env     string
	Version string

	DB db.Options

	// RedisAddr enables the lookup cache. Empty runs without one.
	RedisAddr   string
	CachePrefix string
	CacheTTL    time.Duration

	MaxConflictAttempts  int
	RetryMaxTries        int
	RetryInitialInterval time.Duration
	// Schemas maps an entity class to its path schema, e.g. "article" -> "/blog/{title}".
	Schemas     map[string]string
	SchemasFile string

	MetricsFile string
	Otel        observability.OtelConfig
}

func LoadConfig(log *logger.Logger) Config {
	env := envutil.String("APP_ENV", "development", log)
	version := envutil.String("APP_VERSION", "dev", log)
	return Config{
		Env:     env,
		Version: version,
		DB: db.Options{
			Driver:     envutil.String("ROUTES_DB_DRIVER", db.DriverPostgres, log),
			DSN:        envutil.String("ROUTES_DB_DSN", "", log),
			Host:       envutil.String("POSTGRES_HOST", "localhost", log),
			Port:       envutil.String("POSTGRES_PORT", "5432", log),
			User:       envutil.String("POSTGRES_USER", "postgres", log),
			Password:   envutil.String("POSTGRES_PASSWORD", "", log),
			Name:       envutil.String("POSTGRES_NAME", "routes", log),
			SQLitePath: envutil.String("ROUTES_SQLITE_PATH", "", log),
		},
		RedisAddr:            envutil.String("REDIS_ADDR", "", log),
		CachePrefix:          envutil.String("ROUTES_CACHE_PREFIX", "routes", log),
		CacheTTL:             envutil.Duration("ROUTES_CACHE_TTL", cache.DefaultTTL, log),
		MaxConflictAttempts:  envutil.Int("ROUTES_MAX_CONFLICT_ATTEMPTS", routing.DefaultMaxConflictAttempts, log),
		RetryMaxTries:        envutil.Int("ROUTES_RETRY_MAX_TRIES", 3, log),
		RetryInitialInterval: envutil.Duration("ROUTES_RETRY_INITIAL_INTERVAL", 50*time.Millisecond, log),
		Schemas:              envutil.Map("ROUTES_SCHEMAS", log),
		SchemasFile:          envutil.String("ROUTES_SCHEMAS_FILE", "", log),
		MetricsFile:          envutil.String("ROUTES_METRICS_FILE", "", log),
		Otel: observability.OtelConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false, log),
			ServiceName: envutil.String("OTEL_SERVICE_NAME", "route-registry", log),
			Environment: env,
			Version:     version,
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", "", log),
			Headers:     envutil.Map("OTEL_EXPORTER_OTLP_HEADERS", log),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false, log),
			SampleRatio: envutil.Float("OTEL_SAMPLER_RATIO", 0.1, log),
		},
	}
}
