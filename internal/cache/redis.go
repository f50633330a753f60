package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	domain "github.com/yungbote/route-registry/internal/domain/routing"
	"github.com/yungbote/route-registry/internal/platform/logger"
)

const (
	DefaultTTL    = 10 * time.Minute
	defaultPrefix = "routes"
)

type RedisOptions struct {
	Addr   string
	Prefix string
	TTL    time.Duration
}

type redisRouteCache struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisRouteCache(log *logger.Logger, opts RedisOptions) (RouteCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(opts.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis addr")
	}
	prefix := strings.TrimSpace(opts.Prefix)
	if prefix == "" {
		prefix = defaultPrefix
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisRouteCache{
		log:    log.With("service", "RedisRouteCache"),
		rdb:    rdb,
		prefix: prefix,
		ttl:    ttl,
	}, nil
}

func (c *redisRouteCache) key(locale, path string) string {
	return c.prefix + ":" + locale + ":" + path
}

func (c *redisRouteCache) Get(ctx context.Context, locale, path string) (*domain.Resolution, error) {
	raw, err := c.rdb.Get(ctx, c.key(locale, path)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var res domain.Resolution
	if err := json.Unmarshal(raw, &res); err != nil {
		// A bad entry is treated as a miss and dropped.
		c.log.Warn("dropping undecodable route cache entry", "path", path, "locale", locale, "error", err)
		_ = c.rdb.Del(ctx, c.key(locale, path)).Err()
		return nil, nil
	}
	return &res, nil
}

func (c *redisRouteCache) Set(ctx context.Context, locale, path string, res *domain.Resolution) error {
	if res == nil {
		return nil
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(locale, path), raw, c.ttl).Err()
}

func (c *redisRouteCache) Delete(ctx context.Context, locale string, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	keys := make([]string, 0, len(paths))
	for _, p := range paths {
		keys = append(keys, c.key(locale, p))
	}
	return c.rdb.Del(ctx, keys...).Err()
}

func (c *redisRouteCache) Close() error {
	return c.rdb.Close()
}
