package cache

import (
	"context"

	domain "github.com/yungbote/route-registry/internal/domain/routing"
)

// RouteCache holds path resolutions keyed by (locale, path). A miss is (nil, nil).
type RouteCache interface {
	Get(ctx context.Context, locale, path string) (*domain.Resolution, error)
	Set(ctx context.Context, locale, path string, res *domain.Resolution) error
	Delete(ctx context.Context, locale string, paths ...string) error
	Close() error
}

type noopRouteCache struct{}

func NewNoopRouteCache() RouteCache { return noopRouteCache{} }

func (noopRouteCache) Get(context.Context, string, string) (*domain.Resolution, error) {
	return nil, nil
}
func (noopRouteCache) Set(context.Context, string, string, *domain.Resolution) error { return nil }
func (noopRouteCache) Delete(context.Context, string, ...string) error               { return nil }
func (noopRouteCache) Close() error                                                  { return nil }
