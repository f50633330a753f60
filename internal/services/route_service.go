package services

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/route-registry/internal/cache"
	domain "github.com/yungbote/route-registry/internal/domain/routing"
	"github.com/yungbote/route-registry/internal/observability"
	"github.com/yungbote/route-registry/internal/platform/ctxutil"
	"github.com/yungbote/route-registry/internal/platform/dbctx"
	"github.com/yungbote/route-registry/internal/platform/logger"
	"github.com/yungbote/route-registry/internal/routing"
)

const tracerName = "github.com/yungbote/route-registry/internal/services"

type RouteService interface {
	Create(ctx context.Context, entity domain.Routable, path string) (*domain.Route, error)
	Update(ctx context.Context, entity domain.Routable, path string) (*domain.Route, error)
	// CreateOrUpdate creates the first route of an unrouted entity and updates it otherwise.
	CreateOrUpdate(ctx context.Context, entity domain.Routable, path string) (*domain.Route, error)
	History(ctx context.Context, routeID uuid.UUID) ([]*domain.Route, error)
}

type RouteServiceConfig struct {
	// RetryMaxTries bounds attempts when a concurrent writer claims the path first.
	RetryMaxTries        uint
	RetryInitialInterval time.Duration
	TracerProvider       trace.TracerProvider
	Metrics              *observability.Metrics
}

type routeService struct {
	runner   domain.TxRunner
	store    domain.PathStore
	manager  *routing.Manager
	cache    cache.RouteCache
	log      *logger.Logger
	tracer   trace.Tracer
	metrics  *observability.Metrics
	maxTries uint
	interval time.Duration
}

func NewRouteService(runner domain.TxRunner, store domain.PathStore, manager *routing.Manager, routeCache cache.RouteCache, log *logger.Logger, cfg RouteServiceConfig) RouteService {
	if routeCache == nil {
		routeCache = cache.NewNoopRouteCache()
	}
	if cfg.RetryMaxTries == 0 {
		cfg.RetryMaxTries = 3
	}
	if cfg.RetryInitialInterval <= 0 {
		cfg.RetryInitialInterval = 50 * time.Millisecond
	}
	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &routeService{
		runner:   runner,
		store:    store,
		manager:  manager,
		cache:    routeCache,
		log:      log.With("service", "RouteService"),
		tracer:   tp.Tracer(tracerName),
		metrics:  cfg.Metrics,
		maxTries: cfg.RetryMaxTries,
		interval: cfg.RetryInitialInterval,
	}
}

func (s *routeService) Create(ctx context.Context, entity domain.Routable, path string) (*domain.Route, error) {
	return s.run(ctx, "create", entity, path, s.manager.Create)
}

func (s *routeService) Update(ctx context.Context, entity domain.Routable, path string) (*domain.Route, error) {
	return s.run(ctx, "update", entity, path, s.manager.Update)
}

func (s *routeService) CreateOrUpdate(ctx context.Context, entity domain.Routable, path string) (*domain.Route, error) {
	if entity != nil && entity.CurrentRoute() != nil {
		return s.Update(ctx, entity, path)
	}
	return s.Create(ctx, entity, path)
}

func (s *routeService) History(ctx context.Context, routeID uuid.UUID) ([]*domain.Route, error) {
	ctx, span := s.tracer.Start(ctx, "routes.history", trace.WithAttributes(attribute.String("route.id", routeID.String())))
	defer span.End()
	hs, err := s.store.FindHistories(dbctx.Context{Ctx: ctx}, routeID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return hs, nil
}

type managerOp func(dbc dbctx.Context, entity domain.Routable, path string) (*domain.Route, error)

func (s *routeService) run(ctx context.Context, name string, entity domain.Routable, path string, op managerOp) (*domain.Route, error) {
	ctx, span := s.tracer.Start(ctx, "routes."+name)
	defer span.End()
	started := time.Now()
	log := s.log.With(ctxutil.LogFields(ctx)...)
	if entity != nil {
		span.SetAttributes(
			attribute.String("route.entity_class", entity.RouteEntityClass()),
			attribute.String("route.entity_id", entity.RouteEntityID()),
			attribute.String("route.locale", entity.RouteLocale()),
		)
	}

	// The manager writes committed state onto the bound route object, so keep a copy to roll
	// it back when the transaction fails.
	var prev, before *domain.Route
	if entity != nil {
		prev = entity.CurrentRoute()
		before = prev.Clone()
	}

	attempt := 0
	operation := func() (*domain.Route, error) {
		attempt++
		var out *domain.Route
		err := s.runner.InTx(ctx, func(dbc dbctx.Context) error {
			r, err := op(dbc, entity, path)
			if err != nil {
				return err
			}
			out = r
			return nil
		})
		if err != nil {
			// The transaction rolled back; the entity must not keep a route that was never committed.
			if prev != nil {
				*prev = *before.Clone()
			}
			if entity != nil && entity.CurrentRoute() != prev {
				entity.SetRoute(prev)
			}
			if domain.IsCode(err, domain.CodePathTaken) {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		return out, nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.interval
	b.MaxInterval = 20 * s.interval
	route, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(s.maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn("route write lost a path race, retrying", "op", name, "attempt", attempt, "next", next, "error", err)
		}),
	)
	if err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Err
		}
		span.SetAttributes(attribute.Int("route.attempts", attempt))
		s.metrics.ObserveWrite(name, string(domain.CodeOf(err)), attempt, time.Since(started))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Warn("route "+name+" failed", "attempts", attempt, "code", string(domain.CodeOf(err)), "error", err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("route.path", route.Path),
		attribute.Int("route.attempts", attempt),
		attribute.Bool("route.changed", before == nil || before.ID != route.ID || before.IsHistory != route.IsHistory),
	)
	s.metrics.ObserveWrite(name, "ok", attempt, time.Since(started))
	log.Info("route "+name+" committed", "path", route.Path, "locale", route.Locale, "route_id", route.ID, "attempts", attempt)
	s.invalidate(ctx, log, before, route)
	return route, nil
}

// invalidate evicts every cached resolution the write may have changed: the new path, the
// superseded path and every history now redirecting to the new route.
func (s *routeService) invalidate(ctx context.Context, log *logger.Logger, prev, route *domain.Route) {
	if route == nil || (prev != nil && prev.ID == route.ID && prev.Path == route.Path && !prev.IsHistory) {
		return
	}
	seen := map[string]struct{}{}
	paths := make([]string, 0, len(route.Histories)+2)
	add := func(p string) {
		if _, ok := seen[p]; ok || p == "" {
			return
		}
		seen[p] = struct{}{}
		paths = append(paths, p)
	}
	add(route.Path)
	if prev != nil {
		add(prev.Path)
	}
	for _, h := range route.Histories {
		add(h.Path)
	}
	if err := s.cache.Delete(ctx, route.Locale, paths...); err != nil {
		log.Warn("route cache invalidation failed", "locale", route.Locale, "paths", paths, "error", err)
	}
}
