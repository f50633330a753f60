package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/route-registry/internal/cache"
	"github.com/yungbote/route-registry/internal/data/repos"
	domain "github.com/yungbote/route-registry/internal/domain/routing"
	"github.com/yungbote/route-registry/internal/observability"
	"github.com/yungbote/route-registry/internal/platform/dbctx"
	"github.com/yungbote/route-registry/internal/platform/logger"
	"github.com/yungbote/route-registry/internal/routing"
)

const warmConcurrency = 8

type RouteLookupService interface {
	// Resolve maps a public path to the route registered there. History routes carry their
	// live target and Redirect=true.
	Resolve(ctx context.Context, path, locale string) (*domain.Resolution, error)
	// Warm loads every live route of a locale into the cache and reports how many were written.
	Warm(ctx context.Context, locale string) (int, error)
}

type RouteLookupConfig struct {
	TracerProvider trace.TracerProvider
	Metrics        *observability.Metrics
}

type routeLookupService struct {
	repo    repos.RouteRepo
	cache   cache.RouteCache
	log     *logger.Logger
	tracer  trace.Tracer
	metrics *observability.Metrics
}

func NewRouteLookupService(repo repos.RouteRepo, routeCache cache.RouteCache, log *logger.Logger, cfg RouteLookupConfig) RouteLookupService {
	if routeCache == nil {
		routeCache = cache.NewNoopRouteCache()
	}
	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &routeLookupService{
		repo:    repo,
		cache:   routeCache,
		log:     log.With("service", "RouteLookupService"),
		tracer:  tp.Tracer(tracerName),
		metrics: cfg.Metrics,
	}
}

func (s *routeLookupService) Resolve(ctx context.Context, path, locale string) (*domain.Resolution, error) {
	path = routing.NormalizePath(path)
	ctx, span := s.tracer.Start(ctx, "routes.resolve", trace.WithAttributes(
		attribute.String("route.path", path),
		attribute.String("route.locale", locale),
	))
	defer span.End()
	started := time.Now()

	res, source, err := s.resolve(ctx, path, locale)
	span.SetAttributes(attribute.Bool("route.cache_hit", source == "cache"))
	if err != nil {
		span.RecordError(err)
		result := "error"
		if domain.IsCode(err, domain.CodeNotFound) {
			result = "not_found"
		} else {
			span.SetStatus(codes.Error, err.Error())
		}
		s.metrics.ObserveLookup(source, result, time.Since(started))
		return nil, err
	}
	span.SetAttributes(attribute.Bool("route.redirect", res.Redirect))
	result := "live"
	if res.Redirect {
		result = "redirect"
	}
	s.metrics.ObserveLookup(source, result, time.Since(started))
	return res, nil
}

func (s *routeLookupService) resolve(ctx context.Context, path, locale string) (*domain.Resolution, string, error) {
	if cached, err := s.cache.Get(ctx, locale, path); err != nil {
		s.log.Warn("route cache read failed", "locale", locale, "path", path, "error", err)
	} else if cached != nil {
		return cached, "cache", nil
	}
	res, err := s.load(ctx, path, locale)
	return res, "store", err
}

func (s *routeLookupService) load(ctx context.Context, path, locale string) (*domain.Resolution, error) {
	dbc := dbctx.Context{Ctx: ctx}
	r, err := s.repo.FindByPath(dbc, path, locale)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, domain.NewError(domain.CodeNotFound, "routes.resolve", "no route at "+locale+":"+path, nil)
	}

	res := &domain.Resolution{Route: r, Live: r}
	if r.IsHistory {
		if r.TargetID == nil {
			return nil, domain.NewError(domain.CodeStoreFailure, "routes.resolve", "history route "+r.ID.String()+" has no target", nil)
		}
		target, err := s.repo.FindByID(dbc, *r.TargetID)
		if err != nil {
			return nil, err
		}
		if target == nil {
			return nil, domain.NewError(domain.CodeStoreFailure, "routes.resolve", "history route "+r.ID.String()+" points at a missing route", nil)
		}
		res.Live = target
		res.Redirect = true
	}

	if err := s.cache.Set(ctx, locale, path, res); err != nil {
		s.log.Warn("route cache write failed", "locale", locale, "path", path, "error", err)
	}
	return res, nil
}

func (s *routeLookupService) Warm(ctx context.Context, locale string) (int, error) {
	ctx, span := s.tracer.Start(ctx, "routes.warm", trace.WithAttributes(attribute.String("route.locale", locale)))
	defer span.End()

	live, err := s.repo.ListLive(dbctx.Context{Ctx: ctx}, locale)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(warmConcurrency)
	for _, r := range live {
		r := r
		g.Go(func() error {
			return s.cache.Set(gctx, r.Locale, r.Path, &domain.Resolution{Route: r, Live: r})
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, domain.Wrap(domain.CodeStoreFailure, "routes.warm", err)
	}
	span.SetAttributes(attribute.Int("route.warmed", len(live)))
	s.metrics.ObserveWarm(locale, len(live))
	s.log.Info("route cache warmed", "locale", locale, "routes", len(live))
	return len(live), nil
}
