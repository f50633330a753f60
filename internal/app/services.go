package app

import (
	"github.com/yungbote/route-registry/internal/cache"
	"github.com/yungbote/route-registry/internal/observability"
	"github.com/yungbote/route-registry/internal/platform/logger"
	"github.com/yungbote/route-registry/internal/routing"
	"github.com/yungbote/route-registry/internal/services"
)

type Services struct {
	Manager *routing.Manager
	Routes  services.RouteService
	Lookup  services.RouteLookupService
}

func wireServices(log *logger.Logger, cfg Config, reposet Repos, routeCache cache.RouteCache, metrics *observability.Metrics) Services {
	log.Info("Wiring services...")
	resolver := routing.NewAutoIncrementResolver(reposet.Route, cfg.MaxConflictAttempts)
	generator := routing.NewSchemaGenerator(cfg.Schemas)
	manager := routing.NewManager(reposet.Route, resolver, generator, log)

	retryTries := cfg.RetryMaxTries
	if retryTries < 1 {
		retryTries = 1
	}
	return Services{
		Manager: manager,
		Routes: services.NewRouteService(reposet.Tx, reposet.Route, manager, routeCache, log, services.RouteServiceConfig{
			RetryMaxTries:        uint(retryTries),
			RetryInitialInterval: cfg.RetryInitialInterval,
			Metrics:              metrics,
		}),
		Lookup: services.NewRouteLookupService(reposet.Route, routeCache, log, services.RouteLookupConfig{
			Metrics: metrics,
		}),
	}
}
