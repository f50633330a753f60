package routing

import (
	"strings"

	domain "github.com/yungbote/route-registry/internal/domain/routing"
	"github.com/yungbote/route-registry/internal/platform/dbctx"
	"github.com/yungbote/route-registry/internal/platform/logger"
)

// Manager creates and updates the route of a routable entity.
type Manager struct {
	store     domain.PathStore
	resolver  ConflictResolver
	generator PathGenerator
	history   *HistoryManager
	log       *logger.Logger
}

func NewManager(store domain.PathStore, resolver ConflictResolver, generator PathGenerator, baseLog *logger.Logger) *Manager {
	if resolver == nil {
		resolver = NewAutoIncrementResolver(store, DefaultMaxConflictAttempts)
	}
	if generator == nil {
		generator = NewSchemaGenerator(nil)
	}
	return &Manager{
		store:     store,
		resolver:  resolver,
		generator: generator,
		history:   NewHistoryManager(),
		log:       baseLog.With("service", "RouteManager"),
	}
}

// Create binds a first route to entity. path, when non-empty, overrides the generated one.
func (m *Manager) Create(dbc dbctx.Context, entity domain.Routable, path string) (*domain.Route, error) {
	const op = "routing.create"
	if entity == nil {
		return nil, domain.NewError(domain.CodeInvalidArgument, op, "nil entity", nil)
	}
	if entity.CurrentRoute() != nil {
		return nil, domain.NewError(domain.CodeAlreadyRouted, op, "entity "+describe(entity)+" already has a route, use update", nil)
	}

	candidate, err := m.candidate(entity, path)
	if err != nil {
		return nil, err
	}
	route, err := m.resolver.Resolve(dbc, candidate)
	if err != nil {
		return nil, err
	}
	if route == candidate {
		live, err := m.store.FindByEntity(dbc, route.EntityClass, route.EntityID, route.Locale)
		if err != nil {
			return nil, err
		}
		if live != nil {
			return nil, domain.NewError(domain.CodeAlreadyRouted, op, "entity "+describe(entity)+" already has a live route at "+live.Path+", use update", nil)
		}
		if err := m.store.Save(dbc, route); err != nil {
			return nil, err
		}
	}

	m.log.Debug("route created", "entity", describe(entity), "path", route.Path, "locale", route.Locale, "reused", route != candidate)
	entity.SetRoute(route)
	return route, nil
}

// Update moves entity to a new path, keeping its previous paths as redirects.
func (m *Manager) Update(dbc dbctx.Context, entity domain.Routable, path string) (*domain.Route, error) {
	const op = "routing.update"
	if entity == nil {
		return nil, domain.NewError(domain.CodeInvalidArgument, op, "nil entity", nil)
	}
	current := entity.CurrentRoute()
	if current == nil {
		return nil, domain.NewError(domain.CodeNotYetRouted, op, "entity "+describe(entity)+" has no route, use create", nil)
	}

	// Work on stored copies so a failed run leaves the caller's route objects untouched.
	old, err := m.liveRoute(dbc, current)
	if err != nil {
		return nil, err
	}

	candidate, err := m.candidate(entity, path)
	if err != nil {
		return nil, err
	}
	if candidate.Path == old.Path {
		return m.bind(entity, current, old), nil
	}
	next, err := m.resolver.Resolve(dbc, candidate)
	if err != nil {
		return nil, err
	}
	if next.Path == old.Path || next.ID == old.ID {
		return m.bind(entity, current, old), nil
	}

	histories, err := m.store.FindHistories(dbc, old.ID)
	if err != nil {
		return nil, err
	}
	old.Histories = histories

	changed := m.history.Supersede(old, next)
	if err := m.store.Save(dbc, changed...); err != nil {
		return nil, err
	}

	m.log.Debug("route updated",
		"entity", describe(entity),
		"from", old.Path,
		"to", next.Path,
		"locale", next.Locale,
		"histories", len(next.Histories),
	)
	next = adopt(current, next, changed)
	entity.SetRoute(next)
	return next, nil
}

// liveRoute returns a stored copy of the live route that current stands for. An entity bound
// to one of its own history routes is moved from its actual live route.
func (m *Manager) liveRoute(dbc dbctx.Context, current *domain.Route) (*domain.Route, error) {
	old, err := m.store.FindByID(dbc, current.ID)
	if err != nil {
		return nil, err
	}
	if old == nil {
		return current.Clone(), nil
	}
	if !old.IsHistory {
		return old, nil
	}
	live, err := m.store.FindByEntity(dbc, old.EntityClass, old.EntityID, old.Locale)
	if err != nil {
		return nil, err
	}
	if live == nil && old.TargetID != nil {
		if live, err = m.store.FindByID(dbc, *old.TargetID); err != nil {
			return nil, err
		}
	}
	if live == nil || live.IsHistory {
		return old, nil
	}
	return live, nil
}

// bind leaves the entity on live, reusing the caller's object when it is the same route.
func (m *Manager) bind(entity domain.Routable, current, live *domain.Route) *domain.Route {
	if live.ID == current.ID {
		return current
	}
	entity.SetRoute(live)
	return live
}

// adopt copies the committed state of every written route onto the caller's current object and
// puts current back into the graph in place of its stored copy.
func adopt(current, next *domain.Route, changed []*domain.Route) *domain.Route {
	for _, r := range changed {
		if r.ID != current.ID || r == current {
			continue
		}
		*current = *r.Clone()
		if r == next {
			return current
		}
		for i, h := range next.Histories {
			if h.ID == current.ID {
				next.Histories[i] = current
			}
		}
		return next
	}
	return next
}

func (m *Manager) candidate(entity domain.Routable, path string) (*domain.Route, error) {
	gen, err := m.generator.Generate(entity, path)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(gen.Path) == "" {
		return nil, domain.NewError(domain.CodeInvalidArgument, "routing.generate", "empty path for "+describe(entity), nil)
	}
	route := m.store.CreateNew()
	route.Path = gen.Path
	route.Locale = entity.RouteLocale()
	route.EntityClass = gen.EntityClass
	route.EntityID = entity.RouteEntityID()
	return route, nil
}

func describe(entity domain.Routable) string {
	return entity.RouteEntityClass() + "#" + entity.RouteEntityID() + "@" + entity.RouteLocale()
}
