package routes

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/yungbote/route-registry/internal/domain/routing"
	"github.com/yungbote/route-registry/internal/platform/dbctx"
	"github.com/yungbote/route-registry/internal/platform/logger"
)

// RouteRepo is the path store plus the listing queries used by lookups and tooling.
type RouteRepo interface {
	domain.PathStore
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*domain.Route, error)
	ListLive(dbc dbctx.Context, locale string) ([]*domain.Route, error)
}

type routeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRouteRepo(db *gorm.DB, baseLog *logger.Logger) RouteRepo {
	return &routeRepo{db: db, log: baseLog.With("repo", "RouteRepo")}
}

func (r *routeRepo) tx(dbc dbctx.Context) (*gorm.DB, context.Context) {
	ctx := dbc.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(ctx), ctx
}

func (r *routeRepo) CreateNew() *domain.Route {
	return &domain.Route{ID: uuid.New()}
}

func (r *routeRepo) FindByPath(dbc dbctx.Context, path, locale string) (*domain.Route, error) {
	t, _ := r.tx(dbc)
	var out []*domain.Route
	if err := t.
		Where("path = ? AND locale = ?", path, locale).
		Order("is_history ASC, created_at DESC").
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, MapStoreError("routes.find_by_path", err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *routeRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*domain.Route, error) {
	t, _ := r.tx(dbc)
	var out []*domain.Route
	if len(ids) == 0 {
		return out, nil
	}
	if err := t.Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, MapStoreError("routes.get_by_ids", err)
	}
	return out, nil
}

func (r *routeRepo) FindByID(dbc dbctx.Context, id uuid.UUID) (*domain.Route, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	rows, err := r.GetByIDs(dbc, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *routeRepo) FindByEntity(dbc dbctx.Context, entityClass, entityID, locale string) (*domain.Route, error) {
	t, _ := r.tx(dbc)
	var out []*domain.Route
	if err := t.
		Where("entity_class = ? AND entity_id = ? AND locale = ? AND is_history = ?", entityClass, entityID, locale, false).
		Order("created_at DESC").
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, MapStoreError("routes.find_by_entity", err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *routeRepo) FindHistories(dbc dbctx.Context, targetID uuid.UUID) ([]*domain.Route, error) {
	t, _ := r.tx(dbc)
	var out []*domain.Route
	if targetID == uuid.Nil {
		return out, nil
	}
	if err := t.
		Where("target_id = ? AND is_history = ?", targetID, true).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, MapStoreError("routes.find_histories", err)
	}
	return out, nil
}

func (r *routeRepo) ListLive(dbc dbctx.Context, locale string) ([]*domain.Route, error) {
	t, _ := r.tx(dbc)
	var out []*domain.Route
	q := t.Where("is_history = ?", false)
	if locale != "" {
		q = q.Where("locale = ?", locale)
	}
	if err := q.Order("path ASC").Find(&out).Error; err != nil {
		return nil, MapStoreError("routes.list_live", err)
	}
	return out, nil
}

// Save upserts routes in order. Without a caller transaction the batch gets its own.
func (r *routeRepo) Save(dbc dbctx.Context, routes ...*domain.Route) error {
	if len(routes) == 0 {
		return nil
	}
	write := func(t *gorm.DB) error {
		for _, route := range routes {
			if route == nil {
				continue
			}
			if route.ID == uuid.Nil {
				route.ID = uuid.New()
			}
			if err := t.Save(route).Error; err != nil {
				r.log.Warn("route save failed", "route_id", route.ID, "path", route.Path, "locale", route.Locale, "error", err)
				return MapStoreError("routes.save", err)
			}
		}
		return nil
	}
	t, _ := r.tx(dbc)
	if dbc.Tx != nil || len(routes) == 1 {
		return write(t)
	}
	return t.Transaction(write)
}
