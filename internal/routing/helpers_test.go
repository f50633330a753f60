package routing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/route-registry/internal/data/repos/routes"
	domain "github.com/yungbote/route-registry/internal/domain/routing"
	"github.com/yungbote/route-registry/internal/platform/dbctx"
	"github.com/yungbote/route-registry/internal/platform/logger"
)

type fixture struct {
	store   *routes.MemoryStore
	manager *Manager
	dbc     dbctx.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log, err := logger.New("test")
	require.NoError(t, err)
	store := routes.NewMemoryStore()
	return &fixture{
		store:   store,
		manager: NewManager(store, NewAutoIncrementResolver(store, 0), NewSchemaGenerator(nil), log),
		dbc:     dbctx.Context{Ctx: context.Background()},
	}
}

func page(id string) *domain.EntityRef {
	return &domain.EntityRef{Class: "page", ID: id, Locale: "en"}
}

func (f *fixture) create(t *testing.T, e domain.Routable, path string) *domain.Route {
	t.Helper()
	r, err := f.manager.Create(f.dbc, e, path)
	require.NoError(t, err)
	return r
}

func (f *fixture) update(t *testing.T, e domain.Routable, path string) *domain.Route {
	t.Helper()
	r, err := f.manager.Update(f.dbc, e, path)
	require.NoError(t, err)
	return r
}

func (f *fixture) stored(t *testing.T, path string) *domain.Route {
	t.Helper()
	r, err := f.store.FindByPath(f.dbc, path, "en")
	require.NoError(t, err)
	require.NotNil(t, r, "no route at %s", path)
	return r
}
