package routing

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/route-registry/internal/platform/dbctx"
)

// PathStore persists routes. Lookups return (nil, nil) when nothing matches.
// Within one dbctx.Context a store must observe its own writes.
type PathStore interface {
	// FindByPath returns the route at (path, locale), preferring the live one.
	FindByPath(dbc dbctx.Context, path, locale string) (*Route, error)
	FindByID(dbc dbctx.Context, id uuid.UUID) (*Route, error)
	// FindByEntity returns the live route of an entity in a locale.
	FindByEntity(dbc dbctx.Context, entityClass, entityID, locale string) (*Route, error)
	// FindHistories returns the history routes whose target is targetID.
	FindHistories(dbc dbctx.Context, targetID uuid.UUID) ([]*Route, error)
	// CreateNew returns an unsaved route with a fresh ID.
	CreateNew() *Route
	Save(dbc dbctx.Context, routes ...*Route) error
}

// TxRunner provides the transaction boundary around a create/update.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}
