package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/yungbote/route-registry/internal/domain/routing"
)

func SeedRoute(tb testing.TB, ctx context.Context, tx *gorm.DB, path, locale, class, entityID string) *domain.Route {
	tb.Helper()
	r := &domain.Route{
		ID:          uuid.New(),
		Path:        path,
		Locale:      locale,
		EntityClass: class,
		EntityID:    entityID,
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed route: %v", err)
	}
	return r
}

func SeedHistory(tb testing.TB, ctx context.Context, tx *gorm.DB, path, locale string, target *domain.Route) *domain.Route {
	tb.Helper()
	id := target.ID
	r := &domain.Route{
		ID:          uuid.New(),
		Path:        path,
		Locale:      locale,
		EntityClass: target.EntityClass,
		EntityID:    target.EntityID,
		IsHistory:   true,
		TargetID:    &id,
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed history route: %v", err)
	}
	return r
}
