package db

import (
	"fmt"

	"gorm.io/gorm"

	domain "github.com/yungbote/route-registry/internal/domain/routing"
)

// liveRouteIndex enforces a single live route per (path, locale). History rows may share a
// path with their own past.
const liveRouteIndex = `CREATE UNIQUE INDEX IF NOT EXISTS ux_route_live_path_locale ON route (path, locale) WHERE is_history = false`

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&domain.Route{},
	); err != nil {
		return fmt.Errorf("automigrate route: %w", err)
	}
	if err := db.Exec(liveRouteIndex).Error; err != nil {
		return fmt.Errorf("create live route index: %w", err)
	}
	return nil
}
