package repos

import (
	"github.com/yungbote/route-registry/internal/data/repos/routes"
	domain "github.com/yungbote/route-registry/internal/domain/routing"
	"github.com/yungbote/route-registry/internal/platform/logger"
	"gorm.io/gorm"
)

type RouteRepo = routes.RouteRepo

type MemoryRouteStore = routes.MemoryStore

func NewRouteRepo(db *gorm.DB, baseLog *logger.Logger) RouteRepo {
	return routes.NewRouteRepo(db, baseLog)
}

func NewMemoryRouteStore() *MemoryRouteStore { return routes.NewMemoryStore() }

func NewTxRunner(db *gorm.DB) domain.TxRunner { return routes.NewGormTxRunner(db) }
