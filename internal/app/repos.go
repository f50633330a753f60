package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/route-registry/internal/data/repos"
	domain "github.com/yungbote/route-registry/internal/domain/routing"
	"github.com/yungbote/route-registry/internal/platform/logger"
)

type Repos struct {
	Route repos.RouteRepo
	Tx    domain.TxRunner
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Route: repos.NewRouteRepo(db, log),
		Tx:    repos.NewTxRunner(db),
	}
}
