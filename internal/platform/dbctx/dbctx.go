package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context bundles a request context with an optional GORM transaction.
// Stores that are not backed by GORM ignore Tx.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}
