package routes

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domain "github.com/yungbote/route-registry/internal/domain/routing"
)

// MapStoreError maps driver failures onto route error codes. Unique violations on the live
// (path, locale) index become CodePathTaken, everything else CodeStoreFailure.
func MapStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	var rErr *domain.Error
	if errors.As(err, &rErr) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return domain.Wrap(domain.CodePathTaken, op, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domain.Wrap(domain.CodeStoreFailure, op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.TrimSpace(pgErr.Code) == "23505" {
		return domain.Wrap(domain.CodePathTaken, op, err) // unique_violation
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "unique constraint failed") || strings.Contains(msg, "duplicate key") {
		return domain.Wrap(domain.CodePathTaken, op, err)
	}
	return domain.Wrap(domain.CodeStoreFailure, op, err)
}
