package routing

import (
	"fmt"

	domain "github.com/yungbote/route-registry/internal/domain/routing"
	"github.com/yungbote/route-registry/internal/platform/dbctx"
)

// DefaultMaxConflictAttempts bounds the suffix loop of AutoIncrementResolver.
const DefaultMaxConflictAttempts = 1000

type ConflictResolver interface {
	Resolve(dbc dbctx.Context, candidate *domain.Route) (*domain.Route, error)
}

// AutoIncrementResolver appends -1, -2, ... to a taken path until a free one is found.
// A path held by the candidate's own entity is a match, not a conflict.
type AutoIncrementResolver struct {
	store       domain.PathStore
	maxAttempts int
}

func NewAutoIncrementResolver(store domain.PathStore, maxAttempts int) *AutoIncrementResolver {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxConflictAttempts
	}
	return &AutoIncrementResolver{store: store, maxAttempts: maxAttempts}
}

func (r *AutoIncrementResolver) Resolve(dbc dbctx.Context, candidate *domain.Route) (*domain.Route, error) {
	if candidate == nil {
		return nil, domain.NewError(domain.CodeInvalidArgument, "routing.resolve", "nil candidate", nil)
	}
	base := candidate.Path
	for i := 0; i <= r.maxAttempts; i++ {
		if i > 0 {
			candidate.Path = fmt.Sprintf("%s-%d", base, i)
		}
		existing, err := r.store.FindByPath(dbc, candidate.Path, candidate.Locale)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return candidate, nil
		}
		if existing.SameEntity(candidate) {
			return existing, nil
		}
	}
	candidate.Path = base
	return nil, domain.NewError(
		domain.CodeConflictExhausted,
		"routing.resolve",
		fmt.Sprintf("no free path for %q (%s) after %d suffixes", base, candidate.Locale, r.maxAttempts),
		nil,
	)
}
