package routes

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	domain "github.com/yungbote/route-registry/internal/domain/routing"
	"github.com/yungbote/route-registry/internal/platform/dbctx"
)

type pathKey struct {
	path   string
	locale string
}

type memoryState struct {
	routes    map[uuid.UUID]domain.Route
	byPath    map[pathKey]map[uuid.UUID]struct{}
	histories map[uuid.UUID]map[uuid.UUID]struct{}
}

func newMemoryState() memoryState {
	return memoryState{
		routes:    map[uuid.UUID]domain.Route{},
		byPath:    map[pathKey]map[uuid.UUID]struct{}{},
		histories: map[uuid.UUID]map[uuid.UUID]struct{}{},
	}
}

func (s memoryState) clone() memoryState {
	out := newMemoryState()
	for id, r := range s.routes {
		out.routes[id] = r
	}
	for k, ids := range s.byPath {
		out.byPath[k] = copySet(ids)
	}
	for k, ids := range s.histories {
		out.histories[k] = copySet(ids)
	}
	return out
}

func copySet(in map[uuid.UUID]struct{}) map[uuid.UUID]struct{} {
	out := make(map[uuid.UUID]struct{}, len(in))
	for id := range in {
		out[id] = struct{}{}
	}
	return out
}

// MemoryStore is a RouteRepo kept in process memory. Routes are stored by value keyed by ID,
// with a (path, locale) index and a target -> histories reverse index. Callers always get
// copies, so mutations only become visible through Save. Transactions are serialized and
// roll back by restoring a snapshot.
type MemoryStore struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	st   memoryState
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{st: newMemoryState(), now: time.Now}
}

func (s *MemoryStore) CreateNew() *domain.Route {
	return &domain.Route{ID: uuid.New()}
}

func (s *MemoryStore) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.st.clone()
	s.mu.RUnlock()

	if err := fn(dbctx.Context{Ctx: ctx}); err != nil {
		s.mu.Lock()
		s.st = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *MemoryStore) FindByPath(dbc dbctx.Context, path, locale string) (*domain.Route, error) {
	if err := ctxErr(dbc); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *domain.Route
	for id := range s.st.byPath[pathKey{path: path, locale: locale}] {
		r := s.st.routes[id]
		if best == nil || preferRoute(&r, best) {
			best = r.Clone()
		}
	}
	return best, nil
}

// preferRoute orders candidates at one path: live first, then newest, then by ID.
func preferRoute(a, b *domain.Route) bool {
	if a.IsHistory != b.IsHistory {
		return !a.IsHistory
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}

func (s *MemoryStore) FindByID(dbc dbctx.Context, id uuid.UUID) (*domain.Route, error) {
	if err := ctxErr(dbc); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.st.routes[id]
	if !ok {
		return nil, nil
	}
	return r.Clone(), nil
}

func (s *MemoryStore) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*domain.Route, error) {
	out := make([]*domain.Route, 0, len(ids))
	for _, id := range ids {
		r, err := s.FindByID(dbc, id)
		if err != nil {
			return nil, err
		}
		if r != nil {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemoryStore) FindByEntity(dbc dbctx.Context, entityClass, entityID, locale string) (*domain.Route, error) {
	if err := ctxErr(dbc); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *domain.Route
	for _, r := range s.st.routes {
		if r.IsHistory || r.EntityClass != entityClass || r.EntityID != entityID || r.Locale != locale {
			continue
		}
		if best == nil || preferRoute(&r, best) {
			best = r.Clone()
		}
	}
	return best, nil
}

func (s *MemoryStore) FindHistories(dbc dbctx.Context, targetID uuid.UUID) ([]*domain.Route, error) {
	if err := ctxErr(dbc); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*domain.Route{}
	for id := range s.st.histories[targetID] {
		r := s.st.routes[id]
		out = append(out, r.Clone())
	}
	sortRoutes(out)
	return out, nil
}

func (s *MemoryStore) ListLive(dbc dbctx.Context, locale string) ([]*domain.Route, error) {
	if err := ctxErr(dbc); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*domain.Route{}
	for _, r := range s.st.routes {
		if r.IsHistory || (locale != "" && r.Locale != locale) {
			continue
		}
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Locale < out[j].Locale
	})
	return out, nil
}

// Save writes routes in order. A live route colliding with another live route at the same
// (path, locale) fails with CodePathTaken and nothing from the batch is applied.
func (s *MemoryStore) Save(dbc dbctx.Context, routes ...*domain.Route) error {
	if err := ctxErr(dbc); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.st.clone()
	now := s.now()
	for _, route := range routes {
		if route == nil {
			continue
		}
		if route.ID == uuid.Nil {
			route.ID = uuid.New()
		}
		if route.CreatedAt.IsZero() {
			route.CreatedAt = now
		}
		route.UpdatedAt = now
		if err := next.put(*route); err != nil {
			return err
		}
	}
	s.st = next
	return nil
}

func (st memoryState) put(r domain.Route) error {
	key := pathKey{path: r.Path, locale: r.Locale}
	if !r.IsHistory {
		for id := range st.byPath[key] {
			if other := st.routes[id]; id != r.ID && !other.IsHistory {
				return domain.NewError(domain.CodePathTaken, "routes.save", "live route already exists at "+r.Path+" ("+r.Locale+")", nil)
			}
		}
	}

	if prev, ok := st.routes[r.ID]; ok {
		prevKey := pathKey{path: prev.Path, locale: prev.Locale}
		delete(st.byPath[prevKey], r.ID)
		if len(st.byPath[prevKey]) == 0 {
			delete(st.byPath, prevKey)
		}
		if prev.TargetID != nil {
			delete(st.histories[*prev.TargetID], r.ID)
			if len(st.histories[*prev.TargetID]) == 0 {
				delete(st.histories, *prev.TargetID)
			}
		}
	}

	r.Histories = nil
	if r.TargetID != nil {
		id := *r.TargetID
		r.TargetID = &id
	}
	st.routes[r.ID] = r
	if st.byPath[key] == nil {
		st.byPath[key] = map[uuid.UUID]struct{}{}
	}
	st.byPath[key][r.ID] = struct{}{}
	if r.IsHistory && r.TargetID != nil {
		if st.histories[*r.TargetID] == nil {
			st.histories[*r.TargetID] = map[uuid.UUID]struct{}{}
		}
		st.histories[*r.TargetID][r.ID] = struct{}{}
	}
	return nil
}

func sortRoutes(rs []*domain.Route) {
	sort.Slice(rs, func(i, j int) bool {
		if !rs[i].CreatedAt.Equal(rs[j].CreatedAt) {
			return rs[i].CreatedAt.Before(rs[j].CreatedAt)
		}
		return rs[i].ID.String() < rs[j].ID.String()
	})
}

func ctxErr(dbc dbctx.Context) error {
	if dbc.Ctx == nil {
		return nil
	}
	if err := dbc.Ctx.Err(); err != nil {
		return domain.Wrap(domain.CodeStoreFailure, "routes.memory", err)
	}
	return nil
}
