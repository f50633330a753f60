package services

import (
	"context"
	"testing"

	domain "github.com/yungbote/route-registry/internal/domain/routing"
	"github.com/yungbote/route-registry/internal/platform/logger"
)

func newLookupFixture(t *testing.T) (*serviceFixture, RouteLookupService) {
	t.Helper()
	f := newServiceFixture(t, 0)
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return f, NewRouteLookupService(f.store, f.cache, log, RouteLookupConfig{Metrics: f.metrics})
}

func TestResolveLiveRoute(t *testing.T) {
	f, lookup := newLookupFixture(t)
	ctx := context.Background()
	r, err := f.svc.Create(ctx, entity("1"), "/a")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	res, err := lookup.Resolve(ctx, "a/", "en")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Redirect || res.Route.ID != r.ID || res.Live.ID != r.ID {
		t.Fatalf("Resolve live: %+v", res)
	}
	if f.cache.entries["en:/a"] == nil {
		t.Fatalf("resolution not cached")
	}
}

func TestResolveHistoryRedirectsToLiveRoute(t *testing.T) {
	f, lookup := newLookupFixture(t)
	ctx := context.Background()
	e := entity("1")
	if _, err := f.svc.Create(ctx, e, "/a"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	live, err := f.svc.Update(ctx, e, "/b")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	res, err := lookup.Resolve(ctx, "/a", "en")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !res.Redirect || !res.Route.IsHistory || res.Live.ID != live.ID || res.Live.Path != "/b" {
		t.Fatalf("Resolve history: %+v", res)
	}
}

func TestResolveServesFromCache(t *testing.T) {
	f, lookup := newLookupFixture(t)
	ctx := context.Background()
	cached := &domain.Resolution{Route: &domain.Route{Path: "/cached", Locale: "en"}}
	cached.Live = cached.Route
	f.cache.entries["en:/cached"] = cached
	res, err := lookup.Resolve(ctx, "/cached", "en")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res != cached {
		t.Fatalf("expected cached resolution, got %+v", res)
	}
	if got := f.metrics.LookupCount("cache", "live"); got != 1 {
		t.Fatalf("cache hit metric: want=1 got=%v", got)
	}
}

func TestResolveMissIsNotFound(t *testing.T) {
	f, lookup := newLookupFixture(t)
	if _, err := lookup.Resolve(context.Background(), "/nowhere", "en"); !domain.IsCode(err, domain.CodeNotFound) {
		t.Fatalf("want not_found got=%v", err)
	}
	if got := f.metrics.LookupCount("store", "not_found"); got != 1 {
		t.Fatalf("not_found metric: want=1 got=%v", got)
	}
}

func TestResolveAfterUpdateIsNotStale(t *testing.T) {
	f, lookup := newLookupFixture(t)
	ctx := context.Background()
	e := entity("1")
	if _, err := f.svc.Create(ctx, e, "/a"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := lookup.Resolve(ctx, "/a", "en"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if _, err := f.svc.Update(ctx, e, "/b"); err != nil {
		t.Fatalf("Update: %v", err)
	}
	res, err := lookup.Resolve(ctx, "/a", "en")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !res.Redirect || res.Live.Path != "/b" {
		t.Fatalf("stale resolution served: %+v", res)
	}
}

func TestWarmCachesLiveRoutesOnly(t *testing.T) {
	f, lookup := newLookupFixture(t)
	ctx := context.Background()
	e := entity("1")
	if _, err := f.svc.Create(ctx, e, "/a"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.svc.Update(ctx, e, "/b"); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := f.svc.Create(ctx, entity("2"), "/c"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	f.cache.entries = map[string]*domain.Resolution{}

	n, err := lookup.Warm(ctx, "en")
	if err != nil {
		t.Fatalf("Warm: %v", err)
	}
	if n != 2 {
		t.Fatalf("warmed: want=2 got=%d", n)
	}
	if f.cache.entries["en:/b"] == nil || f.cache.entries["en:/c"] == nil {
		t.Fatalf("live routes missing from cache: %v", f.cache.entries)
	}
	if f.cache.entries["en:/a"] != nil {
		t.Fatalf("history route warmed")
	}
}
