package services

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/yungbote/route-registry/internal/data/repos"
	domain "github.com/yungbote/route-registry/internal/domain/routing"
	"github.com/yungbote/route-registry/internal/observability"
	"github.com/yungbote/route-registry/internal/platform/dbctx"
	"github.com/yungbote/route-registry/internal/platform/logger"
	"github.com/yungbote/route-registry/internal/routing"
)

type recordingCache struct {
	mu      sync.Mutex
	entries map[string]*domain.Resolution
	deleted []string
	gets    int
}

func newRecordingCache() *recordingCache {
	return &recordingCache{entries: map[string]*domain.Resolution{}}
}

func (c *recordingCache) Get(_ context.Context, locale, path string) (*domain.Resolution, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	return c.entries[locale+":"+path], nil
}

func (c *recordingCache) Set(_ context.Context, locale, path string, res *domain.Resolution) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[locale+":"+path] = res
	return nil
}

func (c *recordingCache) Delete(_ context.Context, locale string, paths ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range paths {
		delete(c.entries, locale+":"+p)
		c.deleted = append(c.deleted, locale+":"+p)
	}
	return nil
}

func (c *recordingCache) Close() error { return nil }

// racingRunner fails the first `failures` commits as if another writer had claimed the path.
type racingRunner struct {
	store    *repos.MemoryRouteStore
	failures int
	calls    int
	err      error
}

func (r *racingRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.calls++
	return r.store.InTx(ctx, func(dbc dbctx.Context) error {
		if err := fn(dbc); err != nil {
			return err
		}
		if r.failures > 0 {
			r.failures--
			if r.err != nil {
				return r.err
			}
			return domain.NewError(domain.CodePathTaken, "test.commit", "path claimed concurrently", nil)
		}
		return nil
	})
}

type serviceFixture struct {
	store    *repos.MemoryRouteStore
	runner   *racingRunner
	cache    *recordingCache
	recorder *tracetest.SpanRecorder
	metrics  *observability.Metrics
	svc      RouteService
}

func newServiceFixture(t *testing.T, failures int) *serviceFixture {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	store := repos.NewMemoryRouteStore()
	runner := &racingRunner{store: store, failures: failures}
	c := newRecordingCache()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	metrics := observability.NewMetrics()
	manager := routing.NewManager(store, routing.NewAutoIncrementResolver(store, 0), routing.NewSchemaGenerator(nil), log)
	svc := NewRouteService(runner, store, manager, c, log, RouteServiceConfig{
		RetryMaxTries:        3,
		RetryInitialInterval: time.Millisecond,
		TracerProvider:       tp,
		Metrics:              metrics,
	})
	return &serviceFixture{store: store, runner: runner, cache: c, recorder: sr, metrics: metrics, svc: svc}
}

func entity(id string) *domain.EntityRef {
	return &domain.EntityRef{Class: "page", ID: id, Locale: "en"}
}

func TestRouteServiceCreateCommitsAndBinds(t *testing.T) {
	f := newServiceFixture(t, 0)
	e := entity("1")
	r, err := f.svc.Create(context.Background(), e, "/About Us")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if r.Path != "/about-us" {
		t.Fatalf("path: want=/about-us got=%s", r.Path)
	}
	if e.CurrentRoute() != r {
		t.Fatalf("entity not bound to created route")
	}
	stored, err := f.store.FindByPath(dbctx.Context{Ctx: context.Background()}, "/about-us", "en")
	if err != nil || stored == nil || stored.ID != r.ID {
		t.Fatalf("stored route: got=%v err=%v", stored, err)
	}
}

func TestRouteServiceRetriesLostPathRace(t *testing.T) {
	f := newServiceFixture(t, 2)
	e := entity("1")
	r, err := f.svc.Create(context.Background(), e, "/a")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if f.runner.calls != 3 {
		t.Fatalf("attempts: want=3 got=%d", f.runner.calls)
	}
	if e.CurrentRoute() != r || r.Path != "/a" {
		t.Fatalf("entity binding: got=%v", e.CurrentRoute())
	}
	live, _ := f.store.ListLive(dbctx.Context{Ctx: context.Background()}, "en")
	if len(live) != 1 {
		t.Fatalf("live routes: want=1 got=%d", len(live))
	}
}

func TestRouteServiceGivesUpAfterMaxTries(t *testing.T) {
	f := newServiceFixture(t, 5)
	e := entity("1")
	_, err := f.svc.Create(context.Background(), e, "/a")
	if !domain.IsCode(err, domain.CodePathTaken) {
		t.Fatalf("want path_taken got=%v", err)
	}
	if f.runner.calls != 3 {
		t.Fatalf("attempts: want=3 got=%d", f.runner.calls)
	}
	if got := f.metrics.WriteCount("create", string(domain.CodePathTaken)); got != 1 {
		t.Fatalf("failed write metric: want=1 got=%v", got)
	}
	if e.CurrentRoute() != nil {
		t.Fatalf("entity kept an uncommitted route: %v", e.CurrentRoute())
	}
	live, _ := f.store.ListLive(dbctx.Context{Ctx: context.Background()}, "en")
	if len(live) != 0 {
		t.Fatalf("rolled back attempt left routes: %v", live)
	}

	spans := f.recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("spans: want=1 got=%d", len(spans))
	}
	if spans[0].Name() != "routes.create" || spans[0].Status().Code != codes.Error {
		t.Fatalf("span: name=%s status=%v", spans[0].Name(), spans[0].Status())
	}
}

func TestRouteServiceDoesNotRetryOtherFailures(t *testing.T) {
	f := newServiceFixture(t, 1)
	f.runner.err = domain.NewError(domain.CodeStoreFailure, "test.commit", "connection reset", nil)
	e := entity("1")
	_, err := f.svc.Create(context.Background(), e, "/a")
	if !domain.IsStoreFailure(err) {
		t.Fatalf("want store_failure got=%v", err)
	}
	if f.runner.calls != 1 {
		t.Fatalf("attempts: want=1 got=%d", f.runner.calls)
	}
	if e.CurrentRoute() != nil {
		t.Fatalf("entity kept an uncommitted route")
	}
}

func TestRouteServiceFailedUpdateRestoresBoundRoute(t *testing.T) {
	f := newServiceFixture(t, 0)
	ctx := context.Background()
	e := entity("1")
	a, err := f.svc.Create(ctx, e, "/a")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	f.runner.failures = 1
	f.runner.err = domain.NewError(domain.CodeStoreFailure, "test.commit", "connection reset", nil)
	if _, err := f.svc.Update(ctx, e, "/b"); !domain.IsStoreFailure(err) {
		t.Fatalf("Update: want store_failure got=%v", err)
	}
	if e.CurrentRoute() != a {
		t.Fatalf("binding not restored: got=%v", e.CurrentRoute())
	}
	if a.IsHistory || a.TargetID != nil || a.Path != "/a" {
		t.Fatalf("bound route kept uncommitted state: %+v", a)
	}

	b, err := f.svc.Update(ctx, e, "/b")
	if err != nil {
		t.Fatalf("Update retry: %v", err)
	}
	if !a.IsHistory || a.TargetID == nil || *a.TargetID != b.ID {
		t.Fatalf("superseded route not marked: %+v", a)
	}
}

func TestRouteServicePreconditionErrorsLeaveEntityUntouched(t *testing.T) {
	f := newServiceFixture(t, 0)
	e := entity("1")
	if _, err := f.svc.Update(context.Background(), e, "/a"); !domain.IsCode(err, domain.CodeNotYetRouted) {
		t.Fatalf("Update unrouted: want not_yet_routed got=%v", err)
	}
	first, err := f.svc.Create(context.Background(), e, "/a")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.svc.Create(context.Background(), e, "/b"); !domain.IsCode(err, domain.CodeAlreadyRouted) {
		t.Fatalf("Create routed: want already_routed got=%v", err)
	}
	if e.CurrentRoute() != first {
		t.Fatalf("binding changed on failed create")
	}
	if f.runner.calls != 3 {
		t.Fatalf("precondition failures should not retry: calls=%d", f.runner.calls)
	}
}

func TestRouteServiceUpdateInvalidatesAffectedPaths(t *testing.T) {
	f := newServiceFixture(t, 0)
	ctx := context.Background()
	e := entity("1")
	if _, err := f.svc.Create(ctx, e, "/a"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.svc.Update(ctx, e, "/b"); err != nil {
		t.Fatalf("Update b: %v", err)
	}
	f.cache.deleted = nil

	r, err := f.svc.Update(ctx, e, "/c")
	if err != nil {
		t.Fatalf("Update c: %v", err)
	}
	if r.Path != "/c" {
		t.Fatalf("path: want=/c got=%s", r.Path)
	}
	got := append([]string(nil), f.cache.deleted...)
	sort.Strings(got)
	want := []string{"en:/a", "en:/b", "en:/c"}
	if len(got) != len(want) {
		t.Fatalf("invalidated: want=%v got=%v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("invalidated: want=%v got=%v", want, got)
		}
	}

	hs, err := f.svc.History(ctx, r.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(hs) != 2 {
		t.Fatalf("histories: want=2 got=%d", len(hs))
	}
	for _, h := range hs {
		if !h.IsHistory || h.TargetID == nil || *h.TargetID != r.ID {
			t.Fatalf("history not pointing at live route: %+v", h)
		}
	}
}

func TestRouteServiceNoopUpdateSkipsInvalidation(t *testing.T) {
	f := newServiceFixture(t, 0)
	ctx := context.Background()
	e := entity("1")
	first, err := f.svc.Create(ctx, e, "/a")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	f.cache.deleted = nil
	r, err := f.svc.Update(ctx, e, "/a")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if r.ID != first.ID {
		t.Fatalf("noop update changed route")
	}
	if len(f.cache.deleted) != 0 {
		t.Fatalf("noop update invalidated %v", f.cache.deleted)
	}
}

func TestRouteServiceCreateOrUpdate(t *testing.T) {
	f := newServiceFixture(t, 0)
	ctx := context.Background()
	e := entity("1")
	if _, err := f.svc.CreateOrUpdate(ctx, e, "/a"); err != nil {
		t.Fatalf("CreateOrUpdate create: %v", err)
	}
	r, err := f.svc.CreateOrUpdate(ctx, e, "/b")
	if err != nil {
		t.Fatalf("CreateOrUpdate update: %v", err)
	}
	if r.Path != "/b" || e.CurrentRoute() != r {
		t.Fatalf("CreateOrUpdate: got=%v", r)
	}
	old, _ := f.store.FindByPath(dbctx.Context{Ctx: ctx}, "/a", "en")
	if old == nil || !old.IsHistory {
		t.Fatalf("/a should be a history route: %v", old)
	}
}

func TestRouteServiceSpanAttributes(t *testing.T) {
	f := newServiceFixture(t, 1)
	if _, err := f.svc.Create(context.Background(), entity("7"), "/x"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	spans := f.recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("spans: want=1 got=%d", len(spans))
	}
	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	if attrs["route.entity_id"] != "7" || attrs["route.path"] != "/x" || attrs["route.attempts"] != "2" {
		t.Fatalf("span attributes: %v", attrs)
	}
	if spans[0].Status().Code == codes.Error {
		t.Fatalf("successful create recorded as error")
	}
}
