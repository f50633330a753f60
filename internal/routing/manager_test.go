package routing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	domain "github.com/yungbote/route-registry/internal/domain/routing"
)

func TestCreateBindsRoute(t *testing.T) {
	f := newFixture(t)
	e := page("1")

	r := f.create(t, e, "a//b/")
	require.Same(t, r, e.CurrentRoute())
	require.Equal(t, "/a/b", r.Path)
	require.Equal(t, "page", r.EntityClass)
	require.Equal(t, "1", r.EntityID)
	require.Equal(t, "en", r.Locale)
	require.False(t, r.IsHistory)
	require.Equal(t, r.ID, f.stored(t, "/a/b").ID)
}

func TestCreateConflictSuffixes(t *testing.T) {
	f := newFixture(t)
	f.create(t, page("x"), "/a")
	require.Equal(t, "/a-1", f.create(t, page("y"), "/a").Path)
	require.Equal(t, "/a-2", f.create(t, page("z"), "/a").Path)
}

func TestCreateReusesOwnRoute(t *testing.T) {
	f := newFixture(t)
	first := f.create(t, page("x"), "/a")

	again := page("x")
	got := f.create(t, again, "/a")
	require.Equal(t, first.ID, got.ID)

	live, err := f.store.ListLive(f.dbc, "en")
	require.NoError(t, err)
	require.Len(t, live, 1)
}

func TestCreateOnRoutedEntityFails(t *testing.T) {
	f := newFixture(t)
	e := page("1")
	r := f.create(t, e, "/a")

	_, err := f.manager.Create(f.dbc, e, "/b")
	require.True(t, domain.IsCode(err, domain.CodeAlreadyRouted), "got %v", err)
	require.Same(t, r, e.CurrentRoute())
	got, _ := f.store.FindByPath(f.dbc, "/b", "en")
	require.Nil(t, got)
}

func TestUpdateOnUnroutedEntityFails(t *testing.T) {
	f := newFixture(t)
	e := page("1")

	_, err := f.manager.Update(f.dbc, e, "/a")
	require.True(t, domain.IsCode(err, domain.CodeNotYetRouted), "got %v", err)
	require.Nil(t, e.CurrentRoute())
}

func TestNilEntityIsInvalid(t *testing.T) {
	f := newFixture(t)
	_, err := f.manager.Create(f.dbc, nil, "/a")
	require.True(t, domain.IsCode(err, domain.CodeInvalidArgument))
	_, err = f.manager.Update(f.dbc, nil, "/a")
	require.True(t, domain.IsCode(err, domain.CodeInvalidArgument))
}

func TestUpdateSamePathIsNoop(t *testing.T) {
	f := newFixture(t)
	e := page("1")
	r := f.create(t, e, "/a")
	h := f.update(t, e, "/old")
	require.NotEqual(t, r.ID, h.ID)
	current := e.CurrentRoute()
	before := len(current.Histories)

	got := f.update(t, e, "/old/")
	require.Same(t, current, got)
	require.Len(t, got.Histories, before)

	hs, err := f.store.FindHistories(f.dbc, current.ID)
	require.NoError(t, err)
	require.Len(t, hs, 1)
}

func TestUpdateConvergingBackToCurrentPathIsNoop(t *testing.T) {
	f := newFixture(t)
	f.create(t, page("x"), "/a")
	e := page("y")
	r := f.create(t, e, "/a")
	require.Equal(t, "/a-1", r.Path)

	// "/a" is still held by x, so resolution lands on y's own "/a-1".
	got := f.update(t, e, "/a")
	require.Same(t, r, got)
	hs, err := f.store.FindHistories(f.dbc, r.ID)
	require.NoError(t, err)
	require.Empty(t, hs)
}

func TestUpdateCreatesHistory(t *testing.T) {
	f := newFixture(t)
	e := page("1")
	a := f.create(t, e, "/a")

	b := f.update(t, e, "/b")
	require.Same(t, b, e.CurrentRoute())
	require.NotEqual(t, a.ID, b.ID)
	require.True(t, a.IsHistory, "superseded route object is marked as history")
	require.NotNil(t, a.TargetID)
	require.Equal(t, b.ID, *a.TargetID)

	storedA := f.stored(t, "/a")
	require.True(t, storedA.IsHistory)
	require.Equal(t, b.ID, *storedA.TargetID)
	require.Len(t, b.Histories, 1)
	require.Same(t, a, b.Histories[0])

	require.False(t, f.stored(t, "/b").IsHistory)
}

func TestUpdateFlattensHistoryChain(t *testing.T) {
	f := newFixture(t)
	e := page("1")
	h1 := f.create(t, e, "/h1")
	h2 := f.update(t, e, "/h2")
	a := f.update(t, e, "/a")

	b := f.update(t, e, "/b")

	for _, id := range []uuid.UUID{h1.ID, h2.ID, a.ID} {
		got, err := f.store.FindByID(f.dbc, id)
		require.NoError(t, err)
		require.True(t, got.IsHistory, "%s should be history", got.Path)
		require.NotNil(t, got.TargetID)
		require.Equal(t, b.ID, *got.TargetID, "%s must point directly at the live route", got.Path)
	}
	hs, err := f.store.FindHistories(f.dbc, a.ID)
	require.NoError(t, err)
	require.Empty(t, hs)

	hs, err = f.store.FindHistories(f.dbc, b.ID)
	require.NoError(t, err)
	require.Len(t, hs, 3)
	require.Len(t, b.Histories, 3)
}

func TestUpdateResurrectsReusedPath(t *testing.T) {
	f := newFixture(t)
	e := page("1")
	orig := f.create(t, e, "/b")
	f.update(t, e, "/c")
	f.update(t, e, "/a")

	got := f.update(t, e, "/b")
	require.Equal(t, orig.ID, got.ID, "the old /b record is reused")
	require.False(t, got.IsHistory)
	require.Nil(t, got.TargetID)
	for _, h := range got.Histories {
		require.NotEqual(t, got.ID, h.ID, "resurrected route cannot be its own history")
	}

	stored := f.stored(t, "/b")
	require.False(t, stored.IsHistory)
	require.Nil(t, stored.TargetID)

	hs, err := f.store.FindHistories(f.dbc, got.ID)
	require.NoError(t, err)
	paths := []string{}
	for _, h := range hs {
		paths = append(paths, h.Path)
	}
	require.ElementsMatch(t, []string{"/a", "/c"}, paths)

	live, err := f.store.ListLive(f.dbc, "en")
	require.NoError(t, err)
	require.Len(t, live, 1)
}

func TestUpdateRejectsPathOfOtherEntityHistory(t *testing.T) {
	f := newFixture(t)
	x := page("x")
	f.create(t, x, "/a")
	f.update(t, x, "/b")

	y := page("y")
	f.create(t, y, "/c")
	got := f.update(t, y, "/a")
	require.Equal(t, "/a-1", got.Path)
}

func TestUpdateLocalesAreIndependent(t *testing.T) {
	f := newFixture(t)
	en := page("1")
	de := &domain.EntityRef{Class: "page", ID: "1", Locale: "de"}
	f.create(t, en, "/a")
	f.create(t, de, "/a")

	f.update(t, en, "/b")
	gotDe, err := f.store.FindByPath(f.dbc, "/a", "de")
	require.NoError(t, err)
	require.False(t, gotDe.IsHistory)
}

func TestUpdateFromReloadedEntityBoundToHistory(t *testing.T) {
	f := newFixture(t)
	x := page("x")
	f.create(t, x, "/a")
	b := f.update(t, x, "/b")

	reloaded := page("x")
	h := f.create(t, reloaded, "/a")
	require.True(t, h.IsHistory, "create reuses the entity's own history route")

	c := f.update(t, reloaded, "/c")
	require.Same(t, c, reloaded.CurrentRoute())
	require.False(t, c.IsHistory)

	live, err := f.store.ListLive(f.dbc, "en")
	require.NoError(t, err)
	require.Len(t, live, 1)
	require.Equal(t, "/c", live[0].Path)

	for _, path := range []string{"/a", "/b"} {
		got := f.stored(t, path)
		require.True(t, got.IsHistory, "%s should be history", path)
		require.Equal(t, c.ID, *got.TargetID)
	}
	require.True(t, h.IsHistory)
	require.Equal(t, c.ID, *h.TargetID)
	require.Equal(t, b.ID, f.stored(t, "/b").ID)
}

func TestUpdateFromReloadedEntityResurrectsBoundHistory(t *testing.T) {
	f := newFixture(t)
	x := page("x")
	f.create(t, x, "/a")
	f.update(t, x, "/b")

	reloaded := page("x")
	h := f.create(t, reloaded, "/a")

	got := f.update(t, reloaded, "/a")
	require.Same(t, h, got)
	require.False(t, got.IsHistory)
	require.Nil(t, got.TargetID)
	require.True(t, f.stored(t, "/b").IsHistory)

	live, err := f.store.ListLive(f.dbc, "en")
	require.NoError(t, err)
	require.Len(t, live, 1)
	require.Equal(t, "/a", live[0].Path)
}

func TestUpdateFromReloadedEntityToLivePathRebinds(t *testing.T) {
	f := newFixture(t)
	x := page("x")
	f.create(t, x, "/a")
	b := f.update(t, x, "/b")

	reloaded := page("x")
	f.create(t, reloaded, "/a")

	got := f.update(t, reloaded, "/b")
	require.Equal(t, b.ID, got.ID)
	require.Same(t, got, reloaded.CurrentRoute())
	hs, err := f.store.FindHistories(f.dbc, b.ID)
	require.NoError(t, err)
	require.Len(t, hs, 1)
}

func TestCreateFromReloadedEntityAtNewPathFails(t *testing.T) {
	f := newFixture(t)
	f.create(t, page("x"), "/a")

	reloaded := page("x")
	_, err := f.manager.Create(f.dbc, reloaded, "/c")
	require.True(t, domain.IsCode(err, domain.CodeAlreadyRouted), "got %v", err)
	require.Nil(t, reloaded.CurrentRoute())

	got, err := f.store.FindByPath(f.dbc, "/c", "en")
	require.NoError(t, err)
	require.Nil(t, got)
}
