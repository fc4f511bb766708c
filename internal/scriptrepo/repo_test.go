package scriptrepo

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/runger/hyperscripter/internal/historian"
	"github.com/runger/hyperscripter/internal/scriptname"
	"github.com/runger/hyperscripter/internal/tagselector"
)

func newTestRepo(t *testing.T) (*Repository, *historian.Historian) {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := historian.Open(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h := historian.New(db)
	repo, err := Open(ctx, db, h)
	require.NoError(t, err)
	return repo, h
}

func TestUpsert_CreatesAndReturnsExisting(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	name, err := scriptname.Named("foo")
	require.NoError(t, err)

	entry, err := repo.Upsert(ctx, name, func() *ScriptInfo {
		return NewScriptInfo(name, scriptname.Type("sh"), scriptname.TagSet{}, time.Unix(1, 0))
	})
	require.NoError(t, err)
	require.NotZero(t, entry.Info().ID)

	entry2, err := repo.Upsert(ctx, name, func() *ScriptInfo {
		t.Fatal("build should not be called for an existing entry")
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, entry.Info().ID, entry2.Info().ID)
}

func TestEntryUpdate_FlushesWriteEvent(t *testing.T) {
	repo, h := newTestRepo(t)
	ctx := context.Background()
	name, _ := scriptname.Named("foo")

	entry, err := repo.Upsert(ctx, name, func() *ScriptInfo {
		return NewScriptInfo(name, scriptname.Type("sh"), scriptname.TagSet{}, time.Unix(1, 0))
	})
	require.NoError(t, err)

	writeTime := time.Unix(2, 0)
	err = entry.Update(ctx, func(s *ScriptInfo) {
		s.MarkWrite(writeTime)
	})
	require.NoError(t, err)

	last, err := h.LastTimeOf(ctx, entry.Info().ID, historian.EventWrite)
	require.NoError(t, err)
	require.NotNil(t, last)
	require.True(t, last.Equal(writeTime))
}

func TestRemove_DeletesEntryAndEvents(t *testing.T) {
	repo, h := newTestRepo(t)
	ctx := context.Background()
	name, _ := scriptname.Named("foo")

	entry, err := repo.Upsert(ctx, name, func() *ScriptInfo {
		return NewScriptInfo(name, scriptname.Type("sh"), scriptname.TagSet{}, time.Unix(1, 0))
	})
	require.NoError(t, err)
	id := entry.Info().ID

	require.NoError(t, entry.Update(ctx, func(s *ScriptInfo) { s.MarkWrite(time.Unix(2, 0)) }))
	require.NoError(t, repo.Remove(ctx, name))

	require.Nil(t, repo.Get(name))
	last, err := h.LastTimeOf(ctx, id, historian.EventWrite)
	require.NoError(t, err)
	require.Nil(t, last)
}

func TestFilterByTag_HidesNonMatching(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	work, _ := scriptname.NewTag("work")

	foo, _ := scriptname.Named("foo")
	_, err := repo.Upsert(ctx, foo, func() *ScriptInfo {
		return NewScriptInfo(foo, scriptname.Type("sh"), scriptname.NewTagSet(work), time.Unix(1, 0))
	})
	require.NoError(t, err)

	bar, _ := scriptname.Named("bar")
	_, err = repo.Upsert(ctx, bar, func() *ScriptInfo {
		return NewScriptInfo(bar, scriptname.Type("sh"), scriptname.TagSet{}, time.Unix(1, 0))
	})
	require.NoError(t, err)

	var g tagselector.Group
	sel, err := tagselector.Parse("work")
	require.NoError(t, err)
	g.Push(sel)
	repo.FilterByTag(&g)

	require.NotNil(t, repo.Get(foo))
	require.Nil(t, repo.Get(bar))
	require.NotNil(t, repo.GetHidden(bar))
}

func TestOpen_RehydratesFromHistorian(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := historian.Open(ctx, path)
	require.NoError(t, err)
	defer db.Close()
	h := historian.New(db)

	repo, err := Open(ctx, db, h)
	require.NoError(t, err)
	foo, _ := scriptname.Named("foo")
	entry, err := repo.Upsert(ctx, foo, func() *ScriptInfo {
		return NewScriptInfo(foo, scriptname.Type("sh"), scriptname.TagSet{}, time.Unix(1, 0))
	})
	require.NoError(t, err)
	execTime := time.Unix(5, 0)
	require.NoError(t, entry.Update(ctx, func(s *ScriptInfo) {
		s.MarkExec(execTime, "content", "args", "", "")
	}))

	reopened, err := Open(ctx, db, h)
	require.NoError(t, err)
	got := reopened.Get(foo)
	require.NotNil(t, got)
	execT, ok := got.Info().ExecTime()
	require.True(t, ok)
	require.True(t, execT.Equal(execTime))
}
