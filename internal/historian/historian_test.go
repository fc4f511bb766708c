package historian

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestHistorian(t *testing.T) (*Historian, *sql.DB) {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.ExecContext(ctx, `INSERT INTO script_infos (id, name, category) VALUES (1, 'foo', 'sh')`)
	require.NoError(t, err)
	return New(db), db
}

func TestRecord_DedupsExecContent(t *testing.T) {
	h, _ := newTestHistorian(t)
	ctx := context.Background()
	t0 := time.Unix(1000, 0)

	e1, err := h.Record(ctx, Event{ScriptID: 1, Type: EventExec, Time: t0, Exec: ExecData{Content: "X", Args: "1"}})
	require.NoError(t, err)
	e2, err := h.Record(ctx, Event{ScriptID: 1, Type: EventExec, Time: t0.Add(time.Second), Exec: ExecData{Content: "X", Args: "2"}})
	require.NoError(t, err)

	var c1, c2 sql.NullString
	require.NoError(t, h.db.QueryRowContext(ctx, `SELECT content FROM events WHERE id = ?`, e1).Scan(&c1))
	require.NoError(t, h.db.QueryRowContext(ctx, `SELECT content FROM events WHERE id = ?`, e2).Scan(&c2))
	require.True(t, c1.Valid)
	require.Equal(t, "X", c1.String)
	require.False(t, c2.Valid)

	args, err := h.LastArgs(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "2", *args)
}

func TestRecord_ExecDoneSuppressedAfterIgnore(t *testing.T) {
	h, _ := newTestHistorian(t)
	ctx := context.Background()
	t0 := time.Unix(1000, 0)

	e1, err := h.Record(ctx, Event{ScriptID: 1, Type: EventExec, Time: t0, Exec: ExecData{Content: "X", Args: "1"}})
	require.NoError(t, err)

	_, err = h.IgnoreArgsByID(ctx, e1)
	require.NoError(t, err)

	id, err := h.Record(ctx, Event{ScriptID: 1, Type: EventExecDone, Time: t0.Add(time.Second), ExecDone: ExecDoneData{Code: 0, MainEventID: e1}})
	require.NoError(t, err)
	require.Equal(t, int64(0), id)

	var count int
	require.NoError(t, h.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE type = ?`, string(EventExecDone)).Scan(&count))
	require.Equal(t, 0, count)
}

func TestAmendArgsByID_UnignoresAndReplaces(t *testing.T) {
	h, _ := newTestHistorian(t)
	ctx := context.Background()
	t0 := time.Unix(1000, 0)

	e1, err := h.Record(ctx, Event{ScriptID: 1, Type: EventExec, Time: t0, Exec: ExecData{Args: "old"}})
	require.NoError(t, err)
	_, err = h.IgnoreArgsByID(ctx, e1)
	require.NoError(t, err)

	require.NoError(t, h.AmendArgsByID(ctx, e1, "new"))

	var ignored bool
	var args string
	require.NoError(t, h.db.QueryRowContext(ctx, `SELECT ignored, args FROM events WHERE id = ?`, e1).Scan(&ignored, &args))
	require.False(t, ignored)
	require.Equal(t, "new", args)
}

func TestLastTimeOf_MaxNonIgnored(t *testing.T) {
	h, _ := newTestHistorian(t)
	ctx := context.Background()
	t0 := time.Unix(1000, 0)
	t1 := time.Unix(2000, 0)

	_, err := h.Record(ctx, Event{ScriptID: 1, Type: EventExec, Time: t0, Exec: ExecData{Args: "a"}})
	require.NoError(t, err)
	_, err = h.Record(ctx, Event{ScriptID: 1, Type: EventExec, Time: t1, Exec: ExecData{Args: "b"}})
	require.NoError(t, err)

	last, err := h.LastTimeOf(ctx, 1, EventExec)
	require.NoError(t, err)
	require.True(t, last.Equal(t1))
}

func TestTidy_KeepsNewestPerArgs(t *testing.T) {
	h, _ := newTestHistorian(t)
	ctx := context.Background()

	_, err := h.Record(ctx, Event{ScriptID: 1, Type: EventExec, Time: time.Unix(1, 0), Exec: ExecData{Args: "x"}})
	require.NoError(t, err)
	_, err = h.Record(ctx, Event{ScriptID: 1, Type: EventExec, Time: time.Unix(2, 0), Exec: ExecData{Args: "y"}})
	require.NoError(t, err)
	_, err = h.Record(ctx, Event{ScriptID: 1, Type: EventExec, Time: time.Unix(3, 0), Exec: ExecData{Args: "x"}})
	require.NoError(t, err)

	require.NoError(t, h.Tidy(ctx, 1))

	var count int
	require.NoError(t, h.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE script_id = 1 AND type = ?`, string(EventExec)).Scan(&count))
	require.Equal(t, 2, count)
}

func TestIgnoreArgsByID_NoOpOnZero(t *testing.T) {
	h, _ := newTestHistorian(t)
	ctx := context.Background()
	res, err := h.IgnoreArgsByID(ctx, 0)
	require.NoError(t, err)
	require.Nil(t, res)
}

func TestPreviousArgs_ScopesToDir(t *testing.T) {
	h, _ := newTestHistorian(t)
	ctx := context.Background()

	_, err := h.Record(ctx, Event{
		ScriptID: 1, Type: EventExec, Time: time.Unix(1, 0),
		Exec: ExecData{Args: "from-home", Cwd: "/home/u", Envs: `["A=1"]`},
	})
	require.NoError(t, err)
	_, err = h.Record(ctx, Event{
		ScriptID: 1, Type: EventExec, Time: time.Unix(2, 0),
		Exec: ExecData{Args: "from-tmp", Cwd: "/tmp", Envs: `["A=2"]`},
	})
	require.NoError(t, err)

	args, envs, ok, err := h.PreviousArgs(ctx, 1, nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "from-tmp", args)
	require.Equal(t, `["A=2"]`, envs)

	home := "/home/u"
	args, envs, ok, err = h.PreviousArgs(ctx, 1, &home)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "from-home", args)
	require.Equal(t, `["A=1"]`, envs)

	missing := "/nowhere"
	_, _, ok, err = h.PreviousArgs(ctx, 1, &missing)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRemove_DeletesAllEvents(t *testing.T) {
	h, _ := newTestHistorian(t)
	ctx := context.Background()
	_, err := h.Record(ctx, Event{ScriptID: 1, Type: EventRead, Time: time.Unix(1, 0)})
	require.NoError(t, err)

	require.NoError(t, h.Remove(ctx, 1))

	var count int
	require.NoError(t, h.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE script_id = 1`).Scan(&count))
	require.Equal(t, 0, count)
}
