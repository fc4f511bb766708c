package historian

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/runger/hyperscripter/internal/herrors"
)

// Historian is the append-only event store keyed by script id (spec §4.4).
// It owns no lifecycle of its own beyond the *sql.DB it was given; Open
// (in store.go) handles opening, pragmas, and migrations. When constructed
// with a known database path (NewWithPath), an event insert by Record that
// fails gets exactly one reconnect-and-retry (spec §4.4 "On database
// error...", §5 "the pool is replaceable") before the error surfaces to the
// caller. The other write paths (Remove, the ignore/amend updates, Tidy)
// are not retried.
type Historian struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// New wraps an already-opened, already-migrated database connection. No
// database path is known, so a failed Record insert surfaces immediately
// instead of retrying — use NewWithPath when the caller can afford a reopen.
func New(db *sql.DB) *Historian {
	return &Historian{db: db, logger: slog.Default()}
}

// NewWithPath wraps db and additionally remembers the file path it was
// opened from, enabling the one-shot reconnect-and-retry on write failure
// (spec §4.4, §5). A nil logger falls back to slog.Default().
func NewWithPath(db *sql.DB, path string, logger *slog.Logger) *Historian {
	if logger == nil {
		logger = slog.Default()
	}
	return &Historian{db: db, path: path, logger: logger}
}

// currentDB returns the live connection pool under the single-writer lock
// (spec §5 "the SQLite connection pool is wrapped in a single-writer lock").
func (h *Historian) currentDB() *sql.DB {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.db
}

// reconnect drops and reopens the pool at h.path, logging the attempt. It
// reports whether a reopen was attempted (and can be retried); when no path
// is known it reports false so the original error surfaces unchanged.
func (h *Historian) reconnect(ctx context.Context, cause error) bool {
	if h.path == "" {
		return false
	}
	h.logger.Warn("historian: reconnecting after database error", "error", cause)

	h.mu.Lock()
	defer h.mu.Unlock()

	stale := h.db
	newDB, err := Open(ctx, h.path)
	if err != nil {
		h.logger.Error("historian: reconnect failed", "error", err)
		return false
	}
	h.db = newDB
	stale.Close() //nolint:errcheck // best-effort; the new pool is already live
	return true
}

// execWithRetry runs query once; on failure it reconnects (if a path is
// known) and retries exactly once, per spec §4.4/§5.
func (h *Historian) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := h.currentDB().ExecContext(ctx, query, args...)
	if err == nil {
		return res, nil
	}
	if !h.reconnect(ctx, err) {
		return nil, fmt.Errorf("%w: %v", herrors.ErrDatabase, err)
	}
	res, err = h.currentDB().ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", herrors.ErrDatabase, err)
	}
	return res, nil
}

// Remove deletes every event belonging to script_id (spec §3 "Lifecycle":
// remove(name) cascades to events).
func (h *Historian) Remove(ctx context.Context, scriptID int64) error {
	_, err := h.currentDB().ExecContext(ctx, `DELETE FROM events WHERE script_id = ?`, scriptID)
	if err != nil {
		return fmt.Errorf("historian: remove script %d: %w", scriptID, err)
	}
	return nil
}

// Record inserts an event and returns its id. Read/Write are recorded
// verbatim. Exec dedups its content against the most recent Exec row with
// non-null content for the same script (spec §8 scenario 1). ExecDone is
// suppressed (returns id 0, no row inserted) if its Exec event has since
// been ignored (spec §8 scenario 2).
func (h *Historian) Record(ctx context.Context, e Event) (int64, error) {
	switch e.Type {
	case EventRead, EventWrite:
		return h.rawRecord(ctx, e.ScriptID, e.Type, e.Cmd, e.Time, nil, nil, 0, "", "")

	case EventExec:
		content := &e.Exec.Content
		last, err := h.lastExecContent(ctx, e.ScriptID)
		if err != nil {
			return 0, err
		}
		if last != nil && *last == e.Exec.Content {
			content = nil
		}
		args := e.Exec.Args
		return h.rawRecord(ctx, e.ScriptID, EventExec, e.Cmd, e.Time, &args, content, 0, e.Exec.Cwd, e.Exec.Envs)

	case EventExecDone:
		ignored, err := h.isIgnored(ctx, e.ExecDone.MainEventID)
		if err != nil {
			return 0, err
		}
		if ignored {
			return 0, nil
		}
		code := fmt.Sprintf("%d", e.ExecDone.Code)
		return h.rawRecord(ctx, e.ScriptID, EventExecDone, e.Cmd, e.Time, nil, &code, e.ExecDone.MainEventID, "", "")

	case EventMiss:
		return h.rawRecord(ctx, e.ScriptID, EventMiss, e.Cmd, e.Time, nil, nil, 0, "", "")
	}
	return 0, fmt.Errorf("historian: unknown event type %q", e.Type)
}

func (h *Historian) rawRecord(
	ctx context.Context,
	scriptID int64,
	ty EventType,
	cmd string,
	t time.Time,
	args, content *string,
	mainEventID int64,
	cwd string,
	envs string,
) (int64, error) {
	res, err := h.execWithRetry(ctx, `
		INSERT INTO events (script_id, type, cmd, args, content, time, main_event_id, cwd, envs)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, scriptID, string(ty), cmd, args, content, t, mainEventID, nullableString(cwd), nullableString(envs))
	if err != nil {
		return 0, fmt.Errorf("historian: record %s event: %w", ty, err)
	}
	return res.LastInsertId()
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (h *Historian) lastExecContent(ctx context.Context, scriptID int64) (*string, error) {
	var content sql.NullString
	err := h.currentDB().QueryRowContext(ctx, `
		SELECT content FROM events
		WHERE type = ? AND script_id = ? AND content IS NOT NULL
		ORDER BY time DESC LIMIT 1
	`, string(EventExec), scriptID).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("historian: read last exec content: %w", err)
	}
	if !content.Valid {
		return nil, nil
	}
	return &content.String, nil
}

// isIgnored reports whether the Exec event eventID is ignored, per spec
// §4.4 ExecDone: "first read the pointed-to Exec". eventID == 0 and a
// missing Exec row both mean there is nothing valid to point at, so they
// are treated as "not ignored" rather than an error — ExecDone with no
// Exec to complete is invalid input, not a database failure.
func (h *Historian) isIgnored(ctx context.Context, eventID int64) (bool, error) {
	if eventID == 0 {
		return false, nil
	}
	var ignored bool
	err := h.currentDB().QueryRowContext(ctx, `
		SELECT ignored FROM events WHERE type = ? AND id = ?
	`, string(EventExec), eventID).Scan(&ignored)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("historian: check ignored state of event %d: %w", eventID, err)
	}
	return ignored, nil
}

// LastArgs returns the args of the most recent non-ignored Exec event for
// scriptID, or nil if none exists.
func (h *Historian) LastArgs(ctx context.Context, scriptID int64) (*string, error) {
	var args sql.NullString
	err := h.currentDB().QueryRowContext(ctx, `
		SELECT args FROM events
		WHERE type = ? AND script_id = ? AND NOT ignored
		ORDER BY time DESC LIMIT 1
	`, string(EventExec), scriptID).Scan(&args)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("historian: last args for script %d: %w", scriptID, err)
	}
	if !args.Valid {
		empty := ""
		return &empty, nil
	}
	return &args.String, nil
}

// groupedArgs selects the last `limit` distinct-args groups for scriptID,
// ordered by their most recent time descending, skipping `offset` groups.
// This replaces the original's macro-generated SQL with a single
// parameterized query (spec §9 design note), shared by LastArgsList,
// IgnoreArgsRange, and IgnoreArgs.
func (h *Historian) groupedArgs(ctx context.Context, scriptID int64, offset, limit int) ([]argGroup, error) {
	rows, err := h.currentDB().QueryContext(ctx, `
		SELECT args, MAX(time) AS t FROM events
		WHERE type = ? AND script_id = ? AND NOT ignored
		GROUP BY args
		ORDER BY t DESC
		LIMIT ? OFFSET ?
	`, string(EventExec), scriptID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("historian: grouped args for script %d: %w", scriptID, err)
	}
	defer rows.Close()

	var out []argGroup
	for rows.Next() {
		var g argGroup
		var args sql.NullString
		if err := rows.Scan(&args, &g.Time); err != nil {
			return nil, fmt.Errorf("historian: scan grouped args: %w", err)
		}
		g.Args = args.String
		out = append(out, g)
	}
	return out, rows.Err()
}

type argGroup struct {
	Args string
	Time time.Time
}

// PreviousArgs returns the args and serialized env of the single most
// recent non-ignored Exec event for scriptID (spec §4.4
// "previous_args(script_id, dir?)"). When dir is non-nil, the lookup is
// scoped to Exec events recorded from that working directory; a nil dir
// searches every directory. Returns ok=false if no matching Exec exists.
func (h *Historian) PreviousArgs(ctx context.Context, scriptID int64, dir *string) (args, envs string, ok bool, err error) {
	q := `
		SELECT args, envs FROM events
		WHERE type = ? AND script_id = ? AND NOT ignored
	`
	queryArgs := []any{string(EventExec), scriptID}
	if dir != nil {
		q += ` AND cwd = ? `
		queryArgs = append(queryArgs, *dir)
	}
	q += ` ORDER BY time DESC LIMIT 1`

	var a, envsCol sql.NullString
	row := h.currentDB().QueryRowContext(ctx, q, queryArgs...)
	if err := row.Scan(&a, &envsCol); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", false, nil
		}
		return "", "", false, fmt.Errorf("historian: previous args for script %d: %w", scriptID, err)
	}
	return a.String, envsCol.String, true, nil
}

// LastArgsList returns the args of the `limit` most recent distinct-args
// executions for scriptID, skipping `offset` (spec §4.4 "last N args").
func (h *Historian) LastArgsList(ctx context.Context, scriptID int64, limit, offset int) ([]string, error) {
	groups, err := h.groupedArgs(ctx, scriptID, offset, limit)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = g.Args
	}
	return out, nil
}

func (h *Historian) makeIgnoreResult(ctx context.Context, scriptID int64) (*IgnoreResult, error) {
	execTime, err := h.LastTimeOf(ctx, scriptID, EventExec)
	if err != nil {
		return nil, err
	}
	execDoneTime, err := h.LastTimeOf(ctx, scriptID, EventExecDone)
	if err != nil {
		return nil, err
	}
	return &IgnoreResult{ScriptID: scriptID, ExecTime: execTime, ExecDoneTime: execDoneTime}, nil
}

// ignoreEvents marks matching Exec rows (and their ExecDone rows, linked via
// main_event_id) as ignored=true.
func (h *Historian) ignoreEvents(ctx context.Context, whereExec, whereExecDoneSub string, args ...any) error {
	_, err := h.currentDB().ExecContext(ctx, fmt.Sprintf(`
		UPDATE events SET ignored = 1 WHERE type = ? AND %s
	`, whereExec), append([]any{string(EventExec)}, args...)...)
	if err != nil {
		return fmt.Errorf("historian: ignore exec events: %w", err)
	}
	_, err = h.currentDB().ExecContext(ctx, fmt.Sprintf(`
		UPDATE events SET ignored = 1 WHERE type = ? AND main_event_id IN (
			SELECT id FROM events WHERE type = ? AND %s
		)
	`, whereExecDoneSub), append([]any{string(EventExecDone), string(EventExec)}, args...)...)
	if err != nil {
		return fmt.Errorf("historian: ignore exec-done events: %w", err)
	}
	return nil
}

// IgnoreArgsByID ignores a single Exec event (and its ExecDone). If it was
// the most recent Exec for its script, returns the updated IgnoreResult.
func (h *Historian) IgnoreArgsByID(ctx context.Context, eventID int64) (*IgnoreResult, error) {
	if eventID == 0 {
		return nil, nil
	}

	var latestID, scriptID int64
	err := h.currentDB().QueryRowContext(ctx, `
		SELECT id, script_id FROM events
		WHERE type = ? AND script_id = (SELECT script_id FROM events WHERE id = ?)
		ORDER BY time DESC LIMIT 1
	`, string(EventExec), eventID).Scan(&latestID, &scriptID)
	if err != nil {
		return nil, fmt.Errorf("historian: find latest exec for event %d: %w", eventID, err)
	}

	if err := h.ignoreEvents(ctx, "id = ?", "id = ?", eventID); err != nil {
		return nil, err
	}

	if latestID == eventID {
		return h.makeIgnoreResult(ctx, scriptID)
	}
	return nil, nil
}

// IgnoreArgsRange ignores every Exec event in the distinct-args groups from
// position min through max (1-based, inclusive; max==0 means "to the end").
func (h *Historian) IgnoreArgsRange(ctx context.Context, scriptID int64, minN, maxN int) (*IgnoreResult, error) {
	if minN < 1 {
		return nil, fmt.Errorf("historian: ignore_args_range: min must be >= 1")
	}
	offset := minN - 1
	lastGroup, err := h.groupedArgs(ctx, scriptID, offset, 1)
	if err != nil {
		return nil, err
	}
	if len(lastGroup) == 0 {
		return nil, nil
	}
	lastTime := lastGroup[0].Time

	// The exclusive lower bound is the newest event of the group just past
	// max, so group max itself is inside the ignored range.
	var firstTime *time.Time
	if maxN > 0 {
		firstGroup, err := h.groupedArgs(ctx, scriptID, maxN, 1)
		if err != nil {
			return nil, err
		}
		if len(firstGroup) > 0 {
			firstTime = &firstGroup[0].Time
		}
	}

	if firstTime != nil {
		err = h.ignoreEvents(ctx,
			"script_id = ? AND time <= ? AND time > ?",
			"script_id = ? AND time <= ? AND time > ?",
			scriptID, lastTime, *firstTime,
		)
	} else {
		err = h.ignoreEvents(ctx,
			"script_id = ? AND time <= ?",
			"script_id = ? AND time <= ?",
			scriptID, lastTime,
		)
	}
	if err != nil {
		return nil, err
	}

	if offset == 0 {
		return h.makeIgnoreResult(ctx, scriptID)
	}
	return nil, nil
}

// IgnoreArgs ignores every Exec event sharing the args value of the Nth
// (1-based) most recent distinct-args group for scriptID.
func (h *Historian) IgnoreArgs(ctx context.Context, scriptID int64, number int) (*IgnoreResult, error) {
	if number < 1 {
		return nil, fmt.Errorf("historian: ignore_args: number must be >= 1")
	}
	offset := number - 1
	group, err := h.groupedArgs(ctx, scriptID, offset, 1)
	if err != nil {
		return nil, err
	}
	if len(group) == 0 {
		return nil, nil
	}

	if err := h.ignoreEvents(ctx,
		"script_id = ? AND args = ?",
		"script_id = ? AND args = ?",
		scriptID, group[0].Args,
	); err != nil {
		return nil, err
	}

	if offset == 0 {
		return h.makeIgnoreResult(ctx, scriptID)
	}
	return nil, nil
}

// AmendArgsByID un-ignores event_id and replaces its args.
func (h *Historian) AmendArgsByID(ctx context.Context, eventID int64, args string) error {
	if eventID == 0 {
		return nil
	}
	_, err := h.currentDB().ExecContext(ctx, `
		UPDATE events SET ignored = 0, args = ? WHERE type = ? AND id = ?
	`, args, string(EventExec), eventID)
	if err != nil {
		return fmt.Errorf("historian: amend args for event %d: %w", eventID, err)
	}
	return nil
}

// LastTimeOf returns the time of the most recent non-ignored event of type
// ty for scriptID, or nil if none exists.
func (h *Historian) LastTimeOf(ctx context.Context, scriptID int64, ty EventType) (*time.Time, error) {
	var t time.Time
	err := h.currentDB().QueryRowContext(ctx, `
		SELECT time FROM events
		WHERE type = ? AND script_id = ? AND NOT ignored
		ORDER BY time DESC LIMIT 1
	`, string(ty), scriptID).Scan(&t)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("historian: last time of %s for script %d: %w", ty, scriptID, err)
	}
	return &t, nil
}

// Tidy prunes non-latest duplicate-args Exec events for scriptID, keeping
// only the newest row per distinct args value, then cascades the deletion
// to any now-orphaned ExecDone rows (spec §9 design note (b)).
func (h *Historian) Tidy(ctx context.Context, scriptID int64) error {
	tx, err := h.currentDB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("historian: tidy: begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	// Only non-ignored Exec rows are candidates for deletion, matching the
	// kept-set subquery's "NOT ignored" population — an ignored row whose
	// args no longer appear among the non-ignored survivors is left alone
	// rather than pruned, so a later amend_args_by_id can still un-ignore it.
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM events
		WHERE script_id = ? AND type = ? AND NOT ignored
		  AND id NOT IN (
		    SELECT (
		      SELECT id FROM events
		      WHERE script_id = ? AND type = ? AND args = e.args
		      ORDER BY time DESC LIMIT 1
		    )
		    FROM (
		      SELECT DISTINCT args FROM events
		      WHERE script_id = ? AND NOT ignored AND type = ?
		    ) e
		  )
	`, scriptID, string(EventExec), scriptID, string(EventExec), scriptID, string(EventExec)); err != nil {
		return fmt.Errorf("historian: tidy: prune exec events: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM events
		WHERE script_id = ? AND type = ? AND main_event_id NOT IN (
		  SELECT id FROM events WHERE script_id = ? AND type = ?
		)
	`, scriptID, string(EventExecDone), scriptID, string(EventExec)); err != nil {
		return fmt.Errorf("historian: tidy: cascade exec-done cleanup: %w", err)
	}

	return tx.Commit()
}
