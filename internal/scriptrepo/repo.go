package scriptrepo

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/runger/hyperscripter/internal/herrors"
	"github.com/runger/hyperscripter/internal/historian"
	"github.com/runger/hyperscripter/internal/scriptname"
	"github.com/runger/hyperscripter/internal/tagselector"
)

// Repository is the in-memory, database-backed catalog of scripts (spec
// §4.6). Entry handles carry a non-owning reference back to their
// Repository instead of the cyclic Entry<->Repository reference the
// original design used (spec §9 design note).
type Repository struct {
	db        *sql.DB
	historian *historian.Historian

	entries map[string]*ScriptInfo // keyed by ScriptName.Key()
	hidden  map[string]struct{}    // names currently filtered out
}

// Open loads every script_infos row and rehydrates exec/read times from the
// Historian (spec §8 scenario 6 "rehydrate from DB").
func Open(ctx context.Context, db *sql.DB, h *historian.Historian) (*Repository, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, name, category, tags, created_time, write_time FROM script_infos ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("scriptrepo: load script_infos: %w", err)
	}
	defer rows.Close()

	repo := &Repository{
		db:        db,
		historian: h,
		entries:   make(map[string]*ScriptInfo),
		hidden:    make(map[string]struct{}),
	}

	for rows.Next() {
		var (
			id                          int64
			nameStr, category, tagsStr string
			created, write              time.Time
		)
		if err := rows.Scan(&id, &nameStr, &category, &tagsStr, &created, &write); err != nil {
			return nil, fmt.Errorf("scriptrepo: scan script_infos row: %w", err)
		}

		name, err := scriptname.Parse(nameStr)
		if err != nil {
			return nil, fmt.Errorf("scriptrepo: invalid stored name %q: %w", nameStr, err)
		}

		info := &ScriptInfo{
			ID:          id,
			Name:        name,
			Type:        scriptname.Type(category),
			Tags:        parseTags(tagsStr),
			CreatedTime: created,
		}
		info.writeTime = stamp{time: write, valid: true}
		info.readTime = stamp{time: write, valid: true}

		if t, err := h.LastTimeOf(ctx, id, historian.EventExec); err != nil {
			return nil, err
		} else if t != nil {
			info.execTime = stamp{time: *t, valid: true}
		}
		if t, err := h.LastTimeOf(ctx, id, historian.EventRead); err != nil {
			return nil, err
		} else if t != nil && t.After(info.readTime.time) {
			info.readTime = stamp{time: *t, valid: true}
		}

		repo.entries[name.Key()] = info
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return repo, nil
}

func parseTags(s string) scriptname.TagSet {
	set := scriptname.TagSet{}
	if s == "" {
		return set
	}
	for _, t := range strings.Split(s, ",") {
		if t == "" {
			continue
		}
		set[scriptname.Tag(t)] = struct{}{}
	}
	return set
}

func joinTags(tags scriptname.TagSet) string {
	parts := make([]string, 0, len(tags))
	for t := range tags {
		parts = append(parts, string(t))
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

// Entry is a handle onto one ScriptInfo plus the Repository it belongs to.
// All mutation must go through Update so metadata writes and Historian
// events stay in sync (spec §9 design note: "handle pattern").
type Entry struct {
	info *ScriptInfo
	repo *Repository
}

// Info returns the underlying ScriptInfo for read-only inspection.
func (e *Entry) Info() *ScriptInfo { return e.info }

// Update applies handler to the entry's ScriptInfo, then persists the
// metadata row and emits any Historian events implied by the timestamps
// handler touched (spec §4.6).
func (e *Entry) Update(ctx context.Context, handler func(*ScriptInfo)) error {
	handler(e.info)
	return e.repo.flush(ctx, e.info)
}

// flush writes the metadata row and emits ordered Historian events for
// every dirty timestamp, then clears the dirty flags.
func (r *Repository) flush(ctx context.Context, info *ScriptInfo) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE script_infos SET name = ?, category = ?, tags = ?, write_time = ? WHERE id = ?
	`, info.Name.Key(), string(info.Type), joinTags(info.Tags), info.writeTime.time, info.ID)
	if err != nil {
		return fmt.Errorf("scriptrepo: flush script %d: %w", info.ID, err)
	}

	for _, kind := range info.dirtyKinds() {
		if err := r.emitEvent(ctx, info, kind); err != nil {
			return err
		}
	}
	info.clearDirty()
	return nil
}

func (r *Repository) emitEvent(ctx context.Context, info *ScriptInfo, kind string) error {
	switch kind {
	case "read":
		_, err := r.historian.Record(ctx, historian.Event{ScriptID: info.ID, Type: historian.EventRead, Time: info.readTime.time})
		return err
	case "write":
		_, err := r.historian.Record(ctx, historian.Event{ScriptID: info.ID, Type: historian.EventWrite, Time: info.writeTime.time})
		return err
	case "exec":
		id, err := r.historian.Record(ctx, historian.Event{
			ScriptID: info.ID, Type: historian.EventExec, Time: info.execTime.time,
			Exec: historian.ExecData{Args: info.execArgs, Content: info.execContent, Cwd: info.execCwd, Envs: info.execEnvs},
		})
		if err != nil {
			return err
		}
		info.lastExecEventID = id
		return nil
	case "exec_done":
		_, err := r.historian.Record(ctx, historian.Event{
			ScriptID: info.ID, Type: historian.EventExecDone, Time: info.execDoneTime.time,
			ExecDone: historian.ExecDoneData{Code: info.execDoneCode, MainEventID: info.lastExecEventID},
		})
		return err
	case "miss":
		_, err := r.historian.Record(ctx, historian.Event{ScriptID: info.ID, Type: historian.EventMiss, Time: info.missTime.time})
		return err
	}
	return fmt.Errorf("scriptrepo: unknown dirty kind %q", kind)
}

// Get returns a visible (non-tag-filtered) Entry for name, or nil.
func (r *Repository) Get(name scriptname.Name) *Entry {
	if _, isHidden := r.hidden[name.Key()]; isHidden {
		return nil
	}
	info, ok := r.entries[name.Key()]
	if !ok {
		return nil
	}
	return &Entry{info: info, repo: r}
}

// GetHidden returns an Entry for name even if it is currently filtered out
// by FilterByTag — used to resolve a "bang" query (spec §4.3).
func (r *Repository) GetHidden(name scriptname.Name) *Entry {
	info, ok := r.entries[name.Key()]
	if !ok {
		return nil
	}
	return &Entry{info: info, repo: r}
}

// Remove deletes the metadata row and cascades to its events (spec §3
// "Lifecycle").
func (r *Repository) Remove(ctx context.Context, name scriptname.Name) error {
	info, ok := r.entries[name.Key()]
	if !ok {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM script_infos WHERE id = ?`, info.ID); err != nil {
		return fmt.Errorf("scriptrepo: remove script %q: %w", name, err)
	}
	if err := r.historian.Remove(ctx, info.ID); err != nil {
		return err
	}
	delete(r.entries, name.Key())
	delete(r.hidden, name.Key())
	return nil
}

// Upsert returns the Entry for name, inserting a new metadata row (via
// `build`) if it doesn't already exist.
func (r *Repository) Upsert(ctx context.Context, name scriptname.Name, build func() *ScriptInfo) (*Entry, error) {
	if info, ok := r.entries[name.Key()]; ok {
		return &Entry{info: info, repo: r}, nil
	}

	info := build()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO script_infos (name, category, tags, created_time, write_time) VALUES (?, ?, ?, ?, ?)
	`, info.Name.Key(), string(info.Type), joinTags(info.Tags), info.CreatedTime, info.writeTime.time)
	if err != nil {
		return nil, fmt.Errorf("scriptrepo: insert script %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("scriptrepo: read new script id: %w", err)
	}
	info.ID = id
	r.entries[name.Key()] = info
	return &Entry{info: info, repo: r}, nil
}

// Rename changes oldName's display form to newName, moving its slot in both
// the entries and hidden maps and persisting the new name, backing the CLI's
// `mv` command. It does not touch the script's file on disk or its history.
func (r *Repository) Rename(ctx context.Context, oldName, newName scriptname.Name) (*Entry, error) {
	info, ok := r.entries[oldName.Key()]
	if !ok {
		return nil, &herrors.NotFoundError{Name: oldName.Key()}
	}
	if _, exists := r.entries[newName.Key()]; exists {
		return nil, &herrors.ScriptExistError{Name: newName.Key()}
	}

	if _, err := r.db.ExecContext(ctx, `UPDATE script_infos SET name = ? WHERE id = ?`, newName.Key(), info.ID); err != nil {
		return nil, fmt.Errorf("scriptrepo: rename script %d: %w", info.ID, err)
	}

	info.Name = newName
	delete(r.entries, oldName.Key())
	r.entries[newName.Key()] = info
	if _, wasHidden := r.hidden[oldName.Key()]; wasHidden {
		delete(r.hidden, oldName.Key())
		r.hidden[newName.Key()] = struct{}{}
	}
	return &Entry{info: info, repo: r}, nil
}

// FilterByTag recomputes the hidden set from the full entry map against the
// given selector group, without moving structs between two maps (spec §4.6,
// simplified from the original's map-draining approach per the design
// notes' preference for explicit, single-source-of-truth state).
func (r *Repository) FilterByTag(group *tagselector.Group) {
	hidden := make(map[string]struct{})
	for key, info := range r.entries {
		if !group.Select(info.Tags) {
			hidden[key] = struct{}{}
		}
	}
	r.hidden = hidden
}

// Iter returns every visible ScriptInfo, in unspecified order.
func (r *Repository) Iter() []*ScriptInfo {
	out := make([]*ScriptInfo, 0, len(r.entries))
	for key, info := range r.entries {
		if _, isHidden := r.hidden[key]; isHidden {
			continue
		}
		out = append(out, info)
	}
	return out
}

// IterAll returns every ScriptInfo, visible or hidden.
func (r *Repository) IterAll() []*ScriptInfo {
	out := make([]*ScriptInfo, 0, len(r.entries))
	for _, info := range r.entries {
		out = append(out, info)
	}
	return out
}

// LatestMut returns an Entry for the nth-most-recent visible script by
// LastTime (n=1 is the single most recent), for query resolution's `^N`
// form (spec §4.3).
func (r *Repository) LatestMut(n int) *Entry {
	visible := r.Iter()
	sort.Slice(visible, func(i, j int) bool {
		return visible[i].LastTime().After(visible[j].LastTime())
	})
	if n < 1 || n > len(visible) {
		return nil
	}
	return &Entry{info: visible[n-1], repo: r}
}
