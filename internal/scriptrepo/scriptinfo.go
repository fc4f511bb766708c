// Package scriptrepo implements the in-memory, tag-filtered view of script
// metadata backed by the database, dispatching side-effects to the
// Historian on mutation (spec §4.6 "Script Repository").
package scriptrepo

import (
	"time"

	"github.com/runger/hyperscripter/internal/scriptname"
)

// stamp is an optional timestamp with a dirty flag, so the Repository knows
// which events to emit to the Historian on flush (spec §3 "dirty flag per
// timestamp").
type stamp struct {
	time  time.Time
	valid bool
	dirty bool
}

func (s stamp) get() (time.Time, bool) { return s.time, s.valid }

func (s *stamp) set(t time.Time) {
	s.time = t
	s.valid = true
	s.dirty = true
}

// ScriptInfo is the canonical metadata record for one script (spec §3).
type ScriptInfo struct {
	ID   int64
	Name scriptname.Name
	Type scriptname.Type
	Tags scriptname.TagSet

	CreatedTime time.Time

	readTime  stamp
	writeTime stamp

	execTime    stamp
	execContent string
	execArgs    string
	execCwd     string
	execEnvs    string

	// lastExecEventID is the Historian-assigned id of the most recently
	// flushed Exec event, set by Repository.emitEvent right after Record
	// returns it. ExecDone's flush uses it as ExecDoneData.MainEventID
	// (spec §3: "For every ExecDone event there exists an Exec event with
	// matching main_event_id").
	lastExecEventID int64

	execDoneTime stamp
	execDoneCode int

	missTime stamp
}

// NewScriptInfo constructs a fresh, unpersisted ScriptInfo (id == 0).
func NewScriptInfo(name scriptname.Name, ty scriptname.Type, tags scriptname.TagSet, created time.Time) *ScriptInfo {
	info := &ScriptInfo{
		Name:        name,
		Type:        ty,
		Tags:        tags,
		CreatedTime: created,
	}
	info.readTime.set(created)
	info.writeTime.set(created)
	return info
}

// ReadTime returns the last-read timestamp, set on every read or write.
func (s *ScriptInfo) ReadTime() time.Time { return s.readTime.time }

// WriteTime returns the last-write timestamp.
func (s *ScriptInfo) WriteTime() time.Time { return s.writeTime.time }

// ExecTime returns the last-exec timestamp and whether it has ever executed.
func (s *ScriptInfo) ExecTime() (time.Time, bool) { return s.execTime.get() }

// ExecDoneTime returns the last-exec-completion timestamp.
func (s *ScriptInfo) ExecDoneTime() (time.Time, bool) { return s.execDoneTime.get() }

// MissTime returns the last time a query resolved to this script but it was
// filtered out.
func (s *ScriptInfo) MissTime() (time.Time, bool) { return s.missTime.get() }

// MarkRead updates read_time and marks it dirty for the next flush.
func (s *ScriptInfo) MarkRead(t time.Time) { s.readTime.set(t) }

// MarkWrite updates write_time and read_time (spec §3: write implies read).
func (s *ScriptInfo) MarkWrite(t time.Time) {
	s.writeTime.set(t)
	s.readTime.set(t)
}

// MarkExec records an execution's content, args, working directory, and
// serialized environment (spec §4.4 previous_args's envs_json payload).
func (s *ScriptInfo) MarkExec(t time.Time, content, args, cwd, envs string) {
	s.execTime.set(t)
	s.execContent = content
	s.execArgs = args
	s.execCwd = cwd
	s.execEnvs = envs
}

// MarkExecDone records an execution's exit code.
func (s *ScriptInfo) MarkExecDone(t time.Time, code int) {
	s.execDoneTime.set(t)
	s.execDoneCode = code
}

// MarkMiss records that a query resolved to this script while it was
// filtered out by the active tag selector.
func (s *ScriptInfo) MarkMiss(t time.Time) { s.missTime.set(t) }

// RefreshAfterIgnore overwrites the cached exec/exec-done timestamps to
// match the Historian's state after an ignore_args* call (spec §4.5:
// "the Repository can refresh its in-memory timestamps"). Unlike Mark*,
// it does not set the dirty flag: the Historian rows already reflect the
// ignore, so the next flush must not emit a fresh Exec/ExecDone event.
func (s *ScriptInfo) RefreshAfterIgnore(execTime, execDoneTime *time.Time) {
	s.execTime = stamp{}
	if execTime != nil {
		s.execTime = stamp{time: *execTime, valid: true}
	}
	s.execDoneTime = stamp{}
	if execDoneTime != nil {
		s.execDoneTime = stamp{time: *execDoneTime, valid: true}
	}
}

// LastTime returns the maximum of every recorded timestamp, used both for
// fuzzy-match tie-breaking and for `latest_mut` (spec §4.2, §4.6).
func (s *ScriptInfo) LastTime() time.Time {
	last := s.CreatedTime
	for _, st := range []stamp{s.readTime, s.writeTime, s.execTime, s.execDoneTime, s.missTime} {
		if st.valid && st.time.After(last) {
			last = st.time
		}
	}
	return last
}

// FuzzKey implements fuzzy.Key.
func (s *ScriptInfo) FuzzKey() string { return s.Name.Key() }

// dirtyKinds returns which timestamps changed since the last flush, used by
// Entry.update to decide which Historian events to emit.
func (s *ScriptInfo) dirtyKinds() []string {
	var out []string
	if s.readTime.dirty {
		out = append(out, "read")
	}
	if s.writeTime.dirty {
		out = append(out, "write")
	}
	if s.execTime.dirty {
		out = append(out, "exec")
	}
	if s.execDoneTime.dirty {
		out = append(out, "exec_done")
	}
	if s.missTime.dirty {
		out = append(out, "miss")
	}
	return out
}

func (s *ScriptInfo) clearDirty() {
	s.readTime.dirty = false
	s.writeTime.dirty = false
	s.execTime.dirty = false
	s.execDoneTime.dirty = false
	s.missTime.dirty = false
}
