package historian

import "time"

// EventType enumerates the kinds of events the historian records
// (spec §3 "Event").
type EventType string

const (
	EventRead     EventType = "Read"
	EventWrite    EventType = "Write"
	EventExec     EventType = "Exec"
	EventExecDone EventType = "ExecDone"
	EventMiss     EventType = "Miss"
)

// ExecData carries the payload for an Exec event: its serialized args and
// the script content that was run (used for content dedup, spec §8
// scenario 1).
type ExecData struct {
	Args    string
	Content string
	Cwd     string
	Envs    string
}

// ExecDoneData carries the payload for an ExecDone event: the exit code and
// the id of the Exec event it completes.
type ExecDoneData struct {
	Code        int
	MainEventID int64
}

// Event is the input to Record: a script id, a time, and the event-specific
// payload. Exec is meaningful only for EventExec and ExecDone only for
// EventExecDone; the other types use neither.
type Event struct {
	ScriptID int64
	Type     EventType
	Time     time.Time
	Cmd      string
	Exec     ExecData
	ExecDone ExecDoneData
}

// IgnoreResult reports the Exec/ExecDone times remaining after an ignore
// operation, so callers can update their in-memory ScriptInfo.
type IgnoreResult struct {
	ScriptID      int64
	ExecTime      *time.Time
	ExecDoneTime  *time.Time
}
