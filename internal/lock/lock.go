// Package lock implements the per-invocation process lock directory: one
// small file per live invocation, reaped when its owning process has died
// (spec §4.6 "Process Lock").
package lock

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/sys/unix"
)

// Entry is the payload stored in a lock file.
type Entry struct {
	RunID      string `json:"run_id"`
	ScriptID   int64  `json:"script_id"`
	ScriptName string `json:"script_name"`
	Args       string `json:"args"`
	PID        int    `json:"pid"`
}

// Handle represents one acquired lock file. The caller must call Release
// on every exit path, including panics (spec §5 "Resource discipline").
type Handle struct {
	path string
	file *os.File
}

// Acquire creates and exclusively locks a new file named after runID inside
// dir, writing entry as its contents.
func Acquire(dir string, runID string, entry Entry) (*Handle, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("lock: create lock directory: %w", err)
	}
	path := filepath.Join(dir, runID+".lock")

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("lock: open lock file: %w", err)
	}

	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		file.Close()
		return nil, fmt.Errorf("lock: acquire exclusive lock on %s: %w", path, err)
	}

	entry.PID = os.Getpid()
	entry.RunID = runID
	data, err := json.Marshal(entry)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("lock: encode lock entry: %w", err)
	}
	if err := file.Truncate(0); err != nil {
		file.Close()
		return nil, fmt.Errorf("lock: truncate lock file: %w", err)
	}
	if _, err := file.WriteAt(data, 0); err != nil {
		file.Close()
		return nil, fmt.Errorf("lock: write lock entry: %w", err)
	}

	return &Handle{path: path, file: file}, nil
}

// Release unlocks and removes the lock file. Safe to call multiple times.
func (h *Handle) Release() error {
	if h.file == nil {
		return nil
	}
	err := unix.Flock(int(h.file.Fd()), unix.LOCK_UN)
	h.file.Close()
	h.file = nil
	os.Remove(h.path) //nolint:errcheck // best-effort cleanup
	if err != nil {
		return fmt.Errorf("lock: release %s: %w", h.path, err)
	}
	return nil
}

// Path returns the lock file's path.
func (h *Handle) Path() string { return h.path }

// LiveEntries lists every live invocation's Entry, reaping (removing) any
// lock file whose owning process has died: per spec §4.6, the reaping
// probe acquires a non-blocking exclusive lock on each file — success
// means the previous owner is gone, so the file is stale and removed.
func LiveEntries(dir string) ([]Entry, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock: list lock directory: %w", err)
	}

	var live []Entry
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		path := filepath.Join(dir, f.Name())
		entry, alive, err := probe(path)
		if err != nil {
			continue // unreadable/corrupt lock file; skip rather than fail the whole listing
		}
		if alive {
			live = append(live, entry)
		}
	}
	return live, nil
}

// probe opens path and attempts a non-blocking exclusive lock. If the lock
// is acquired, the previous owner is dead: the file is removed and alive
// is false. Otherwise the owner is still running.
func probe(path string) (entry Entry, alive bool, err error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return Entry{}, false, err
	}
	defer file.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, false, err
	}
	if err := json.Unmarshal(data, &entry); err != nil {
		return Entry{}, false, err
	}

	if lockErr := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); lockErr == nil {
		unix.Flock(int(file.Fd()), unix.LOCK_UN) //nolint:errcheck
		os.Remove(path)                          //nolint:errcheck
		return entry, false, nil
	}
	return entry, true, nil
}

// NewRunID derives a lock-file-safe id from a run correlation id and time,
// used when the caller wants a deterministic, sortable filename.
func NewRunID(runID string, t time.Time) string {
	return strconv.FormatInt(t.UnixNano(), 10) + "-" + runID
}
