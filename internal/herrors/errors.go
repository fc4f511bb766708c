// Package herrors defines the error taxonomy shared across the core
// (spec §7 "Error Handling Design"), mirroring the sentinel/wrapped-error
// style of clai's storage and suggestions packages.
package herrors

import (
	"errors"
	"fmt"
)

// Control-flow signals used by the orchestrator to branch; not true
// failures (spec §7).
var (
	ErrDontFuzz       = errors.New("herrors: query did not resolve via fuzzy match")
	ErrCaution        = errors.New("herrors: caution prompt declined")
	ErrEmptyCreate    = errors.New("herrors: newly created script left unmodified")
	ErrNoPreviousArgs = errors.New("herrors: no previous invocation args recorded")
)

// ErrDatabase is an opaque backend failure. The Historian retries once
// internally (spec §5) before this propagates.
var ErrDatabase = errors.New("herrors: database operation failed")

// NotFoundError reports that name resolved to nothing.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("script not found: %q", e.Name) }

// ScriptExistError reports a name collision creating a new named script.
type ScriptExistError struct {
	Name string
}

func (e *ScriptExistError) Error() string { return fmt.Sprintf("script already exists: %q", e.Name) }

// PathExistError reports a filesystem path collision.
type PathExistError struct {
	Path string
}

func (e *PathExistError) Error() string { return fmt.Sprintf("path already exists: %q", e.Path) }

// ScriptIsFilteredError reports that name resolves to a script currently
// hidden by the active tag selector.
type ScriptIsFilteredError struct {
	Name string
}

func (e *ScriptIsFilteredError) Error() string {
	return fmt.Sprintf("script is filtered out by the active tag selector: %q", e.Name)
}

// FormatError reports a malformed name, tag, query, or regex.
type FormatError struct {
	Text string
	Code string
}

func (e *FormatError) Error() string { return fmt.Sprintf("malformed %s: %q", e.Code, e.Text) }

// FSError wraps a filesystem failure with the offending path.
type FSError struct {
	Path string
	Err  error
}

func (e *FSError) Error() string { return fmt.Sprintf("filesystem error at %q: %v", e.Path, e.Err) }
func (e *FSError) Unwrap() error { return e.Err }

// ScriptError reports a subprocess's non-zero exit code.
type ScriptError struct {
	Code int
}

func (e *ScriptError) Error() string { return fmt.Sprintf("script exited with code %d", e.Code) }

// PreRunError reports the pre-run hook's non-zero exit code.
type PreRunError struct {
	Code int
}

func (e *PreRunError) Error() string { return fmt.Sprintf("pre-run hook exited with code %d", e.Code) }

// RedundantOpt reports a flag that cannot coexist with the resolved action.
type RedundantOpt struct {
	Opt string
}

func (e *RedundantOpt) Error() string {
	return fmt.Sprintf("redundant option %q for the resolved action", e.Opt)
}

// ExitCode maps an error from the taxonomy above to a process exit code,
// mirroring clai's internal/suggestions/recovery exit-code table (spec §6:
// "0 success; the subscript's exit code on ScriptError; reserved codes for
// pre-run failure, empty-create, permission-denied, caution-declined,
// no-previous-args").
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var scriptErr *ScriptError
	if errors.As(err, &scriptErr) {
		return scriptErr.Code
	}
	var preRunErr *PreRunError
	if errors.As(err, &preRunErr) {
		return 10
	}

	switch {
	case errors.Is(err, ErrEmptyCreate):
		return 11
	case errors.Is(err, ErrCaution):
		return 12
	case errors.Is(err, ErrNoPreviousArgs):
		return 13
	}

	var fsErr *FSError
	if errors.As(err, &fsErr) {
		return 20
	}

	var notFound *NotFoundError
	var scriptExist *ScriptExistError
	var pathExist *PathExistError
	var filtered *ScriptIsFilteredError
	var format *FormatError
	var redundant *RedundantOpt
	switch {
	case errors.As(err, &notFound),
		errors.As(err, &scriptExist),
		errors.As(err, &pathExist),
		errors.As(err, &filtered),
		errors.As(err, &format),
		errors.As(err, &redundant):
		return 1
	}

	if errors.Is(err, ErrDatabase) {
		return 30
	}

	return 1
}
