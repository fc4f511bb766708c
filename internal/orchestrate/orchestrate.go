// Package orchestrate wires the Query Resolver, Script Repository,
// Historian, and Process Lock into the two top-level flows described in
// spec §2 component 8 and §4's cross-component notes: opening a script for
// editing (creating it first if needed) and running a script some number
// of times. Per SPEC_FULL.md component 8, this layer is specified as
// contracts: the actual subprocess launch, editor invocation, and terminal
// prompt are supplied by the caller through small interfaces, mirroring
// clai's internal/cmd wiring a thin RunE against packages that do the real
// work.
package orchestrate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/runger/hyperscripter/internal/fuzzy"
	"github.com/runger/hyperscripter/internal/herrors"
	"github.com/runger/hyperscripter/internal/historian"
	"github.com/runger/hyperscripter/internal/lock"
	"github.com/runger/hyperscripter/internal/picker"
	"github.com/runger/hyperscripter/internal/query"
	"github.com/runger/hyperscripter/internal/scriptname"
	"github.com/runger/hyperscripter/internal/scriptrepo"
	"github.com/runger/hyperscripter/internal/tagselector"
)

// Launcher runs a resolved script as a subprocess. It is the external
// collaborator named in spec §1/§6 — the orchestrator never shells out
// itself.
type Launcher interface {
	// Launch runs path with args and env, returning the subprocess's exit
	// code (0 on success) or an error if the process could not start.
	Launch(ctx context.Context, path string, args []string, env []string) (int, error)
}

// Editor opens a script file in the user's editor. External collaborator,
// same boundary as Launcher.
type Editor interface {
	Edit(ctx context.Context, path string) error
}

// Prompter asks the user a yes/no question, backing the caution-tag
// confirmation flow (spec §7 "Caution").
type Prompter interface {
	Confirm(ctx context.Context, message string) (bool, error)
}

// Disambiguator resolves a fuzzy.Result in KindMulti into a single pick,
// e.g. by driving the bubbletea picker in internal/picker.
type Disambiguator[T fuzzy.Key] interface {
	Choose(ctx context.Context, result fuzzy.Result[T]) (T, error)
}

// Resolver bundles the read-side collaborators EditOrCreate and RunNTimes
// need: the repository to look scripts up in, and the active tag selector
// group that decides visibility.
type Resolver struct {
	Repo     *scriptrepo.Repository
	Selector *tagselector.Group
}

// resolve turns a parsed query.Query into an *scriptrepo.Entry, running the
// fuzzy matcher over visible scripts when the query isn't exact/previous.
// For KindExact, a bang query (q.Bang) bypasses the tag filter via
// GetHidden, matching the "NAME!" override in spec §4.3. Fuzzy and previous
// queries search only visible scripts, whether or not q.Bang is set.
func (r *Resolver) resolve(q query.Query) (*scriptrepo.Entry, error) {
	switch q.Kind {
	case query.KindExact:
		name, err := scriptname.Named(q.Name)
		if err != nil {
			return nil, &herrors.FormatError{Text: q.Name, Code: "name"}
		}
		if q.Bang {
			if e := r.Repo.GetHidden(name); e != nil {
				return e, nil
			}
			return nil, &herrors.NotFoundError{Name: q.Name}
		}
		if e := r.Repo.Get(name); e != nil {
			return e, nil
		}
		if r.Repo.GetHidden(name) != nil {
			return nil, &herrors.ScriptIsFilteredError{Name: q.Name}
		}
		return nil, &herrors.NotFoundError{Name: q.Name}

	case query.KindPrev:
		e := r.Repo.LatestMut(q.N)
		if e == nil {
			return nil, &herrors.NotFoundError{Name: fmt.Sprintf("^%d", q.N)}
		}
		return e, nil

	default: // query.KindFuzz
		visible := r.Repo.Iter()
		candidates := make([]*scriptrepo.ScriptInfo, len(visible))
		copy(candidates, visible)
		result := fuzzy.Match(q.Name, candidates)
		switch result.Kind {
		case fuzzy.KindHigh:
			return r.Repo.Get(result.Winner.Name), nil
		case fuzzy.KindNone, fuzzy.KindLow:
			return nil, herrors.ErrDontFuzz
		default: // KindMulti: caller must disambiguate
			return nil, herrors.ErrDontFuzz
		}
	}
}

// Resolve is the public query-resolution entry point used by the CLI
// surface (the `run`/`which`/`history` commands, spec §6): it resolves q
// exactly as EditOrCreate's internal resolver does for KindExact/KindPrev,
// and additionally drives disamb to pick one candidate when the Fuzzy
// Matcher returns an ambiguous Multi result, instead of failing outright
// with ErrDontFuzz. Pass a nil disamb to get the old DontFuzz-on-ambiguity
// behavior (e.g. for non-interactive callers).
func (r *Resolver) Resolve(ctx context.Context, q query.Query, disamb Disambiguator[*scriptrepo.ScriptInfo]) (*scriptrepo.Entry, error) {
	if q.Kind != query.KindFuzz {
		return r.resolve(q)
	}

	visible := r.Repo.Iter()
	candidates := make([]*scriptrepo.ScriptInfo, len(visible))
	copy(candidates, visible)
	result := fuzzy.Match(q.Name, candidates)

	switch result.Kind {
	case fuzzy.KindHigh, fuzzy.KindLow:
		return r.Repo.Get(result.Winner.Name), nil
	case fuzzy.KindNone:
		return nil, &herrors.NotFoundError{Name: q.Name}
	default: // KindMulti
		if disamb == nil {
			return nil, herrors.ErrDontFuzz
		}
		chosen, err := disamb.Choose(ctx, result)
		if err != nil {
			return nil, err
		}
		return r.Repo.Get(chosen.Name), nil
	}
}

// PickerDisambiguator adapts internal/picker's bubbletea list to the
// Disambiguator interface.
type PickerDisambiguator struct{}

// Choose implements Disambiguator by rendering result through picker.Resolve.
func (PickerDisambiguator) Choose(ctx context.Context, result fuzzy.Result[*scriptrepo.ScriptInfo]) (*scriptrepo.ScriptInfo, error) {
	return picker.Resolve(ctx, result)
}

// EditTagArgs mirrors the original's "flags that only make sense for
// creation" bundle (spec §7 RedundantOpt), grounded on
// hyper-scripter/src/util/main_util.rs's EditTagArgs.
type EditTagArgs struct {
	Content        tagselector.Selector
	ExplicitTag    bool
	ExplicitSelect bool
}

// EditOrCreate resolves editQuery against repo, creating a new ScriptInfo
// when it refers to a name that doesn't exist yet (or a fresh anonymous
// script), and returns the filesystem path to open plus the repository
// Entry to record a Write event against once the editor returns. It does
// not open an editor itself — see Editor.
//
// Grounded on hyper-scripter/src/util/main_util.rs's edit_or_create: the
// control flow (exact query → create-if-absent; fuzzy query → resolve or
// create-if-filtered; anonymous → always create) is preserved, the path
// construction and editor invocation are left to the caller.
func EditOrCreate(
	ctx context.Context,
	r *Resolver,
	editQuery query.EditQuery,
	ty scriptname.Type,
	tags EditTagArgs,
	pathFor func(scriptname.Name, scriptname.Type) (string, error),
	now time.Time,
) (path string, entry *scriptrepo.Entry, err error) {
	if editQuery.NewAnonymous {
		if tags.ExplicitSelect {
			return "", nil, &herrors.RedundantOpt{Opt: "--select"}
		}
		return createAnonymous(ctx, r, ty, tags, pathFor, now)
	}

	entry, err = r.resolve(editQuery.Query)
	switch {
	case err == nil:
		if tags.ExplicitTag {
			return "", nil, &herrors.RedundantOpt{Opt: "--tag"}
		}
		p, perr := pathFor(entry.Info().Name, entry.Info().Type)
		if perr != nil {
			return "", nil, &herrors.FSError{Path: p, Err: perr}
		}
		return p, entry, nil

	case isMissError(err):
		// Exact-name query on an absent name, or a fuzzy query that
		// couldn't resolve: fall through to creating a new named script.
		return createNamed(ctx, r, editQuery.Query.Name, ty, tags, pathFor, now)

	default:
		return "", nil, err
	}
}

func isMissError(err error) bool {
	var nf *herrors.NotFoundError
	var filtered *herrors.ScriptIsFilteredError
	switch {
	case err == herrors.ErrDontFuzz:
		return true
	case asError(err, &nf):
		return true
	case asError(err, &filtered):
		return true
	}
	return false
}

func asError[T error](err error, target *T) bool {
	for err != nil {
		if t, ok := err.(T); ok {
			*target = t
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func createNamed(
	ctx context.Context,
	r *Resolver,
	rawName string,
	ty scriptname.Type,
	tags EditTagArgs,
	pathFor func(scriptname.Name, scriptname.Type) (string, error),
	now time.Time,
) (string, *scriptrepo.Entry, error) {
	if tags.ExplicitSelect {
		return "", nil, &herrors.RedundantOpt{Opt: "--select"}
	}
	name, err := scriptname.Named(rawName)
	if err != nil {
		return "", nil, &herrors.FormatError{Text: rawName, Code: "name"}
	}
	if r.Repo.GetHidden(name) != nil {
		return "", nil, &herrors.ScriptExistError{Name: rawName}
	}

	p, err := pathFor(name, ty)
	if err != nil {
		return "", nil, &herrors.FSError{Path: p, Err: err}
	}

	entry, err := r.Repo.Upsert(ctx, name, func() *scriptrepo.ScriptInfo {
		return scriptrepo.NewScriptInfo(name, ty, allowedTags(tags.Content), now)
	})
	if err != nil {
		return "", nil, &herrors.FSError{Path: p, Err: err}
	}
	return p, entry, nil
}

// allowedTags collects the tags a freshly created script should carry: the
// allow-side controls of the selector supplied at creation time (spec §7
// EditTagArgs.content, applied via ScriptInfo.append_tags in the original).
func allowedTags(sel tagselector.Selector) scriptname.TagSet {
	set := scriptname.TagSet{}
	for _, ctrl := range sel.Controls {
		if ctrl.Allow && !ctrl.Tag.MatchAll() {
			set[ctrl.Tag] = struct{}{}
		}
	}
	return set
}

func createAnonymous(
	ctx context.Context,
	r *Resolver,
	ty scriptname.Type,
	tags EditTagArgs,
	pathFor func(scriptname.Name, scriptname.Type) (string, error),
	now time.Time,
) (string, *scriptrepo.Entry, error) {
	id := uint32(now.UnixNano() & 0x7fffffff)
	name := scriptname.Anonymous(id)

	p, err := pathFor(name, ty)
	if err != nil {
		return "", nil, &herrors.FSError{Path: p, Err: err}
	}
	entry, err := r.Repo.Upsert(ctx, name, func() *scriptrepo.ScriptInfo {
		return scriptrepo.NewScriptInfo(name, ty, scriptname.TagSet{}, now)
	})
	if err != nil {
		return "", nil, &herrors.FSError{Path: p, Err: err}
	}
	return p, entry, nil
}

// AfterEdit records a Write event for entry if the script's file content
// actually changed (modTime newer than before editing); a freshly created,
// untouched script instead yields ErrEmptyCreate (spec §7).
//
// Grounded on main_util.rs's after_script: "new && unmodified -> delete it;
// old && unmodified -> read only, no write event".
func AfterEdit(ctx context.Context, entry *scriptrepo.Entry, isNew bool, editStartedAt time.Time, modTime time.Time, now time.Time) error {
	if !modTime.After(editStartedAt) {
		if isNew {
			return herrors.ErrEmptyCreate
		}
		return entry.Update(ctx, func(s *scriptrepo.ScriptInfo) { s.MarkRead(now) })
	}
	return entry.Update(ctx, func(s *scriptrepo.ScriptInfo) { s.MarkWrite(now) })
}

// RunResult is returned by RunNTimes: it never returns a bare error for a
// failing subprocess (spec §7: ScriptError is recorded, not propagated,
// unless the script never started at all), instead collecting one
// *herrors.ScriptError per failing iteration.
type RunResult struct {
	Failures []error
}

// RunNTimes executes entry's script `repeat` times through launcher,
// recording one Exec event before the first run and an ExecDone event after
// each run, with a Process Lock held for the whole call (spec §4.6, §5
// "Cancellation").
//
// Grounded on hyper-scripter/src/util/main_util.rs's run_n_times: historian
// previous-args lookup, caution-tag confirmation, lock acquisition before
// the loop, ExecDone recorded after every iteration, lock released and its
// file removed on return. The lock file is not marked with the runs'
// outcome before removal.
func RunNTimes(
	ctx context.Context,
	r *Resolver,
	h *historian.Historian,
	entry *scriptrepo.Entry,
	lockDir string,
	runID string,
	args []string,
	cwd string,
	repeat int,
	dummy bool,
	usePrevious bool,
	errorIfNoPrevious bool,
	previousHere bool,
	caution Prompter,
	launcher Launcher,
	scriptPath string,
	env []string,
	now func() time.Time,
) (RunResult, error) {
	info := entry.Info()

	if usePrevious {
		var dir *string
		if previousHere {
			dir = &cwd
		}
		prevArgs, _, ok, err := h.PreviousArgs(ctx, info.ID, dir)
		if err != nil {
			return RunResult{}, fmt.Errorf("orchestrate: fetch previous args: %w", err)
		}
		switch {
		case !ok && errorIfNoPrevious:
			return RunResult{}, herrors.ErrNoPreviousArgs
		case ok:
			args = append([]string{prevArgs}, args...)
		}
	}

	if caution != nil {
		ok, err := caution.Confirm(ctx, fmt.Sprintf("%s requires extra caution. Are you sure?", info.Name))
		if err != nil {
			return RunResult{}, err
		}
		if !ok {
			return RunResult{}, herrors.ErrCaution
		}
	}

	h1, err := lock.Acquire(lockDir, runID, lock.Entry{
		ScriptID:   info.ID,
		ScriptName: info.Name.Key(),
		Args:       fmt.Sprint(args),
		PID:        os.Getpid(),
	})
	if err != nil {
		return RunResult{}, fmt.Errorf("orchestrate: acquire process lock: %w", err)
	}
	defer h1.Release()

	content, err := readScriptContent(scriptPath)
	if err != nil {
		return RunResult{}, &herrors.FSError{Path: scriptPath, Err: err}
	}

	envsJSON, err := json.Marshal(env)
	if err != nil {
		return RunResult{}, fmt.Errorf("orchestrate: serialize env: %w", err)
	}
	if err := entry.Update(ctx, func(s *scriptrepo.ScriptInfo) {
		s.MarkExec(now(), content, fmt.Sprint(args), cwd, string(envsJSON))
	}); err != nil {
		return RunResult{}, err
	}

	if dummy {
		return RunResult{}, nil
	}

	var result RunResult
	for i := 0; i < repeat; i++ {
		code, launchErr := launcher.Launch(ctx, scriptPath, args, env)
		if launchErr != nil {
			return result, launchErr
		}
		if code != 0 {
			result.Failures = append(result.Failures, &herrors.ScriptError{Code: code})
		}
		if err := entry.Update(ctx, func(s *scriptrepo.ScriptInfo) {
			s.MarkExecDone(now(), code)
		}); err != nil {
			return result, err
		}
	}
	return result, nil
}

func readScriptContent(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
