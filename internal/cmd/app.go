// Package cmd wires the core packages (scriptrepo, historian, orchestrate,
// tagselector, query, config, lock) into the cobra command tree named in
// spec §6's CLI surface. Each command is a thin adapter: it parses flags,
// boots an App, and delegates to the core for everything else, mirroring
// clai/internal/cmd's shape of one *cobra.Command var plus a RunE per file.
package cmd

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/runger/hyperscripter/internal/config"
	"github.com/runger/hyperscripter/internal/herrors"
	"github.com/runger/hyperscripter/internal/historian"
	"github.com/runger/hyperscripter/internal/orchestrate"
	"github.com/runger/hyperscripter/internal/scriptname"
	"github.com/runger/hyperscripter/internal/scriptrepo"
	"github.com/runger/hyperscripter/internal/tagselector"
)

// App bundles the collaborators a single CLI invocation needs, built fresh
// by bootApp for every command the way clai's historyCmd opens its own
// storage.SQLiteStore per RunE rather than sharing one across the process.
type App struct {
	Paths     *config.Paths
	Config    *config.Config
	DB        *sql.DB
	Historian *historian.Historian
	Repo      *scriptrepo.Repository
	Selector  *tagselector.Group
}

// bootApp resolves paths, loads config, opens the database, and rehydrates
// the repository and persisted tag filter. Callers must Close the result.
func bootApp(ctx context.Context) (*App, error) {
	paths := config.DefaultPaths()
	if err := paths.EnsureDirectories(); err != nil {
		return nil, &herrors.FSError{Path: paths.BaseDir, Err: err}
	}

	cfg, err := config.LoadFromFile(paths.ConfigFile())
	if err != nil {
		return nil, err
	}

	db, err := historian.Open(ctx, paths.DatabaseFile())
	if err != nil {
		return nil, err
	}
	h := historian.NewWithPath(db, paths.DatabaseFile(), slog.Default())

	repo, err := scriptrepo.Open(ctx, db, h)
	if err != nil {
		db.Close() //nolint:errcheck
		return nil, err
	}

	group, err := loadSelector(paths)
	if err != nil {
		db.Close() //nolint:errcheck
		return nil, err
	}

	return &App{Paths: paths, Config: cfg, DB: db, Historian: h, Repo: repo, Selector: group}, nil
}

// Close releases the database connection pool.
func (a *App) Close() error {
	return a.DB.Close()
}

// Resolver builds the read-side collaborator EditOrCreate/RunNTimes/Resolve
// need, bound to this App's repository and active tag filter.
func (a *App) Resolver() *orchestrate.Resolver {
	return &orchestrate.Resolver{Repo: a.Repo, Selector: a.Selector}
}

// pathFor returns the on-disk path for name of type ty, resolving the
// extension through config (spec §6 filesystem layout).
func (a *App) pathFor(name scriptname.Name, ty scriptname.Type) (string, error) {
	tc, err := a.Config.Resolve(string(ty))
	if err != nil {
		return "", err
	}
	if name.IsAnonymous() {
		return a.Paths.AnonymousScriptPath(int64(name.AnonymousID()), tc.Ext), nil
	}
	return a.Paths.NamedScriptPath(name.Key(), tc.Ext), nil
}

// resolveType returns flagType if set, else the config's default type.
func (a *App) resolveType(flagType string) scriptname.Type {
	if flagType != "" {
		return scriptname.Type(flagType)
	}
	return scriptname.Type(a.Config.DefaultType)
}

func loadSelector(paths *config.Paths) (*tagselector.Group, error) {
	group := &tagselector.Group{}
	data, err := os.ReadFile(paths.TagFilterFile())
	if err != nil {
		if os.IsNotExist(err) {
			return group, nil
		}
		return nil, &herrors.FSError{Path: paths.TagFilterFile(), Err: err}
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		sel, err := tagselector.Parse(line)
		if err != nil {
			return nil, err
		}
		group.Push(sel)
	}
	return group, nil
}

// saveSelector persists the group's current selector stack, one per line.
func (a *App) saveSelector() error {
	var b strings.Builder
	for _, s := range a.Selector.Selectors() {
		b.WriteString(s.String())
		b.WriteByte('\n')
	}
	if err := os.WriteFile(a.Paths.TagFilterFile(), []byte(b.String()), 0o644); err != nil {
		return &herrors.FSError{Path: a.Paths.TagFilterFile(), Err: err}
	}
	return nil
}

// tagSlice renders a TagSet as a sorted slice of strings, for display.
func tagSlice(tags scriptname.TagSet) []string {
	out := make([]string, 0, len(tags))
	for t := range tags {
		out = append(out, string(t))
	}
	sort.Strings(out)
	return out
}

// stdinPrompter implements orchestrate.Prompter by reading a y/n answer
// from the terminal, backing the caution-tag confirmation flow (spec §7).
type stdinPrompter struct{}

func (stdinPrompter) Confirm(_ context.Context, message string) (bool, error) {
	fmt.Printf("%s [y/N] ", message)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	line = strings.ToLower(strings.TrimSpace(line))
	return line == "y" || line == "yes", nil
}
