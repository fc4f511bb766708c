package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/runger/hyperscripter/internal/herrors"
	"github.com/runger/hyperscripter/internal/orchestrate"
	"github.com/runger/hyperscripter/internal/query"
	"github.com/runger/hyperscripter/internal/tagselector"
)

var (
	editType   string
	editTags   []string
	editSelect bool
)

var editCmd = &cobra.Command{
	Use:     "edit QUERY",
	Short:   "Open a script for editing, creating it first if needed",
	GroupID: groupCore,
	Args:    cobra.ExactArgs(1),
	RunE:    runEdit,
}

func init() {
	editCmd.Flags().StringVarP(&editType, "type", "t", "", "script type for a newly created script (defaults to the configured default_type)")
	editCmd.Flags().StringArrayVar(&editTags, "tag", nil, "tag-selector controls applied to a newly created script (repeatable, last wins)")
	editCmd.Flags().BoolVar(&editSelect, "select", false, "reserved: rejected as redundant when a new script is created, no effect on an existing script")
}

func runEdit(c *cobra.Command, args []string) error {
	ctx := c.Context()
	app, err := bootApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close() //nolint:errcheck

	app.Repo.FilterByTag(app.Selector)

	eq, err := query.ParseEdit(args[0])
	if err != nil {
		return err
	}

	sel := &tagselector.Group{}
	for _, raw := range editTags {
		s, err := tagselector.Parse(raw)
		if err != nil {
			return err
		}
		sel.Push(s)
	}
	var content tagselector.Selector
	if selectors := sel.Selectors(); len(selectors) > 0 {
		content = selectors[len(selectors)-1]
	}

	tagArgs := orchestrate.EditTagArgs{
		Content:        content,
		ExplicitTag:    len(editTags) > 0,
		ExplicitSelect: editSelect,
	}

	now := time.Now()
	path, entry, err := orchestrate.EditOrCreate(ctx, app.Resolver(), eq, app.resolveType(editType), tagArgs, app.pathFor, now)
	if err != nil {
		return err
	}

	isNew := false
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		isNew = true
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return &herrors.FSError{Path: path, Err: err}
		}
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			return &herrors.FSError{Path: path, Err: err}
		}
	}

	editStartedAt := time.Now()
	editor := &execEditor{command: app.Config.EditorCommand()}
	if err := editor.Edit(ctx, path); err != nil {
		return err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return &herrors.FSError{Path: path, Err: err}
	}

	if err := orchestrate.AfterEdit(ctx, entry, isNew, editStartedAt, stat.ModTime(), time.Now()); err != nil {
		if isNew && errors.Is(err, herrors.ErrEmptyCreate) {
			os.Remove(path) //nolint:errcheck
		}
		return err
	}

	fmt.Println(path)
	return nil
}
