package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/runger/hyperscripter/internal/herrors"
	"github.com/runger/hyperscripter/internal/orchestrate"
	"github.com/runger/hyperscripter/internal/query"
	"github.com/runger/hyperscripter/internal/scriptname"
	"github.com/runger/hyperscripter/internal/scriptrepo"
)

var cpCmd = &cobra.Command{
	Use:     "cp QUERY NEWNAME",
	Short:   "Copy a script's file and tags under a new name",
	GroupID: groupCore,
	Args:    cobra.ExactArgs(2),
	RunE:    runCp,
}

func runCp(c *cobra.Command, args []string) error {
	ctx := c.Context()
	app, err := bootApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close() //nolint:errcheck

	app.Repo.FilterByTag(app.Selector)

	q, err := query.Parse(args[0])
	if err != nil {
		return err
	}
	newName, err := scriptname.Named(args[1])
	if err != nil {
		return &herrors.FormatError{Text: args[1], Code: "name"}
	}

	entry, err := app.Resolver().Resolve(ctx, q, orchestrate.PickerDisambiguator{})
	if err != nil {
		return err
	}

	src := entry.Info()
	if app.Repo.GetHidden(newName) != nil {
		return &herrors.ScriptExistError{Name: args[1]}
	}

	srcPath, err := app.pathFor(src.Name, src.Type)
	if err != nil {
		return err
	}
	dstPath, err := app.pathFor(newName, src.Type)
	if err != nil {
		return err
	}
	if _, statErr := os.Stat(dstPath); statErr == nil {
		return &herrors.PathExistError{Path: dstPath}
	}

	content, err := os.ReadFile(srcPath)
	if err != nil {
		return &herrors.FSError{Path: srcPath, Err: err}
	}
	if err := os.WriteFile(dstPath, content, 0o644); err != nil {
		return &herrors.FSError{Path: dstPath, Err: err}
	}

	now := time.Now()
	tags := make(scriptname.TagSet, len(src.Tags))
	for t := range src.Tags {
		tags[t] = struct{}{}
	}
	if _, err := app.Repo.Upsert(ctx, newName, func() *scriptrepo.ScriptInfo {
		return scriptrepo.NewScriptInfo(newName, src.Type, tags, now)
	}); err != nil {
		os.Remove(dstPath) //nolint:errcheck
		return err
	}
	return nil
}
