package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/runger/hyperscripter/internal/herrors"
	"github.com/runger/hyperscripter/internal/orchestrate"
	"github.com/runger/hyperscripter/internal/query"
	"github.com/runger/hyperscripter/internal/scriptname"
)

var mvCmd = &cobra.Command{
	Use:     "mv QUERY NEWNAME",
	Short:   "Rename a script",
	GroupID: groupCore,
	Args:    cobra.ExactArgs(2),
	RunE:    runMv,
}

func runMv(c *cobra.Command, args []string) error {
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

	info := entry.Info()
	oldPath, err := app.pathFor(info.Name, info.Type)
	if err != nil {
		return err
	}
	newPath, err := app.pathFor(newName, info.Type)
	if err != nil {
		return err
	}

	if _, statErr := os.Stat(newPath); statErr == nil {
		return &herrors.PathExistError{Path: newPath}
	}

	if _, err := app.Repo.Rename(ctx, info.Name, newName); err != nil {
		return err
	}

	if err := os.Rename(oldPath, newPath); err != nil {
		return &herrors.FSError{Path: newPath, Err: err}
	}
	return nil
}
