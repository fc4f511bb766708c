package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/runger/hyperscripter/internal/herrors"
	"github.com/runger/hyperscripter/internal/orchestrate"
	"github.com/runger/hyperscripter/internal/query"
)

var rmCmd = &cobra.Command{
	Use:     "rm QUERY",
	Short:   "Remove a script's metadata, history, and file",
	GroupID: groupCore,
	Args:    cobra.ExactArgs(1),
	RunE:    runRm,
}

func runRm(c *cobra.Command, args []string) error {
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

	entry, err := app.Resolver().Resolve(ctx, q, orchestrate.PickerDisambiguator{})
	if err != nil {
		return err
	}

	info := entry.Info()
	path, err := app.pathFor(info.Name, info.Type)
	if err != nil {
		return err
	}

	if err := app.Repo.Remove(ctx, info.Name); err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return &herrors.FSError{Path: path, Err: err}
	}
	return nil
}
