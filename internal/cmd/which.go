package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runger/hyperscripter/internal/orchestrate"
	"github.com/runger/hyperscripter/internal/query"
)

var whichCmd = &cobra.Command{
	Use:     "which QUERY",
	Short:   "Print the resolved path of a script without running it",
	GroupID: groupCore,
	Args:    cobra.ExactArgs(1),
	RunE:    runWhich,
}

func runWhich(c *cobra.Command, args []string) error {
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
	fmt.Println(path)
	return nil
}
