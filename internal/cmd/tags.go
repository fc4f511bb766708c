package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runger/hyperscripter/internal/tagselector"
)

var tagsClear bool

var tagsCmd = &cobra.Command{
	Use:     "tags [SELECTOR...]",
	Short:   "View or change the persisted tag-selector filter",
	GroupID: groupCore,
	RunE:    runTags,
}

func init() {
	tagsCmd.Flags().BoolVar(&tagsClear, "clear", false, "drop the persisted tag filter back to empty")
}

func runTags(c *cobra.Command, args []string) error {
	ctx := c.Context()
	app, err := bootApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close() //nolint:errcheck

	if tagsClear {
		app.Selector = &tagselector.Group{}
		return app.saveSelector()
	}

	if len(args) == 0 {
		for _, s := range app.Selector.Selectors() {
			fmt.Println(s.String())
		}
		return nil
	}

	for _, raw := range args {
		sel, err := tagselector.Parse(raw)
		if err != nil {
			return err
		}
		app.Selector.Push(sel)
	}
	return app.saveSelector()
}
