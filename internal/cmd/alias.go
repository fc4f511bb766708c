package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var aliasCmd = &cobra.Command{
	Use:     "alias [NAME [EXPANSION]]",
	Short:   "List, inspect, or register a query alias",
	GroupID: groupMaint,
	Args:    cobra.MaximumNArgs(2),
	RunE:    runAlias,
}

func runAlias(c *cobra.Command, args []string) error {
	ctx := c.Context()
	app, err := bootApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close() //nolint:errcheck

	switch len(args) {
	case 0:
		names := make([]string, 0, len(app.Config.Aliases))
		for name := range app.Config.Aliases {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("%s=%s\n", name, app.Config.Aliases[name])
		}
		return nil
	case 1:
		expansion, ok := app.Config.Alias(args[0])
		if !ok {
			return fmt.Errorf("cmd: no alias registered for %q", args[0])
		}
		fmt.Println(expansion)
		return nil
	default:
		return app.Config.SetAlias(args[0], args[1])
	}
}
