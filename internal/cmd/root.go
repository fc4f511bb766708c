package cmd

import (
	"github.com/spf13/cobra"
)

// Command group IDs
const (
	groupCore  = "core"
	groupMaint = "maint"
)

var rootCmd = &cobra.Command{
	Use:   "hs",
	Short: "a personal script manager",
	Long: `hs - register scripts under short names and tags, then find and run
them by fuzzy name, tag filter, or recency ("previous") reference.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: groupCore, Title: "Core Commands:"},
		&cobra.Group{ID: groupMaint, Title: "Maintenance:"},
	)

	// Core commands
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(mvCmd)
	rootCmd.AddCommand(cpCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(tagsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(whichCmd)

	// Maintenance commands
	rootCmd.AddCommand(aliasCmd)
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(loadUtilsCmd)
}
