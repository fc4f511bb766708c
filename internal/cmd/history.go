package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runger/hyperscripter/internal/historian"
	"github.com/runger/hyperscripter/internal/orchestrate"
	"github.com/runger/hyperscripter/internal/query"
	"github.com/runger/hyperscripter/internal/scriptrepo"
)

var (
	historyLimit    int
	historyOffset   int
	historyIgnore   int
	historyIgnoreTo int
	historyAmendID  int64
	historyAmendTo  string
	historyTidy     bool
)

var historyCmd = &cobra.Command{
	Use:   "history QUERY",
	Short: "Show, ignore, amend, or tidy a script's recorded invocations",
	Long: `Show a script's recent distinct invocation arguments.

With no mutating flag, lists the --limit most recent distinct-args groups
(skipping --offset). --ignore N hides the Nth most recent group (and, with
--ignore-to M, every group back through the Mth); --amend-id/--amend-args
replaces one event's recorded args; --tidy discards non-newest duplicate
rows outright.`,
	GroupID: groupCore,
	Args:    cobra.ExactArgs(1),
	RunE:    runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "maximum number of argument groups to show")
	historyCmd.Flags().IntVar(&historyOffset, "offset", 0, "skip this many argument groups")
	historyCmd.Flags().IntVar(&historyIgnore, "ignore", 0, "ignore the Nth (1-based) most recent distinct-args group")
	historyCmd.Flags().IntVar(&historyIgnoreTo, "ignore-to", 0, "with --ignore, ignore back through this 1-based group too")
	historyCmd.Flags().Int64Var(&historyAmendID, "amend-id", 0, "un-ignore this event id and overwrite its args")
	historyCmd.Flags().StringVar(&historyAmendTo, "amend-args", "", "new args for --amend-id")
	historyCmd.Flags().BoolVar(&historyTidy, "tidy", false, "discard non-newest duplicate-args Exec rows")
}

func runHistory(c *cobra.Command, args []string) error {
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
	scriptID := entry.Info().ID

	switch {
	case historyAmendID != 0:
		return app.Historian.AmendArgsByID(ctx, historyAmendID, historyAmendTo)
	case historyTidy:
		return app.Historian.Tidy(ctx, scriptID)
	case historyIgnore > 0:
		var res *historian.IgnoreResult
		if historyIgnoreTo > 0 {
			res, err = app.Historian.IgnoreArgsRange(ctx, scriptID, historyIgnore, historyIgnoreTo)
		} else {
			res, err = app.Historian.IgnoreArgs(ctx, scriptID, historyIgnore)
		}
		if err != nil {
			return err
		}
		if res != nil {
			return entry.Update(ctx, func(s *scriptrepo.ScriptInfo) {
				s.RefreshAfterIgnore(res.ExecTime, res.ExecDoneTime)
			})
		}
		return nil
	}

	list, err := app.Historian.LastArgsList(ctx, scriptID, historyLimit, historyOffset)
	if err != nil {
		return err
	}
	for _, args := range list {
		fmt.Println(args)
	}
	return nil
}
