package cmd

import (
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/runger/hyperscripter/internal/herrors"
	"github.com/runger/hyperscripter/internal/orchestrate"
	"github.com/runger/hyperscripter/internal/query"
	"github.com/runger/hyperscripter/internal/scriptname"
)

var (
	runRepeat      int
	runDummy       bool
	runPrevious    bool
	runErrorNoPrev bool
	runPreviousDir bool
)

var runCmd = &cobra.Command{
	Use:     "run QUERY [-- ARGS...]",
	Short:   "Resolve and run a script",
	GroupID: groupCore,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runRun,
}

func init() {
	runCmd.Flags().IntVarP(&runRepeat, "repeat", "r", 1, "number of times to run the script")
	runCmd.Flags().BoolVar(&runDummy, "dummy", false, "record the invocation without launching the script")
	runCmd.Flags().BoolVarP(&runPrevious, "previous", "p", false, "prepend the previously recorded args")
	runCmd.Flags().BoolVar(&runErrorNoPrev, "error-no-previous", false, "fail instead of running bare when --previous has nothing to prepend")
	runCmd.Flags().BoolVar(&runPreviousDir, "previous-here", false, "scope --previous to executions from the current working directory")
}

func runRun(c *cobra.Command, args []string) error {
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
	scriptArgs := args[1:]

	resolver := app.Resolver()
	entry, err := resolver.Resolve(ctx, q, orchestrate.PickerDisambiguator{})
	if err != nil {
		return err
	}

	info := entry.Info()
	tc, err := app.Config.Resolve(string(info.Type))
	if err != nil {
		return err
	}
	path, err := app.pathFor(info.Name, info.Type)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	cwd, err := os.Getwd()
	if err != nil {
		return &herrors.FSError{Path: ".", Err: err}
	}
	exe, err := os.Executable()
	if err != nil {
		exe = "hs"
	}

	env := append(os.Environ(),
		"HS_NAME="+info.Name.Key(),
		"HS_TAGS="+strings.Join(tagSlice(info.Tags), ","),
		"HS_EXE="+exe,
		"HS_HOME="+app.Paths.BaseDir,
		"HS_RUN_ID="+runID,
	)

	var caution orchestrate.Prompter
	if cautionTag, err := scriptname.NewTag("caution"); err == nil && info.Tags.Contains(cautionTag) {
		caution = stdinPrompter{}
	}

	launcher := &execLauncher{cmdTemplate: tc.Cmd}

	result, err := orchestrate.RunNTimes(
		ctx, resolver, app.Historian, entry, app.Paths.ProcessLockDir(), runID,
		scriptArgs, cwd, runRepeat, runDummy, runPrevious, runErrorNoPrev, runPreviousDir,
		caution, launcher, path, env, time.Now,
	)
	if err != nil {
		return err
	}
	if len(result.Failures) > 0 {
		return result.Failures[0]
	}
	return nil
}
