package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/google/shlex"
)

// execLauncher implements orchestrate.Launcher by rendering a script type's
// configured runner command ("{{path}}"/"{{args}}" template, spec §3's
// ScriptType resolution) and running it as a subprocess.
type execLauncher struct {
	cmdTemplate []string
}

func (l *execLauncher) Launch(ctx context.Context, path string, args []string, env []string) (int, error) {
	argv := renderCmd(l.cmdTemplate, path, args)
	if len(argv) == 0 {
		return 0, fmt.Errorf("cmd: script type has an empty runner command")
	}

	c := exec.CommandContext(ctx, argv[0], argv[1:]...)
	c.Env = env
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr

	err := c.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return 0, fmt.Errorf("cmd: launch %s: %w", path, err)
}

func renderCmd(tmpl []string, path string, args []string) []string {
	out := make([]string, 0, len(tmpl)+len(args))
	for _, t := range tmpl {
		switch t {
		case "{{path}}":
			out = append(out, path)
		case "{{args}}":
			out = append(out, args...)
		default:
			out = append(out, t)
		}
	}
	return out
}

// execEditor implements orchestrate.Editor by shelling out to the
// configured editor command, split into argv with shlex the same way
// clai's internal/cmd splits recorded argv for display.
type execEditor struct {
	command string
}

func (e *execEditor) Edit(ctx context.Context, path string) error {
	argv, err := shlex.Split(e.command)
	if err != nil || len(argv) == 0 {
		argv = []string{"vi"}
	}
	argv = append(argv, path)

	c := exec.CommandContext(ctx, argv[0], argv[1:]...)
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	if err := c.Run(); err != nil {
		return fmt.Errorf("cmd: edit %s: %w", path, err)
	}
	return nil
}
