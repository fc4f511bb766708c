package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"

	"github.com/spf13/cobra"
)

// setupHome points HS_HOME at a fresh temp directory for the duration of
// the test, mirroring clai's history_cmd_test.go setupHistoryStore helper.
func setupHome(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	t.Setenv("HS_HOME", root)
	return root
}

// runCmdE invokes an RunE function the way cobra would, seeding a context
// since direct (non-Execute) invocation never populates cmd.Context().
func runCmdE(t *testing.T, run func(*cobra.Command, []string) error, args []string) error {
	t.Helper()
	c := &cobra.Command{}
	c.SetContext(context.Background())
	return run(c, args)
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe() failed: %v", err)
	}
	os.Stdout = w

	outC := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		outC <- buf.String()
	}()

	fn()
	_ = w.Close()
	os.Stdout = old
	out := <-outC
	_ = r.Close()
	return out
}
