// Package main is the entry point for the hs CLI.
package main

import (
	"os"

	"github.com/runger/hyperscripter/internal/cmd"
	"github.com/runger/hyperscripter/internal/herrors"
)

func main() {
	err := cmd.Execute()
	os.Exit(herrors.ExitCode(err))
}
