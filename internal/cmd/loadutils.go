package cmd

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/runger/hyperscripter/internal/herrors"
	"github.com/runger/hyperscripter/internal/scriptname"
	"github.com/runger/hyperscripter/internal/scriptrepo"
)

var loadUtilsCmd = &cobra.Command{
	Use:     "load-utils SRCDIR",
	Short:   "Import a directory of bundled scripts, tagged util",
	GroupID: groupMaint,
	Args:    cobra.ExactArgs(1),
	RunE:    runLoadUtils,
}

func runLoadUtils(c *cobra.Command, args []string) error {
	ctx := c.Context()
	app, err := bootApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close() //nolint:errcheck

	srcDir := args[0]
	utilTag, err := scriptname.NewTag("util")
	if err != nil {
		return err
	}
	now := time.Now()

	return filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		ext := strings.TrimPrefix(filepath.Ext(rel), ".")
		ty, ok := app.Config.TypeForExt(ext)
		if !ok {
			fmt.Printf("skipping %s: unrecognized extension\n", rel)
			return nil
		}

		stem := strings.TrimSuffix(rel, filepath.Ext(rel))
		nameStr := strings.ReplaceAll(stem, string(filepath.Separator), "/")
		name, err := scriptname.Named(nameStr)
		if err != nil {
			return nil
		}

		dstPath, err := app.pathFor(name, scriptname.Type(ty))
		if err != nil {
			return err
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return &herrors.FSError{Path: path, Err: err}
		}
		if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
			return &herrors.FSError{Path: dstPath, Err: err}
		}
		if err := os.WriteFile(dstPath, content, 0o644); err != nil {
			return &herrors.FSError{Path: dstPath, Err: err}
		}

		_, err = app.Repo.Upsert(ctx, name, func() *scriptrepo.ScriptInfo {
			return scriptrepo.NewScriptInfo(name, scriptname.Type(ty), scriptname.NewTagSet(utilTag), now)
		})
		if err != nil {
			return err
		}
		fmt.Printf("loaded %s\n", name.Key())
		return nil
	})
}
