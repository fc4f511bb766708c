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

var collectCmd = &cobra.Command{
	Use:     "collect",
	Short:   "Register loose script files on disk and drop entries whose file vanished",
	GroupID: groupMaint,
	Args:    cobra.NoArgs,
	RunE:    runCollect,
}

// reservedEntries are filesystem entries under BaseDir that collect must
// never treat as loose scripts (spec §6 filesystem layout).
var reservedEntries = map[string]bool{
	".anonymous":      true,
	".process_lock":   true,
	".tag_filter":     true,
	".hs_exe_path":    true,
	".gitignore":      true,
	"config.yaml":     true,
	"script_infos.db": true,
}

func runCollect(c *cobra.Command, args []string) error {
	ctx := c.Context()
	app, err := bootApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close() //nolint:errcheck

	tracked := make(map[string]bool)
	for _, info := range app.Repo.IterAll() {
		if info.Name.IsAnonymous() {
			continue
		}
		path, err := app.pathFor(info.Name, info.Type)
		if err != nil {
			continue
		}
		tracked[path] = true
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			if err := app.Repo.Remove(ctx, info.Name); err != nil {
				return err
			}
			fmt.Printf("dropped %s: file gone\n", info.Name.Key())
		}
	}

	now := time.Now()
	err = filepath.WalkDir(app.Paths.BaseDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, relErr := filepath.Rel(app.Paths.BaseDir, path)
		if relErr != nil {
			return relErr
		}
		if rel == "." {
			return nil
		}
		top := strings.SplitN(rel, string(filepath.Separator), 2)[0]
		if reservedEntries[top] {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if tracked[path] {
			return nil
		}

		ext := strings.TrimPrefix(filepath.Ext(rel), ".")
		ty, ok := app.Config.TypeForExt(ext)
		if !ok {
			return nil
		}

		stem := strings.TrimSuffix(rel, filepath.Ext(rel))
		nameStr := strings.ReplaceAll(stem, string(filepath.Separator), "/")
		name, err := scriptname.Named(nameStr)
		if err != nil {
			return nil
		}
		if app.Repo.GetHidden(name) != nil {
			return nil
		}

		tags := scriptname.TagSet{}
		for _, seg := range name.Namespaces()[:len(name.Namespaces())-1] {
			if t, terr := scriptname.NewTag(seg); terr == nil {
				tags[t] = struct{}{}
			}
		}

		_, err = app.Repo.Upsert(ctx, name, func() *scriptrepo.ScriptInfo {
			return scriptrepo.NewScriptInfo(name, scriptname.Type(ty), tags, now)
		})
		if err != nil {
			return err
		}
		fmt.Printf("collected %s\n", name.Key())
		return nil
	})
	if err != nil {
		return &herrors.FSError{Path: app.Paths.BaseDir, Err: err}
	}
	return nil
}
