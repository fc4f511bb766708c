package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/runger/hyperscripter/internal/scriptname"
	"github.com/runger/hyperscripter/internal/scriptrepo"
)

// seedScript creates a real file on disk and a matching repository entry,
// the way `edit`/`collect` would leave the world after a successful run.
func seedScript(t *testing.T, app *App, name string, ty string, tags []string, content string) *scriptrepo.Entry {
	t.Helper()
	n, err := scriptname.Named(name)
	if err != nil {
		t.Fatalf("scriptname.Named(%q): %v", name, err)
	}
	tagSet := scriptname.TagSet{}
	for _, tg := range tags {
		tag, err := scriptname.NewTag(tg)
		if err != nil {
			t.Fatalf("scriptname.NewTag(%q): %v", tg, err)
		}
		tagSet[tag] = struct{}{}
	}

	path, err := app.pathFor(n, scriptname.Type(ty))
	if err != nil {
		t.Fatalf("pathFor: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	entry, err := app.Repo.Upsert(context.Background(), n, func() *scriptrepo.ScriptInfo {
		return scriptrepo.NewScriptInfo(n, scriptname.Type(ty), tagSet, time.Now())
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	return entry
}

func TestLsListsVisibleScripts(t *testing.T) {
	setupHome(t)

	app, err := bootApp(context.Background())
	if err != nil {
		t.Fatalf("bootApp: %v", err)
	}
	seedScript(t, app, "build", "sh", []string{"ci"}, "echo hi")
	seedScript(t, app, "deploy", "sh", nil, "echo deploy")
	app.Close() //nolint:errcheck

	out := captureStdout(t, func() {
		if err := runCmdE(t, runLs, nil); err != nil {
			t.Fatalf("runLs: %v", err)
		}
	})
	if !strings.Contains(out, "build") || !strings.Contains(out, "deploy") {
		t.Fatalf("expected both scripts listed, got %q", out)
	}
}

func TestWhichPrintsResolvedPath(t *testing.T) {
	home := setupHome(t)

	app, err := bootApp(context.Background())
	if err != nil {
		t.Fatalf("bootApp: %v", err)
	}
	seedScript(t, app, "deploy", "sh", nil, "echo deploy")
	app.Close() //nolint:errcheck

	out := captureStdout(t, func() {
		if err := runCmdE(t, runWhich, []string{"=deploy"}); err != nil {
			t.Fatalf("runWhich: %v", err)
		}
	})
	want := filepath.Join(home, "deploy.sh")
	if strings.TrimSpace(out) != want {
		t.Fatalf("runWhich output = %q, want %q", strings.TrimSpace(out), want)
	}
}

func TestTagsPersistAcrossInvocations(t *testing.T) {
	setupHome(t)

	if err := runCmdE(t, runTags, []string{"ci"}); err != nil {
		t.Fatalf("runTags push: %v", err)
	}

	app, err := bootApp(context.Background())
	if err != nil {
		t.Fatalf("bootApp: %v", err)
	}
	defer app.Close() //nolint:errcheck

	if got := app.Selector.Selectors(); len(got) != 1 || got[0].String() != "ci" {
		t.Fatalf("expected persisted selector [ci], got %v", got)
	}
}

func TestTagsClearResetsFilter(t *testing.T) {
	setupHome(t)

	if err := runCmdE(t, runTags, []string{"ci"}); err != nil {
		t.Fatalf("runTags push: %v", err)
	}

	tagsClear = true
	defer func() { tagsClear = false }()
	if err := runCmdE(t, runTags, nil); err != nil {
		t.Fatalf("runTags clear: %v", err)
	}

	app, err := bootApp(context.Background())
	if err != nil {
		t.Fatalf("bootApp: %v", err)
	}
	defer app.Close() //nolint:errcheck
	if got := app.Selector.Selectors(); len(got) != 0 {
		t.Fatalf("expected empty selector after clear, got %v", got)
	}
}

func TestAliasSetListGet(t *testing.T) {
	setupHome(t)

	if err := runCmdE(t, runAlias, []string{"dc", "=docker-compose"}); err != nil {
		t.Fatalf("runAlias set: %v", err)
	}

	out := captureStdout(t, func() {
		if err := runCmdE(t, runAlias, []string{"dc"}); err != nil {
			t.Fatalf("runAlias get: %v", err)
		}
	})
	if strings.TrimSpace(out) != "=docker-compose" {
		t.Fatalf("runAlias get = %q", out)
	}

	out = captureStdout(t, func() {
		if err := runCmdE(t, runAlias, nil); err != nil {
			t.Fatalf("runAlias list: %v", err)
		}
	})
	if !strings.Contains(out, "dc=") {
		t.Fatalf("runAlias list = %q", out)
	}
}

func TestRmDeletesFileAndEntry(t *testing.T) {
	home := setupHome(t)

	app, err := bootApp(context.Background())
	if err != nil {
		t.Fatalf("bootApp: %v", err)
	}
	seedScript(t, app, "scratch", "sh", nil, "echo scratch")
	app.Close() //nolint:errcheck

	if err := runCmdE(t, runRm, []string{"=scratch"}); err != nil {
		t.Fatalf("runRm: %v", err)
	}

	if _, err := os.Stat(filepath.Join(home, "scratch.sh")); !os.IsNotExist(err) {
		t.Fatalf("expected scratch.sh removed, stat err = %v", err)
	}

	app, err = bootApp(context.Background())
	if err != nil {
		t.Fatalf("bootApp: %v", err)
	}
	defer app.Close() //nolint:errcheck
	if e := app.Repo.GetHidden(mustName(t, "scratch")); e != nil {
		t.Fatalf("expected scratch entry removed")
	}
}

func TestMvRenamesFileAndEntry(t *testing.T) {
	home := setupHome(t)

	app, err := bootApp(context.Background())
	if err != nil {
		t.Fatalf("bootApp: %v", err)
	}
	seedScript(t, app, "old", "sh", []string{"ci"}, "echo old")
	app.Close() //nolint:errcheck

	if err := runCmdE(t, runMv, []string{"=old", "new"}); err != nil {
		t.Fatalf("runMv: %v", err)
	}

	if _, err := os.Stat(filepath.Join(home, "old.sh")); !os.IsNotExist(err) {
		t.Fatalf("expected old.sh gone")
	}
	data, err := os.ReadFile(filepath.Join(home, "new.sh"))
	if err != nil || string(data) != "echo old" {
		t.Fatalf("expected new.sh with old content, err=%v data=%q", err, data)
	}

	app, err = bootApp(context.Background())
	if err != nil {
		t.Fatalf("bootApp: %v", err)
	}
	defer app.Close() //nolint:errcheck
	if e := app.Repo.GetHidden(mustName(t, "new")); e == nil {
		t.Fatalf("expected renamed entry to exist under new name")
	}
}

func TestCpDuplicatesFileAndEntry(t *testing.T) {
	home := setupHome(t)

	app, err := bootApp(context.Background())
	if err != nil {
		t.Fatalf("bootApp: %v", err)
	}
	seedScript(t, app, "base", "sh", []string{"ci"}, "echo base")
	app.Close() //nolint:errcheck

	if err := runCmdE(t, runCp, []string{"=base", "copy"}); err != nil {
		t.Fatalf("runCp: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(home, "copy.sh"))
	if err != nil || string(data) != "echo base" {
		t.Fatalf("expected copy.sh duplicating base.sh, err=%v data=%q", err, data)
	}
	if _, err := os.Stat(filepath.Join(home, "base.sh")); err != nil {
		t.Fatalf("expected base.sh to survive the copy: %v", err)
	}
}

func TestCollectRegistersAndDropsLooseFiles(t *testing.T) {
	home := setupHome(t)

	dir := filepath.Join(home, "tools", "ci")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	loose := filepath.Join(dir, "build.sh")
	if err := os.WriteFile(loose, []byte("echo loose"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := runCmdE(t, runCollect, nil); err != nil {
		t.Fatalf("runCollect: %v", err)
	}

	app, err := bootApp(context.Background())
	if err != nil {
		t.Fatalf("bootApp: %v", err)
	}
	if e := app.Repo.GetHidden(mustName(t, "tools/ci/build")); e == nil {
		t.Fatalf("expected loose file collected as tools/ci/build")
	}
	app.Close() //nolint:errcheck

	if err := os.Remove(loose); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := runCmdE(t, runCollect, nil); err != nil {
		t.Fatalf("runCollect (drop pass): %v", err)
	}

	app, err = bootApp(context.Background())
	if err != nil {
		t.Fatalf("bootApp: %v", err)
	}
	defer app.Close() //nolint:errcheck
	if e := app.Repo.GetHidden(mustName(t, "tools/ci/build")); e != nil {
		t.Fatalf("expected collected entry dropped once its file vanished")
	}
}

func TestLoadUtilsImportsDirectory(t *testing.T) {
	setupHome(t)

	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "greet.sh"), []byte("echo hi"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := runCmdE(t, runLoadUtils, []string{src}); err != nil {
		t.Fatalf("runLoadUtils: %v", err)
	}

	app, err := bootApp(context.Background())
	if err != nil {
		t.Fatalf("bootApp: %v", err)
	}
	defer app.Close() //nolint:errcheck
	entry := app.Repo.GetHidden(mustName(t, "greet"))
	if entry == nil {
		t.Fatalf("expected greet imported")
	}
	if !entry.Info().Tags.Contains(mustTag(t, "util")) {
		t.Fatalf("expected imported script tagged util, got %v", entry.Info().Tags)
	}
}

func mustName(t *testing.T, s string) scriptname.Name {
	t.Helper()
	n, err := scriptname.Named(s)
	if err != nil {
		t.Fatalf("scriptname.Named(%q): %v", s, err)
	}
	return n
}

func mustTag(t *testing.T, s string) scriptname.Tag {
	t.Helper()
	tag, err := scriptname.NewTag(s)
	if err != nil {
		t.Fatalf("scriptname.NewTag(%q): %v", s, err)
	}
	return tag
}
