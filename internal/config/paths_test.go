package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPaths_HonorsHSHome(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HS_HOME", dir)

	p := DefaultPaths()
	assert.Equal(t, dir, p.BaseDir)
	assert.Equal(t, filepath.Join(dir, "script_infos.db"), p.DatabaseFile())
	assert.Equal(t, filepath.Join(dir, ".anonymous"), p.AnonymousDir())
	assert.Equal(t, filepath.Join(dir, ".process_lock"), p.ProcessLockDir())
}

func TestDefaultPaths_FallsBackToHome(t *testing.T) {
	t.Setenv("HS_HOME", "")
	p := DefaultPaths()
	assert.Equal(t, homeDir(), p.BaseDir)
}

func TestAnonymousScriptPath(t *testing.T) {
	p := &Paths{BaseDir: "/tmp/hs"}
	assert.Equal(t, "/tmp/hs/.anonymous/7.sh", p.AnonymousScriptPath(7, "sh"))
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	p := &Paths{BaseDir: filepath.Join(dir, "nested")}
	require.NoError(t, p.EnsureDirectories())

	for _, d := range []string{p.BaseDir, p.AnonymousDir(), p.ProcessLockDir()} {
		info, err := os.Stat(d)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
