package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Contains(t, cfg.Types, cfg.DefaultType)
}

func TestLoadFromFile_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFromFile(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().DefaultType, cfg.DefaultType)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Types["pl"] = TypeConfig{Ext: "pl", Cmd: []string{"perl", "{{path}}"}}

	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Types["pl"], loaded.Types["pl"])
}

func TestValidate_RejectsUnknownDefaultType(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultType = "nonexistent"
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsEmptyTypes(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, cfg.Validate())
}

func TestResolve(t *testing.T) {
	cfg := DefaultConfig()
	tc, err := cfg.Resolve("sh")
	require.NoError(t, err)
	assert.Equal(t, "sh", tc.Ext)

	_, err = cfg.Resolve("nope")
	assert.Error(t, err)
}
