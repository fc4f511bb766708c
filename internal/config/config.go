package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// TypeConfig describes how a ScriptType is turned into a runnable file:
// the extension it is saved with, and the command used to run it
// (spec §3, "ScriptType is an opaque identifier ... resolved against
// config for extension and runner command").
type TypeConfig struct {
	Ext string   `yaml:"ext"`
	Cmd []string `yaml:"cmd"`
}

// Config is hyper-scripter's configuration file, loaded once at CLI boot
// and passed explicitly to orchestration entry points (spec §9 design
// note: no global Config::get() singleton).
type Config struct {
	// Types maps a ScriptType name (e.g. "sh", "rb", "tmux") to its
	// extension and runner command. "{{path}}" in Cmd is replaced with
	// the script's file path; "{{args}}" with its argument list.
	Types map[string]TypeConfig `yaml:"types"`

	// DefaultType is used by `edit_or_create` when no --type flag is given.
	DefaultType string `yaml:"default_type"`

	// Editor is the command used to open a script for editing. Falls
	// back to $EDITOR if empty.
	Editor string `yaml:"editor"`

	// Aliases maps a short alias word to the query text it expands to,
	// backing the CLI's `alias` command.
	Aliases map[string]string `yaml:"aliases,omitempty"`
}

// DefaultConfig returns hyper-scripter's built-in script types.
func DefaultConfig() *Config {
	return &Config{
		DefaultType: "sh",
		Types: map[string]TypeConfig{
			"sh":   {Ext: "sh", Cmd: []string{"sh", "{{path}}"}},
			"bash": {Ext: "sh", Cmd: []string{"bash", "{{path}}"}},
			"rb":   {Ext: "rb", Cmd: []string{"ruby", "{{path}}"}},
			"py":   {Ext: "py", Cmd: []string{"python3", "{{path}}"}},
			"js":   {Ext: "js", Cmd: []string{"node", "{{path}}"}},
			"tmux": {Ext: "sh", Cmd: []string{"tmux", "new-window", "{{path}}"}},
		},
	}
}

// Load reads the configuration file at the default path, or returns
// DefaultConfig() if it does not exist yet.
func Load() (*Config, error) {
	return LoadFromFile(DefaultPaths().ConfigFile())
}

// LoadFromFile reads a configuration file. A missing file is not an error:
// it resolves to DefaultConfig() so a fresh $HS_HOME works out of the box.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to the default path.
func (c *Config) Save() error {
	return c.SaveToFile(DefaultPaths().ConfigFile())
}

// SaveToFile writes the configuration as YAML to path.
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if len(c.Types) == 0 {
		return errors.New("config must define at least one script type")
	}
	if c.DefaultType != "" {
		if _, ok := c.Types[c.DefaultType]; !ok {
			return fmt.Errorf("default_type %q is not defined in types", c.DefaultType)
		}
	}
	for name, t := range c.Types {
		if t.Ext == "" {
			return fmt.Errorf("type %q: ext must not be empty", name)
		}
		if len(t.Cmd) == 0 {
			return fmt.Errorf("type %q: cmd must not be empty", name)
		}
	}
	return nil
}

// Resolve looks up a ScriptType's TypeConfig, or reports that it is unknown.
func (c *Config) Resolve(scriptType string) (TypeConfig, error) {
	t, ok := c.Types[scriptType]
	if !ok {
		return TypeConfig{}, fmt.Errorf("unknown script type %q", scriptType)
	}
	return t, nil
}

// EditorCommand returns the configured editor, falling back to $EDITOR
// and finally "vi".
func (c *Config) EditorCommand() string {
	if c.Editor != "" {
		return c.Editor
	}
	if e := os.Getenv("EDITOR"); e != "" {
		return e
	}
	return "vi"
}

// TypeForExt reverse-looks-up a ScriptType by its file extension, used by
// `collect`/`load-utils` to infer a script's type from a bare file on disk.
func (c *Config) TypeForExt(ext string) (string, bool) {
	for name, t := range c.Types {
		if t.Ext == ext {
			return name, true
		}
	}
	return "", false
}

// Alias resolves a registered alias word to its expansion, if any.
func (c *Config) Alias(name string) (string, bool) {
	expansion, ok := c.Aliases[name]
	return expansion, ok
}

// SetAlias registers or overwrites an alias and persists the config.
func (c *Config) SetAlias(name, expansion string) error {
	if c.Aliases == nil {
		c.Aliases = make(map[string]string)
	}
	c.Aliases[name] = expansion
	return c.Save()
}
