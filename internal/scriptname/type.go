package scriptname

import "github.com/runger/hyperscripter/internal/config"

// Type is the opaque ScriptType identifier (spec §3): the core treats it as
// a string key, deferring extension/runner resolution to config.
type Type string

// Resolve looks up t's TypeConfig (extension + runner command) in cfg.
func (t Type) Resolve(cfg *config.Config) (config.TypeConfig, error) {
	return cfg.Resolve(string(t))
}

// String implements fmt.Stringer.
func (t Type) String() string { return string(t) }
