package types

import "errors"

// StateConfig selects the key-value store that persists session state
// (last-used agent, last opened board) between runs.
type StateConfig struct {
	Backend string `json:"backend" yaml:"backend"`
	Path    string `json:"path" yaml:"path"`
}

// Supported state backend names.
const (
	StateBackendSQLite = "sqlite"
	StateBackendMemory = "memory"
)

// State config validation errors.
var (
	ErrBackendEmpty   = errors.New("backend must not be empty")
	ErrBackendUnknown = errors.New("unknown backend")
	ErrPathRequired   = errors.New("path is required for this backend")
)

var knownBackends = map[string]bool{
	StateBackendSQLite: true,
	StateBackendMemory: true,
}

// Validate checks that the StateConfig is well-formed. It returns a sentinel
// error from this package on failure.
func (c StateConfig) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.Backend == StateBackendSQLite && c.Path == "" {
		return ErrPathRequired
	}
	return nil
}
