// Package config loads boardsync settings from config.yaml and the
// environment using viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/boardsync/internal/cache"
	"github.com/mesh-intelligence/boardsync/internal/paths"
	"github.com/mesh-intelligence/boardsync/internal/scheduler"
	"github.com/mesh-intelligence/boardsync/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "BOARDSYNC"
)

// Config keys.
const (
	KeyBoard        = "board"
	KeyDataDir      = "data_dir"
	KeyFileDebounce = "debounce.file"
	KeyEditDebounce = "debounce.edit"
	KeyTolerance    = "tolerance.parse_failures"
	KeyLogLevel     = "log.level"
	KeyLogFormat    = "log.format"
	KeyStateBackend = "state.backend"
	KeyStatePath    = "state.path"
)

// Log formats.
const (
	LogFormatText   = "text"
	LogFormatJSON   = "json"
	LogFormatLogfmt = "logfmt"
)

// ErrInvalid is returned for settings that fail validation.
var ErrInvalid = errors.New("invalid configuration")

// defaultConfigYAML is the content written to config.yaml on first run.
const defaultConfigYAML = `# boardsync configuration

# Board file (optional; overridable by --board and BOARDSYNC_BOARD)
# board: board.md

# Quiet periods before a change is re-read
debounce:
  file: 150ms
  edit: 500ms

# Consecutive unparseable reads shown over the last good board
tolerance:
  parse_failures: 3

log:
  level: warn
  format: text

# Session state (last-used agent, last opened board)
state:
  backend: sqlite
  # path: defaults to state.db in the data directory
`

// Config is the resolved settings.
type Config struct {
	Board        string
	DataDir      string
	FileDebounce time.Duration
	EditDebounce time.Duration
	Tolerance    int
	LogLevel     string
	LogFormat    string
	State        types.StateConfig
	// File is the config file that was read, or empty.
	File string
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	return &Config{
		FileDebounce: scheduler.DefaultFileDebounce,
		EditDebounce: scheduler.DefaultEditDebounce,
		Tolerance:    cache.DefaultTolerance,
		LogLevel:     "warn",
		LogFormat:    LogFormatText,
		State:        types.StateConfig{Backend: types.StateBackendSQLite},
	}
}

// Load reads config.yaml from configDir, creating the directory and a
// default file on first run. Environment variables prefixed BOARDSYNC_
// override file values (BOARDSYNC_DEBOUNCE_FILE for debounce.file).
func Load(configDir string) (*Config, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	def := Default()
	v.SetDefault(KeyFileDebounce, def.FileDebounce)
	v.SetDefault(KeyEditDebounce, def.EditDebounce)
	v.SetDefault(KeyTolerance, def.Tolerance)
	v.SetDefault(KeyLogLevel, def.LogLevel)
	v.SetDefault(KeyLogFormat, def.LogFormat)
	v.SetDefault(KeyStateBackend, def.State.Backend)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		Board:        v.GetString(KeyBoard),
		DataDir:      v.GetString(KeyDataDir),
		FileDebounce: v.GetDuration(KeyFileDebounce),
		EditDebounce: v.GetDuration(KeyEditDebounce),
		Tolerance:    v.GetInt(KeyTolerance),
		LogLevel:     strings.ToLower(v.GetString(KeyLogLevel)),
		LogFormat:    strings.ToLower(v.GetString(KeyLogFormat)),
		State: types.StateConfig{
			Backend: v.GetString(KeyStateBackend),
			Path:    v.GetString(KeyStatePath),
		},
		File: v.ConfigFileUsed(),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the tuning values. The state section is validated when the
// store is opened, after its default path is filled in.
func (c *Config) Validate() error {
	switch {
	case c.FileDebounce < 0:
		return fmt.Errorf("%w: %s must not be negative", ErrInvalid, KeyFileDebounce)
	case c.EditDebounce < 0:
		return fmt.Errorf("%w: %s must not be negative", ErrInvalid, KeyEditDebounce)
	case c.Tolerance < 1:
		return fmt.Errorf("%w: %s must be at least 1", ErrInvalid, KeyTolerance)
	}
	switch c.LogFormat {
	case LogFormatText, LogFormatJSON, LogFormatLogfmt:
	default:
		return fmt.Errorf("%w: unknown %s %q", ErrInvalid, KeyLogFormat, c.LogFormat)
	}
	return nil
}

// StatePath returns the state database path: state.path when set, otherwise
// state.db under the resolved data directory.
func (c *Config) StatePath(dataDirFlag string) (string, error) {
	if c.State.Path != "" {
		return filepath.Abs(c.State.Path)
	}
	dir, err := paths.ResolveDataDir(dataDirFlag, c.DataDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, paths.StateFileName), nil
}

// ensureDefaultConfigFile creates a default config.yaml if the file does not
// exist in the config directory.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, paths.ConfigFileName)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
