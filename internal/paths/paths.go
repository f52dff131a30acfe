// Package paths resolves the board file, configuration and data directory
// locations.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// appName names the per-user directories.
const appName = "boardsync"

// File names.
const (
	DefaultBoardName = "board.md"
	ConfigFileName   = "config.yaml"
	StateFileName    = "state.db"
)

// Environment variable names for overrides.
const (
	EnvConfigDir = "BOARDSYNC_CONFIG_DIR"
	EnvDataDir   = "BOARDSYNC_DATA_DIR"
	EnvBoard     = "BOARDSYNC_BOARD"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/boardsync (fallback ~/.config/boardsync)
// macOS:   ~/Library/Application Support/boardsync
// Windows: %APPDATA%/boardsync
func DefaultConfigDir() (string, error) {
	if runtime.GOOS == "linux" {
		return xdgDir("XDG_CONFIG_HOME", ".config")
	}
	dir, err := platformDir.userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName), nil
}

// DefaultDataDir returns the platform-specific default data directory.
//
// Linux:   $XDG_DATA_HOME/boardsync (fallback ~/.local/share/boardsync)
// macOS:   ~/Library/Application Support/boardsync
// Windows: %APPDATA%/boardsync
func DefaultDataDir() (string, error) {
	if runtime.GOOS == "linux" {
		return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
	}
	dir, err := platformDir.userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName), nil
}

func xdgDir(env, fallback string) (string, error) {
	if xdg := os.Getenv(env); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, fallback, appName), nil
}

// ResolveConfigDir returns the configuration directory following the precedence
// chain: flag > BOARDSYNC_CONFIG_DIR env > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir returns the data directory following the precedence chain:
// flag > configValue > BOARDSYNC_DATA_DIR env > DefaultDataDir().
func ResolveDataDir(flag, configValue string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configValue != "" {
		return filepath.Abs(configValue)
	}
	if env := os.Getenv(EnvDataDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultDataDir()
}

// ResolveBoard returns the board file following the precedence chain:
// flag > BOARDSYNC_BOARD env > configValue > board.md in the working
// directory.
func ResolveBoard(flag, configValue string) (string, error) {
	for _, p := range []string{flag, os.Getenv(EnvBoard), configValue} {
		if p != "" {
			return filepath.Abs(p)
		}
	}
	return filepath.Abs(DefaultBoardName)
}
