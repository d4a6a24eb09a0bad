// Package paths resolves the configuration directory and the database file
// location.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the per-user directories.
const AppName = "timecard"

// DefaultDBFileName is the database file created in the data directory.
const DefaultDBFileName = "timecard.sqlite"

// Environment variable names for location overrides.
const (
	EnvConfigDir = "TIMECARD_CONFIG_DIR"
	EnvDB        = "TIMECARD_DB"
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
// Linux:   $XDG_CONFIG_HOME/timecard (fallback ~/.config/timecard)
// macOS:   ~/Library/Application Support/timecard
// Windows: %APPDATA%/timecard
func DefaultConfigDir() (string, error) {
	if runtime.GOOS == "linux" {
		return xdgDir("XDG_CONFIG_HOME", ".config")
	}
	dir, err := platformDir.userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppName), nil
}

// DefaultDataDir returns the platform-specific default data directory.
//
// Linux:   $XDG_DATA_HOME/timecard (fallback ~/.local/share/timecard)
// macOS:   ~/Library/Application Support/timecard
// Windows: %APPDATA%/timecard
func DefaultDataDir() (string, error) {
	if runtime.GOOS == "linux" {
		return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
	}
	dir, err := platformDir.userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppName), nil
}

func xdgDir(env, fallback string) (string, error) {
	if xdg := os.Getenv(env); xdg != "" {
		return filepath.Join(xdg, AppName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, fallback, AppName), nil
}

// ResolveConfigDir returns the configuration directory following the precedence
// chain: flag > TIMECARD_CONFIG_DIR env > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDBPath returns the database file following the precedence chain:
// flag > configYAMLValue > TIMECARD_DB env > DefaultDataDir()/timecard.sqlite.
// The result is always absolute.
func ResolveDBPath(flag, configYAMLValue string) (string, error) {
	for _, p := range []string{flag, configYAMLValue, os.Getenv(EnvDB)} {
		if p != "" {
			return filepath.Abs(p)
		}
	}
	dir, err := DefaultDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultDBFileName), nil
}
