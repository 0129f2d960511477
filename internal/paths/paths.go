// Package paths resolves configuration and data directory locations.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// AppName names the per-user configuration and data directories.
const AppName = "fileractions"

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "FMA_CONFIG_DIR"
	EnvDataDir   = "FMA_DATA_DIR"
)

// ActionsSubdir is where descriptor files live below each XDG data
// directory.
const ActionsSubdir = "file-manager/actions"

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
// Linux:   $XDG_CONFIG_HOME/fileractions (fallback ~/.config/fileractions)
// macOS:   ~/Library/Application Support/fileractions
// Windows: %APPDATA%/fileractions
func DefaultConfigDir() (string, error) {
	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, AppName), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", AppName), nil
	default:
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, AppName), nil
	}
}

// DefaultDataDir returns the platform-specific default data directory.
//
// Linux:   $XDG_DATA_HOME/fileractions (fallback ~/.local/share/fileractions)
// macOS:   ~/Library/Application Support/fileractions
// Windows: %APPDATA%/fileractions
func DefaultDataDir() (string, error) {
	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, AppName), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".local", "share", AppName), nil
	default:
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, AppName), nil
	}
}

// SystemDesktopDirs returns the shared descriptor directories, one per
// entry of $XDG_DATA_DIRS (default /usr/local/share:/usr/share), in
// priority order.
func SystemDesktopDirs() []string {
	dirs := os.Getenv("XDG_DATA_DIRS")
	if dirs == "" {
		dirs = "/usr/local/share:/usr/share"
	}
	var out []string
	for _, d := range strings.Split(dirs, string(os.PathListSeparator)) {
		if d == "" {
			continue
		}
		out = append(out, filepath.Join(d, ActionsSubdir))
	}
	return out
}

// ResolveConfigDir returns the configuration directory following the precedence
// chain: flag > FMA_CONFIG_DIR env > DefaultConfigDir().
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
// flag > configured value > FMA_DATA_DIR env > DefaultDataDir().
func ResolveDataDir(flag, configured string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configured != "" {
		return filepath.Abs(configured)
	}
	if env := os.Getenv(EnvDataDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultDataDir()
}
