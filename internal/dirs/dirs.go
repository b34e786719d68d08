// Package dirs resolves the per-user directories of the application.
package dirs

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
)

const appName = "wfstui"

// AppName returns the canonical application name for directory paths.
func AppName() string {
	return appName
}

// ConfigDir returns the app's configuration directory.
// - Linux: $XDG_CONFIG_HOME/wfstui or ~/.config/wfstui
// - macOS: ~/Library/Application Support/wfstui
// - Windows: %AppData%/wfstui (fallback to os.UserConfigDir)
func ConfigDir() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", AppName()), nil
	case "linux":
		xdg := os.Getenv("XDG_CONFIG_HOME")
		if xdg != "" {
			return filepath.Join(xdg, AppName()), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", AppName()), nil
	default:
		// Windows and other OSes fall back to UserConfigDir
		cfg, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(cfg, AppName()), nil
	}
}

// StateDir returns the app's state directory.
// - Linux: $XDG_STATE_HOME/wfstui or ~/.local/state/wfstui
// - macOS: ~/Library/Application Support/wfstui/state
// - Windows: %LocalAppData%/wfstui/state (fallback to ConfigDir/state)
func StateDir() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", AppName(), "state"), nil
	case "linux":
		xdg := os.Getenv("XDG_STATE_HOME")
		if xdg != "" {
			return filepath.Join(xdg, AppName()), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".local", "state", AppName()), nil
	default:
		// Windows and others: try LocalAppData, else fall back under config
		if la := os.Getenv("LOCALAPPDATA"); la != "" {
			return filepath.Join(la, AppName(), "state"), nil
		}
		cfg, err := ConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(cfg, "state"), nil
	}
}

// LogsDir returns the directory holding the rotating log file.
func LogsDir() (string, error) {
	s, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(s, "logs"), nil
}

// ProfilesDir returns the default location for saved wipe profiles.
func ProfilesDir() (string, error) {
	c, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(c, "profiles"), nil
}

// Ensure creates the directory if it doesn't exist.
func Ensure(path string) error {
	if path == "" {
		return errors.New("empty path")
	}
	return os.MkdirAll(path, 0o755)
}

// EnsureAll ensures the config, state and logs dirs exist.
func EnsureAll() error {
	for _, dir := range []func() (string, error){ConfigDir, StateDir, LogsDir} {
		p, err := dir()
		if err != nil {
			continue
		}
		if err := Ensure(p); err != nil {
			return err
		}
	}
	return nil
}
