package config

import (
	"os"
	"path/filepath"
	"strings"
)

const appDirName = "tandem"

// GetConfigDir returns the directory holding settings.toml. XDG-style on
// every platform: ~/.config/tandem, with $XDG_CONFIG_HOME honored.
func GetConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appDirName)
	}
	return filepath.Join(GetHomeDir(), ".config", appDirName)
}

// GetDefaultDataDir returns where session files, the usage ledger, and logs
// live when the settings file does not override it.
func GetDefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appDirName)
	}
	return filepath.Join(GetHomeDir(), ".local", "share", appDirName)
}

// GetSettingsFilePath returns the path to settings.toml.
func GetSettingsFilePath() string {
	return filepath.Join(GetConfigDir(), "settings.toml")
}

// GetHomeDir returns the user's home directory, falling back to the root
// directory rather than erroring: path construction must not fail startup.
func GetHomeDir() string {
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return home
	}
	return string(os.PathSeparator)
}

// ExpandPath expands a leading ~ and any environment variables, then cleans
// the result.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		path = filepath.Join(GetHomeDir(), strings.TrimPrefix(path[1:], "/"))
	}
	return filepath.Clean(os.ExpandEnv(path))
}

// EnsureDir creates a user-only directory if missing.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0700)
}

// FileExists reports whether a path exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// EnsureDataDirPermissions creates the data directory if needed and tightens
// its permissions to user-only. Session files and the usage ledger carry
// conversation content; group/world access is never acceptable.
func EnsureDataDirPermissions(dataDir string) error {
	info, err := os.Stat(dataDir)
	if os.IsNotExist(err) {
		return os.MkdirAll(dataDir, 0700)
	}
	if err != nil {
		return err
	}
	if info.Mode().Perm() != 0700 {
		return os.Chmod(dataDir, 0700)
	}
	return nil
}
