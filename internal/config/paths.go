package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// DataDir returns the path to the llmgate data directory.
// - Windows: %APPDATA%\llmgate
// - Other OS: ~/.llmgate
func DataDir() string {
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "llmgate")
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ".llmgate"
	}
	return filepath.Join(home, ".llmgate")
}

// ConfigPath returns the path to the config file (~/.llmgate/config.toml).
func ConfigPath() string {
	if p := os.Getenv("LLMGATE_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(DataDir(), "config.toml")
}

// DBPath returns the path to the SQLite database file.
func DBPath() string {
	return filepath.Join(DataDir(), "llmgate.db")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0700)
}
