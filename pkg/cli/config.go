package cli

import (
	"os"
	"path/filepath"
)

// ConfigDir returns the path to ~/.bqbridge/.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".bqbridge")
}

// ConfigPath returns the path to ~/.bqbridge/config.yaml.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
