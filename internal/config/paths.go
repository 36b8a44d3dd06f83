package config

import (
	"os"
	"path/filepath"
)

// EpigraphPath returns the root directory for Epigraph data.
// It uses $EPIGRAPH_PATH if set, otherwise defaults to ~/.epigraph.
func EpigraphPath() string {
	if v := os.Getenv("EPIGRAPH_PATH"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".epigraph")
	}
	return filepath.Join(home, ".epigraph")
}

// ConfigPath returns the path to the Epigraph config file.
func ConfigPath() string {
	return filepath.Join(EpigraphPath(), "config.jsonc")
}

// DotenvPath returns the path to the Epigraph .env file.
func DotenvPath() string {
	return filepath.Join(EpigraphPath(), ".env")
}
