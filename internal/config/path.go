package config

import (
	"os"
	"path/filepath"
	"strings"
)

const appDir = "quote"

// ExpandPath resolves a leading ~ and $VAR references in a configured path.
// Environment variables are expanded first, so "$HOME/x" and "~/x" agree.
func ExpandPath(path string) string {
	path = os.ExpandEnv(path)
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
}

// ConfigDir is where config.yaml is looked up: $XDG_CONFIG_HOME/quote, or
// ~/.config/quote.
func ConfigDir() string {
	return xdgDir("XDG_CONFIG_HOME", "~/.config")
}

// DefaultStatePath is the SQLite state file used when state.path is unset:
// $XDG_DATA_HOME/quote/state.db, or ~/.local/share/quote/state.db.
func DefaultStatePath() string {
	return filepath.Join(xdgDir("XDG_DATA_HOME", "~/.local/share"), "state.db")
}

func xdgDir(env, fallback string) string {
	base := os.Getenv(env)
	if base == "" || !filepath.IsAbs(base) {
		base = fallback
	}
	return filepath.Join(ExpandPath(base), appDir)
}
