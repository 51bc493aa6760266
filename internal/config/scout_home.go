package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetScoutHome returns the scout home directory
// Priority order:
//   1. SCOUT_HOME environment variable (if set)
//   2. ~/.scout in the user's home directory
//   3. .scout in the current working directory (fallback)
// The directory is created if it doesn't exist
func GetScoutHome() (string, error) {
	if home := os.Getenv("SCOUT_HOME"); home != "" {
		if err := os.MkdirAll(home, 0755); err != nil {
			return "", fmt.Errorf("create scout home directory: %w", err)
		}
		return home, nil
	}

	base, err := os.UserHomeDir()
	if err != nil {
		if base, err = os.Getwd(); err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}
	}

	scoutHome := filepath.Join(base, ".scout")
	if err := os.MkdirAll(scoutHome, 0755); err != nil {
		return "", fmt.Errorf("create scout home directory: %w", err)
	}
	return scoutHome, nil
}

// GetHistoryDBPath returns the journal database path for cfg
// An explicit history.db_path wins; otherwise $SCOUT_HOME/history.db
func GetHistoryDBPath(cfg *Config) (string, error) {
	if cfg != nil && cfg.History.DBPath != "" {
		return cfg.History.DBPath, nil
	}
	home, err := GetScoutHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "history.db"), nil
}
