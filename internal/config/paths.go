package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nixpr/nixpr/internal/constants"
)

// HomeDir returns the nixpr home directory path. NIXPR_HOME overrides the
// default of ~/.nixpr.
func HomeDir() (string, error) {
	if home := os.Getenv("NIXPR_HOME"); home != "" {
		return home, nil
	}

	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(userHome, constants.NixprHome), nil
}

// LogFilePath returns the path to the rotating CLI log file.
func LogFilePath() (string, error) {
	home, err := HomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, constants.LogsDir, constants.CLILogFileName), nil
}
