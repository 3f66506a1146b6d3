// Package workdir resolves where scribe keeps its local state on disk.
package workdir

import (
	"fmt"
	"os"
	"path/filepath"
)

// Root returns the base directory for scribe's local files.
// The path is expanded at runtime to resolve to:
//
//	$XDG_CONFIG_HOME/scribe (or the platform equivalent)
func Root() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(dir, "scribe"), nil
}

// FilePath returns the full path for a named file under dir.
// When dir is empty the Root is used.
func FilePath(dir, filename string) (string, error) {
	if dir == "" {
		root, err := Root()
		if err != nil {
			return "", err
		}
		dir = root
	}
	return filepath.Join(dir, filename), nil
}

// Prep ensures that dir exists with owner-only permissions.
func Prep(dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create working directory %s: %w", dir, err)
	}

	return nil
}
