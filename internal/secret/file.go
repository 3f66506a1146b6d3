package secret

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/alkime/scribe/internal/workdir"
)

// FileBackend stores each slot as a file in a directory.
// Used on hosts without a keychain service (headless Linux, containers).
type FileBackend struct {
	dir string
}

// NewFileBackend creates a file backend rooted at dir.
// An empty dir means workdir.Root().
func NewFileBackend(dir string) *FileBackend {
	return &FileBackend{dir: dir}
}

// Load reads a slot file.
func (f *FileBackend) Load(slot string) (string, error) {
	path, err := workdir.FilePath(f.dir, slot)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is built from a constant slot name
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	return strings.TrimSpace(string(data)), nil
}

// Save writes a slot file with owner-only permissions.
func (f *FileBackend) Save(slot, value string) error {
	path, err := workdir.FilePath(f.dir, slot)
	if err != nil {
		return err
	}

	dir := f.dir
	if dir == "" {
		if dir, err = workdir.Root(); err != nil {
			return err
		}
	}
	if err := workdir.Prep(dir); err != nil {
		return err
	}

	if err := os.WriteFile(path, []byte(value), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}

// Delete removes a slot file.
func (f *FileBackend) Delete(slot string) error {
	path, err := workdir.FilePath(f.dir, slot)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}

	return nil
}
