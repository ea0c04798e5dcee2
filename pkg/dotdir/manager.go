// Package dotdir finds the .overlap directory that holds config.toml.
//
// A directory passed on the command line always wins. Otherwise a project
// local ./.overlap is used when present, and ~/.overlap is the catch-all.
package dotdir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DirName is the directory name searched for in the working and home
// directories.
const DirName = ".overlap"

// ErrNotDirectory is returned when the resolved location exists but is a file.
var ErrNotDirectory = errors.New("overlap directory path is not a directory")

// Manager resolves the overlap directory. The zero value is not usable; use
// NewManager.
type Manager struct {
	getwd   func() (string, error)
	homeDir func() (string, error)
}

// NewManager returns a Manager that searches the process working directory
// and the user's home directory.
func NewManager() *Manager {
	return &Manager{
		getwd:   os.Getwd,
		homeDir: os.UserHomeDir,
	}
}

// Target returns the absolute path of the overlap directory, creating it when
// it does not exist yet.
func (m *Manager) Target(overrideDir string) (string, error) {
	dir, err := m.locate(overrideDir)
	if err != nil {
		return "", err
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", dir, err)
	}

	if err := ensureDir(abs); err != nil {
		return "", err
	}
	return abs, nil
}

// locate picks the directory without touching the filesystem beyond a stat
// of the local candidate.
func (m *Manager) locate(overrideDir string) (string, error) {
	if overrideDir != "" {
		return overrideDir, nil
	}

	if cwd, err := m.getwd(); err == nil {
		local := filepath.Join(cwd, DirName)
		if info, err := os.Stat(local); err == nil && info.IsDir() {
			return local, nil
		}
	}

	home, err := m.homeDir()
	if err != nil {
		return "", fmt.Errorf("no %s directory found and home is unknown: %w", DirName, err)
	}
	return filepath.Join(home, DirName), nil
}

func ensureDir(dir string) error {
	info, err := os.Stat(dir)
	switch {
	case err == nil && !info.IsDir():
		return fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	case err == nil:
		return nil
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("checking %s: %w", dir, err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	return nil
}
