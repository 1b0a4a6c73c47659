// Package filex manages on-disk scratch space used while assembling archives.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureSubDir creates base/name (base defaults to the working directory)
// and returns its absolute path. Existing directories are reused.
func EnsureSubDir(base, name string) (string, error) {
	if base == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		base = cwd
	}

	dir := filepath.Join(base, name)

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}

// Scratch is a private temporary directory. Everything created through it is
// removed by Cleanup, which is safe to call more than once.
type Scratch struct {
	dir string
}

// NewScratch creates a fresh directory under root (os.TempDir() when empty).
func NewScratch(root, pattern string) (*Scratch, error) {
	if root != "" {
		if err := os.MkdirAll(root, 0o700); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", root, err)
		}
	}
	dir, err := os.MkdirTemp(root, pattern)
	if err != nil {
		return nil, fmt.Errorf("mkdtemp: %w", err)
	}
	return &Scratch{dir: dir}, nil
}

func (s *Scratch) Dir() string {
	return s.dir
}

// CreateTemp opens a new uniquely named file inside the scratch directory.
func (s *Scratch) CreateTemp(pattern string) (*os.File, error) {
	f, err := os.CreateTemp(s.dir, pattern)
	if err != nil {
		return nil, fmt.Errorf("create temp: %w", err)
	}
	return f, nil
}

// Remove deletes a single scratch file, ignoring files that are already gone.
func (s *Scratch) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *Scratch) Cleanup() error {
	return os.RemoveAll(s.dir)
}
