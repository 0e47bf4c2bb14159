// Package resultset locates, reads and parses the coverage resultset cache
// written by a SimpleCov-style test runner.
package resultset

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	// Filename is the name of the resultset cache inside the coverage directory.
	Filename = ".resultset.json"
	// LockSuffix is appended to the cache path to form the lock sentinel.
	LockSuffix = ".lock"
	// DefaultCoverageDir is used when no coverage directory is configured.
	DefaultCoverageDir = "coverage"
)

// Location holds the cache path and its companion lock sentinel.
type Location struct {
	Path     string `json:"path"`
	LockPath string `json:"lock_path"`
}

// Locate resolves the cache location for a project root and an optional
// coverage directory override. Relative overrides are joined onto root.
// Locate performs no I/O.
func Locate(root, coverageDir string) Location {
	dir := coverageDir
	if dir == "" {
		dir = DefaultCoverageDir
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}
	path := filepath.Join(dir, Filename)
	return Location{Path: path, LockPath: path + LockSuffix}
}

// Status reports which of the two files currently exist.
type Status struct {
	Location
	CacheExists bool `json:"cache_exists"`
	LockExists  bool `json:"lock_exists"`
}

// Stat checks the cache and the sentinel on disk.
func (l Location) Stat() (Status, error) {
	cache, err := exists(l.Path)
	if err != nil {
		return Status{}, err
	}
	lock, err := exists(l.LockPath)
	if err != nil {
		return Status{}, err
	}
	return Status{Location: l, CacheExists: cache, LockExists: lock}, nil
}

func exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
