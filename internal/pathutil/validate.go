// Package pathutil provides utilities for safe path handling.
package pathutil

import (
	"errors"
	"path/filepath"
	"strings"
)

var (
	// ErrEmptyPath is returned when a path is empty.
	ErrEmptyPath = errors.New("path is empty")
	// ErrNullBytes is returned when a path contains a NUL byte.
	ErrNullBytes = errors.New("path contains null bytes")
)

// ValidatePath rejects empty paths and paths carrying NUL bytes, and returns
// the cleaned path. Symlinks are left alone so that paths stay comparable with
// the keys a test runner records.
func ValidatePath(path string) (string, error) {
	if path == "" {
		return "", ErrEmptyPath
	}
	if strings.Contains(path, "\x00") {
		return "", ErrNullBytes
	}
	return filepath.Clean(path), nil
}
