// Package fileutil resolves song paths on file systems whose case rules
// differ from the ones the path was written for.
package fileutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when no file matches, whatever its case.
var ErrNotFound = errors.New("file not found")

// FindFileCaseInsensitive searches dir for a regular file named filename,
// ignoring case.
//
// Example:
//
//	path, err := FindFileCaseInsensitive("/songs", "Greensleeves.MID")
//	// finds "greensleeves.mid", "GREENSLEEVES.MID", ...
func FindFileCaseInsensitive(dir, filename string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(entry.Name(), filename) {
			return filepath.Join(dir, entry.Name()), nil
		}
	}

	return "", fmt.Errorf("%w: %s (searched in %s)", ErrNotFound, filename, dir)
}

// Resolve returns path itself when it names an existing file, and otherwise
// the file in the same directory whose name matches path's base name
// ignoring case.
func Resolve(path string) (string, error) {
	info, err := os.Stat(path)
	if err == nil {
		if info.IsDir() {
			return "", fmt.Errorf("%s is a directory", path)
		}
		return path, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}

	return FindFileCaseInsensitive(filepath.Dir(path), filepath.Base(path))
}
