// Package utils provides small filesystem and token-accounting helpers
// shared by the store and memory packages.
package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureParentDir makes sure the directory that will hold the file at
// path exists, creating it (and any missing ancestors) if necessary.
// Used before opening an on-disk SQLite database so a fresh deployment
// doesn't fail on a missing data directory.
func EnsureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("utils: create directory %q: %w", dir, err)
	}
	return nil
}
