// Package workdir manages the .taskengine directory kept inside a repository
// for run history and signal files.
package workdir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Name is the directory created at the repository root.
const Name = ".taskengine"

// Dir returns the .taskengine directory for root.
func Dir(root string) string {
	return filepath.Join(root, Name)
}

// Ensure creates the .taskengine directory under root with a .gitignore
// that hides its contents from git, so session commits never pick up
// engine state. It returns the directory path.
func Ensure(root string) (string, error) {
	dir := Dir(root)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create %s: %w", Name, err)
	}

	ignore := filepath.Join(dir, ".gitignore")
	if _, err := os.Stat(ignore); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(ignore, []byte("*\n"), 0644); err != nil {
			return "", fmt.Errorf("write %s: %w", ignore, err)
		}
	}
	return dir, nil
}
