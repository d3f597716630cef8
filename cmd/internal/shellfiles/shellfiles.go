// Package shellfiles finds shell scripts in the repository tree for the
// formatting and lint commands.
package shellfiles

import (
	"io/fs"
	"path/filepath"
)

// skipDirs are directories that never contain scripts we own.
var skipDirs = map[string]struct{}{
	".git":         {},
	"node_modules": {},
	"vendor":       {},
	"dist":         {},
	"cdk.out":      {},
}

// FindShellScripts returns all .sh files under root, skipping generated and
// third-party directories.
func FindShellScripts(root string) ([]string, error) {
	var scripts []string

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if _, skip := skipDirs[entry.Name()]; skip {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) == ".sh" {
			scripts = append(scripts, path)
		}
		return nil
	})

	return scripts, err
}
