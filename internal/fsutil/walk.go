// Package fsutil walks and removes directory trees with an explicit stack
// instead of recursion, so directory depth never grows the goroutine stack.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// WalkFiles returns the regular files below root as sorted forward-slash
// paths relative to root. Symlinks are not followed. skip, when non-nil,
// drops files by relative path.
func WalkFiles(root string, skip func(rel string) bool) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	var files []string
	visited := make(map[string]struct{})
	stack := []string{root}
	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, seen := visited[dir]; seen {
			continue
		}
		visited[dir] = struct{}{}

		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("read dir %s: %w", dir, err)
		}
		for _, entry := range entries {
			full := filepath.Join(dir, entry.Name())
			switch {
			case entry.IsDir():
				stack = append(stack, full)
			case entry.Type().IsRegular():
				rel, err := filepath.Rel(root, full)
				if err != nil {
					return nil, err
				}
				rel = filepath.ToSlash(rel)
				if skip != nil && skip(rel) {
					continue
				}
				files = append(files, rel)
			}
		}
	}

	sort.Strings(files)
	return files, nil
}

// RemoveTree deletes dir depth-first: files as they are found, then
// subdirectories deepest first, then dir itself. A missing dir is not an error.
func RemoveTree(dir string) error {
	if _, err := os.Lstat(dir); os.IsNotExist(err) {
		return nil
	}

	var dirs []string
	stack := []string{dir}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		dirs = append(dirs, current)

		entries, err := os.ReadDir(current)
		if err != nil {
			return fmt.Errorf("read dir %s: %w", current, err)
		}
		for _, entry := range entries {
			full := filepath.Join(current, entry.Name())
			if entry.IsDir() {
				stack = append(stack, full)
				continue
			}
			if err := os.Remove(full); err != nil {
				return fmt.Errorf("remove %s: %w", full, err)
			}
		}
	}

	// dirs is in pre-order, so walking it backwards visits children before parents.
	for i := len(dirs) - 1; i >= 0; i-- {
		if err := os.Remove(dirs[i]); err != nil {
			return fmt.Errorf("remove dir %s: %w", dirs[i], err)
		}
	}
	return nil
}
