// Package pathsafe validates object keys and relative paths before they are
// joined onto a local directory.
package pathsafe

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"unicode"
)

var (
	// ErrEmptyPath indicates an empty key or one that normalizes to nothing.
	ErrEmptyPath = errors.New("path is empty")
	// ErrControlChar indicates a null byte or a control character other than tab or newline.
	ErrControlChar = errors.New("path contains a null byte or control character")
	// ErrAbsolutePath indicates an absolute path or a path carrying a volume name.
	ErrAbsolutePath = errors.New("absolute paths are not allowed")
	// ErrTraversal indicates a ".." segment.
	ErrTraversal = errors.New("path traversal is not allowed")
	// ErrEscapesBaseDir indicates the resolved path is not inside the base directory.
	ErrEscapesBaseDir = errors.New("path escapes the base directory")
)

// Sanitize checks key against baseDir and returns it normalized as a
// forward-slash relative path, suitable as a remote object key. Use
// LocalPath to turn the result into a filesystem path.
func Sanitize(key, baseDir string) (string, error) {
	if key == "" {
		return "", ErrEmptyPath
	}

	for _, r := range key {
		if r == 0 || (unicode.IsControl(r) && r != '\t' && r != '\n') {
			return "", fmt.Errorf("%w: %q", ErrControlChar, key)
		}
	}

	if isAbsolute(key) {
		return "", fmt.Errorf("%w: %q", ErrAbsolutePath, key)
	}

	// Backslashes count as separators here so a key cannot smuggle a
	// traversal past a Windows filesystem join.
	for _, segment := range strings.FieldsFunc(key, isSeparator) {
		if segment == ".." {
			return "", fmt.Errorf("%w: %q", ErrTraversal, key)
		}
	}

	cleaned := path.Clean(key)
	if cleaned == "." {
		return "", ErrEmptyPath
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrTraversal, key)
	}

	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("resolve base dir %s: %w", baseDir, err)
	}
	resolved := filepath.Join(absBase, filepath.FromSlash(cleaned))
	rel, err := filepath.Rel(absBase, resolved)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrEscapesBaseDir, key)
	}

	return cleaned, nil
}

// LocalPath joins a sanitized relative path onto baseDir using platform separators.
func LocalPath(baseDir, rel string) string {
	return filepath.Join(baseDir, filepath.FromSlash(rel))
}

func isAbsolute(p string) bool {
	if strings.HasPrefix(p, "/") || strings.HasPrefix(p, `\`) {
		return true
	}
	if filepath.IsAbs(p) || filepath.VolumeName(p) != "" {
		return true
	}
	// Drive letters are rejected on every platform, not only Windows.
	return len(p) >= 2 && p[1] == ':' && unicode.IsLetter(rune(p[0]))
}

func isSeparator(r rune) bool {
	return r == '/' || r == '\\'
}
