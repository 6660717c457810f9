package pathsafe

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitize_Accepts(t *testing.T) {
	base := t.TempDir()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain file", "photo.jpg", "photo.jpg"},
		{"nested", "media/2024/photo.jpg", "media/2024/photo.jpg"},
		{"dot segments", "./media/./photo.jpg", "media/photo.jpg"},
		{"redundant separators", "media//gallery///photo.jpg", "media/gallery/photo.jpg"},
		{"trailing slash", "media/folder/", "media/folder"},
		{"tab allowed", "odd\tname.png", "odd\tname.png"},
		{"dots inside a name", "archive..old.png", "archive..old.png"},
		{"unicode", "фото/снимок.jpg", "фото/снимок.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Sanitize(tt.in, base)
			if err != nil {
				t.Fatalf("Sanitize(%q) returned error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
			}

			local := LocalPath(base, got)
			rel, err := filepath.Rel(base, local)
			if err != nil || strings.HasPrefix(rel, "..") {
				t.Fatalf("LocalPath(%q) = %q is not below %q", got, local, base)
			}
		})
	}
}

func TestSanitize_Rejects(t *testing.T) {
	base := t.TempDir()

	tests := []struct {
		name string
		in   string
		want error
	}{
		{"empty", "", ErrEmptyPath},
		{"only dot", ".", ErrEmptyPath},
		{"only dot slash", "./", ErrEmptyPath},
		{"null byte", "photo\x00.jpg", ErrControlChar},
		{"carriage return", "photo\r.jpg", ErrControlChar},
		{"escape char", "photo\x1b.jpg", ErrControlChar},
		{"absolute unix", "/etc/passwd", ErrAbsolutePath},
		{"absolute backslash", `\windows\system32`, ErrAbsolutePath},
		{"drive letter", `C:\temp\x.png`, ErrAbsolutePath},
		{"parent only", "..", ErrTraversal},
		{"leading parent", "../escape.txt", ErrTraversal},
		{"embedded parent", "media/../../escape.txt", ErrTraversal},
		{"embedded parent that stays inside", "media/../photo.jpg", ErrTraversal},
		{"backslash parent", `media\..\..\escape.txt`, ErrTraversal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Sanitize(tt.in, base)
			if err == nil {
				t.Fatalf("Sanitize(%q) = %q, want error %v", tt.in, got, tt.want)
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("Sanitize(%q) error = %v, want %v", tt.in, err, tt.want)
			}
			if got != "" {
				t.Fatalf("Sanitize(%q) returned a path alongside the error: %q", tt.in, got)
			}
		})
	}
}

func TestSanitize_RelativeBaseDir(t *testing.T) {
	got, err := Sanitize("a/b.png", "backups/s3-2024-01-01T00-00-00-000Z")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "a/b.png" {
		t.Fatalf("got %q", got)
	}
}
