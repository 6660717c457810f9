package fsutil

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestWalkFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.png"), "b")
	writeFile(t, filepath.Join(root, "a", "c.jpg"), "c")
	writeFile(t, filepath.Join(root, "a", "deep", "d.gif"), "d")
	writeFile(t, filepath.Join(root, "skip.json"), "{}")
	if err := os.MkdirAll(filepath.Join(root, "empty"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := WalkFiles(root, func(rel string) bool { return rel == "skip.json" })
	if err != nil {
		t.Fatalf("WalkFiles: %v", err)
	}
	want := []string{"a/c.jpg", "a/deep/d.gif", "b.png"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("WalkFiles = %v, want %v", got, want)
	}
}

func TestWalkFiles_MissingRoot(t *testing.T) {
	if _, err := WalkFiles(filepath.Join(t.TempDir(), "nope"), nil); !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestRemoveTree_DeepNesting(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "victim")
	deep := target
	for i := 0; i < 200; i++ {
		deep = filepath.Join(deep, "d")
	}
	writeFile(t, filepath.Join(deep, "leaf.txt"), "x")
	writeFile(t, filepath.Join(target, "top.txt"), "y")
	writeFile(t, filepath.Join(root, "keep.txt"), "z")

	if err := RemoveTree(target); err != nil {
		t.Fatalf("RemoveTree: %v", err)
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Fatalf("target still exists: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "keep.txt")); err != nil {
		t.Fatalf("sibling removed: %v", err)
	}
}

func TestRemoveTree_Missing(t *testing.T) {
	if err := RemoveTree(filepath.Join(t.TempDir(), strings.Repeat("x", 3))); err != nil {
		t.Fatalf("RemoveTree on missing dir: %v", err)
	}
}
