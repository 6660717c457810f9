package backup

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func makeSnapshotDirs(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, name := range names {
		dir := filepath.Join(root, name, "nested")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "a.jpg"), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestListSnapshotDirs(t *testing.T) {
	root := t.TempDir()
	makeSnapshotDirs(t, root,
		"s3-2024-01-01T00-00-00-000Z",
		"s3-2024-03-01T00-00-00-000Z",
		"s3-2024-02-01T00-00-00-000Z",
		"unrelated",
	)
	if err := os.WriteFile(filepath.Join(root, "s3-file"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	names, err := ListSnapshotDirs(root)
	if err != nil {
		t.Fatalf("ListSnapshotDirs: %v", err)
	}
	want := []string{
		"s3-2024-03-01T00-00-00-000Z",
		"s3-2024-02-01T00-00-00-000Z",
		"s3-2024-01-01T00-00-00-000Z",
	}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("names = %v, want %v", names, want)
	}

	if names, err := ListSnapshotDirs(filepath.Join(root, "missing")); err != nil || names != nil {
		t.Fatalf("missing root = %v, %v", names, err)
	}
}

func TestCleanup(t *testing.T) {
	names := []string{
		"s3-2024-01-01T00-00-00-000Z",
		"s3-2024-01-02T00-00-00-000Z",
		"s3-2024-01-03T00-00-00-000Z",
		"s3-2024-01-04T00-00-00-000Z",
		"s3-2024-01-05T00-00-00-000Z",
	}

	tests := []struct {
		keep        int
		wantDeleted int
	}{
		{keep: 5, wantDeleted: 0},
		{keep: 10, wantDeleted: 0},
		{keep: 2, wantDeleted: 3},
		{keep: 0, wantDeleted: 5},
	}
	for _, tt := range tests {
		root := t.TempDir()
		makeSnapshotDirs(t, root, names...)
		makeSnapshotDirs(t, root, "keep-me")

		if got := Cleanup(root, tt.keep); got != tt.wantDeleted {
			t.Errorf("Cleanup(keep=%d) = %d, want %d", tt.keep, got, tt.wantDeleted)
		}

		left, err := ListSnapshotDirs(root)
		if err != nil {
			t.Fatal(err)
		}
		wantLeft := len(names) - tt.wantDeleted
		if len(left) != wantLeft {
			t.Errorf("keep=%d left %v", tt.keep, left)
		}
		if wantLeft > 0 && left[0] != names[len(names)-1] {
			t.Errorf("keep=%d removed the newest snapshot: %v", tt.keep, left)
		}
		if _, err := os.Stat(filepath.Join(root, "keep-me")); err != nil {
			t.Errorf("non-snapshot directory removed: %v", err)
		}
	}
}
