package backup

import (
	"path/filepath"
	"testing"

	"github.com/andresuchdata/mediasync/internal/domain"
)

func TestListSnapshots(t *testing.T) {
	root := t.TempDir()

	withMeta := filepath.Join(root, "s3-2024-02-01T00-00-00-000Z")
	writeFiles(t, withMeta, map[string]string{"a.jpg": "aaaa"})
	snapshot := domain.BackupSnapshot{Timestamp: "2024-02-01T00:00:00.000Z", Source: "media", TotalFiles: 1, TotalSize: 4}
	if err := SaveMetadata(snapshot, withMeta); err != nil {
		t.Fatal(err)
	}

	scanned := filepath.Join(root, "s3-2024-01-01T00-00-00-000Z")
	writeFiles(t, scanned, map[string]string{"x.png": "12345", "y/z.jpg": "12"})

	summaries, err := ListSnapshots(root)
	if err != nil {
		t.Fatalf("ListSnapshots: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("summaries = %+v", summaries)
	}
	if s := summaries[0]; s.Name != "s3-2024-02-01T00-00-00-000Z" || !s.HasMetadata || s.Source != "media" || s.TotalSize != 4 {
		t.Errorf("summaries[0] = %+v", s)
	}
	if s := summaries[1]; s.HasMetadata || s.TotalFiles != 2 || s.TotalSize != 7 {
		t.Errorf("summaries[1] = %+v", s)
	}
}

func TestSnapshotPath(t *testing.T) {
	root := t.TempDir()

	got, err := SnapshotPath(root, "s3-2024-01-01T00-00-00-000Z")
	if err != nil {
		t.Fatalf("SnapshotPath: %v", err)
	}
	if got != filepath.Join(root, "s3-2024-01-01T00-00-00-000Z") {
		t.Fatalf("SnapshotPath = %q", got)
	}

	for _, name := range []string{"", "../s3-x", "s3-a/b", "other", "/etc"} {
		if _, err := SnapshotPath(root, name); err == nil {
			t.Errorf("SnapshotPath(%q) accepted", name)
		}
	}
}
