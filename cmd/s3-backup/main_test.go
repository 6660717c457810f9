package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"github.com/andresuchdata/mediasync/internal/backup"
	"github.com/andresuchdata/mediasync/internal/config"
	"github.com/andresuchdata/mediasync/internal/domain"
)

func runCLI(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), append([]string{"s3-backup"}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantStderr string
	}{
		{"missing command", nil, "USAGE"},
		{"unknown command", []string{"frobnicate"}, `unknown command "frobnicate"`},
		{"restore without dir", []string{"restore"}, "restore requires a backup directory"},
		{"upload without dir", []string{"upload"}, "restore requires a backup directory"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := runCLI(tt.args...)
			if code != 1 {
				t.Fatalf("exit code = %d, want 1", code)
			}
			if !strings.Contains(stderr, tt.wantStderr) {
				t.Fatalf("stderr = %q, want it to contain %q", stderr, tt.wantStderr)
			}
			if strings.Contains(stdout, "USAGE") {
				t.Fatalf("usage printed to stdout: %q", stdout)
			}
		})
	}
}

func TestListSnapshotDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "s3-2024-01-15T10-30-00-000Z")
	snapshot := domain.BackupSnapshot{
		TotalFiles: 1,
		TotalSize:  1024,
		Entries:    []domain.FileRecord{{Key: "photo.jpg", Size: 1024, LastModified: "2024-01-15T09:00:00.000Z"}},
	}
	if err := backup.SaveMetadata(snapshot, dir); err != nil {
		t.Fatal(err)
	}

	code, stdout, stderr := runCLI("list", dir)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %q", code, stderr)
	}
	if !strings.Contains(stdout, "photo.jpg") || !strings.Contains(stdout, "1.0 kB") {
		t.Fatalf("stdout = %q", stdout)
	}
}

func TestListMissingDir(t *testing.T) {
	code, _, stderr := runCLI("list", filepath.Join(t.TempDir(), "missing"))
	if code != 1 || !strings.Contains(stderr, "error:") {
		t.Fatalf("exit code = %d, stderr = %q", code, stderr)
	}
}

func TestCleanupDir(t *testing.T) {
	root := t.TempDir()
	for i := 1; i <= 7; i++ {
		name := fmt.Sprintf("s3-2024-01-%02dT00-00-00-000Z", i)
		if err := os.MkdirAll(filepath.Join(root, name), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	code, stdout, stderr := runCLI("cleanup", root)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %q", code, stderr)
	}
	if !strings.Contains(stdout, "Removed 2 old backup(s)") {
		t.Fatalf("stdout = %q", stdout)
	}
	names, err := backup.ListSnapshotDirs(root)
	if err != nil || len(names) != 5 {
		t.Fatalf("left %v, %v", names, err)
	}
}

func TestBackupNothingDownloadedPrintsSummary(t *testing.T) {
	bucket := t.TempDir()
	// A control character makes the only object fail key sanitization.
	if err := os.WriteFile(filepath.Join(bucket, "bad\x01.jpg"), []byte("jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}
	useConfig(t, bucket)

	root := t.TempDir()
	code, stdout, stderr := runCLI("backup", root)
	if code != 1 {
		t.Fatalf("exit code = %d, stderr = %q", code, stderr)
	}
	if !strings.Contains(stdout, "Successful: 0  Failed: 0  Skipped: 1") {
		t.Fatalf("stdout = %q", stdout)
	}
	if !strings.Contains(stderr, backup.ErrNothingDownloaded.Error()) {
		t.Fatalf("stderr = %q", stderr)
	}
	if names, _ := backup.ListSnapshotDirs(root); len(names) != 0 {
		t.Fatalf("snapshots = %v", names)
	}
}

func TestBackupLocalDriver(t *testing.T) {
	bucket := t.TempDir()
	if err := os.MkdirAll(filepath.Join(bucket, "images"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(bucket, "images", "photo.jpg"), bytes.Repeat([]byte("x"), 1024), 0o644); err != nil {
		t.Fatal(err)
	}
	useConfig(t, bucket)

	root := t.TempDir()
	code, stdout, stderr := runCLI("backup", root)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %q", code, stderr)
	}
	if !strings.Contains(stdout, "1 files, 1.0 kB") {
		t.Fatalf("stdout = %q", stdout)
	}
	names, err := backup.ListSnapshotDirs(root)
	if err != nil || len(names) != 1 {
		t.Fatalf("snapshots = %v, %v", names, err)
	}
	if _, err := os.Stat(filepath.Join(root, names[0], "images", "photo.jpg")); err != nil {
		t.Fatalf("nested object not backed up: %v", err)
	}
}

// useConfig points the CLI at a local-driver bucket for the rest of the test.
func useConfig(t *testing.T, bucket string) {
	t.Helper()
	cfg := config.FromViper(viper.New())
	cfg.Storage.Driver = config.DriverLocal
	cfg.Storage.LocalRoot = bucket

	previous := loadEnv
	loadEnv = func() *config.Config { return cfg }
	t.Cleanup(func() { loadEnv = previous })
}
