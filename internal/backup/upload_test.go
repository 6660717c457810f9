package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/andresuchdata/mediasync/internal/domain"
	"github.com/andresuchdata/mediasync/internal/storage/storagetest"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestCandidatesFor_ScanSkipsMetadataFiles(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.jpg":                       "a",
		"nested/b.png":                "b",
		"backup-metadata.json.1.tmp":  "partial",
		"backup-metadata.json.v2":     "user file",
		"nested/backup-metadata.json": "user file",
	})

	candidates, fromMetadata, err := CandidatesFor(dir)
	if err != nil {
		t.Fatalf("CandidatesFor: %v", err)
	}
	if fromMetadata {
		t.Fatal("no metadata was written")
	}
	var keys []string
	for _, c := range candidates {
		keys = append(keys, c.Key)
	}
	want := []string{"a.jpg", "backup-metadata.json.v2", "nested/b.png", "nested/backup-metadata.json"}
	if !reflect.DeepEqual(keys, want) {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
}

func TestCandidatesFor_PrefersMetadata(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.jpg": "a", "stray.png": "s"})
	snapshot := domain.BackupSnapshot{Entries: []domain.FileRecord{{Key: "a.jpg", ContentType: "image/jpeg"}}}
	if err := SaveMetadata(snapshot, dir); err != nil {
		t.Fatal(err)
	}

	candidates, fromMetadata, err := CandidatesFor(dir)
	if err != nil {
		t.Fatalf("CandidatesFor: %v", err)
	}
	if !fromMetadata || len(candidates) != 1 || candidates[0].ContentType != "image/jpeg" {
		t.Fatalf("candidates = %+v, fromMetadata = %v", candidates, fromMetadata)
	}
}

func TestUploadAll(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"new.jpg":      "new",
		"existing.png": "local",
		"denied.gif":   "gif",
		"custom.bin":   "bin",
		"plain.webp":   "webp",
	})

	store := storagetest.NewMemory("media")
	store.Seed("existing.png", []byte("remote"), "image/png", time.Now())
	store.HeadErr["denied.gif"] = errors.New("access denied")

	candidates := []domain.FileRecord{
		{Key: "new.jpg"},
		{Key: "existing.png"},
		{Key: "../escape.txt"},
		{Key: "gone.jpg"},
		{Key: "denied.gif"},
		{Key: "custom.bin", ContentType: "application/x-custom"},
		{Key: "plain.webp"},
	}

	result, err := NewUploader(store).UploadAll(context.Background(), candidates, dir, false)
	if err != nil {
		t.Fatalf("UploadAll: %v", err)
	}
	if result.Successful != 3 || result.Skipped != 3 || result.Failed != 1 {
		t.Fatalf("result = %+v", result)
	}
	if len(result.Errors) != 1 || result.Errors[0].Key != "denied.gif" {
		t.Fatalf("errors = %+v", result.Errors)
	}

	if obj, _ := store.Object("existing.png"); string(obj.Data) != "remote" {
		t.Error("existing object was overwritten")
	}
	if obj, _ := store.Object("custom.bin"); obj.ContentType != "application/x-custom" {
		t.Errorf("stored content type = %q", obj.ContentType)
	}
	if obj, _ := store.Object("plain.webp"); obj.ContentType != "image/webp" {
		t.Errorf("extension content type = %q", obj.ContentType)
	}
	if _, ok := store.Object("../escape.txt"); ok {
		t.Error("traversal key uploaded")
	}
	if _, _, puts, _ := store.Calls(); puts != 3 {
		t.Errorf("put calls = %d, want 3", puts)
	}
}

func TestUploadAll_Overwrite(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"existing.png": "local", "noext": "raw"})

	store := storagetest.NewMemory("media")
	store.Seed("existing.png", []byte("remote"), "image/png", time.Now())

	result, err := NewUploader(store).UploadAll(context.Background(),
		[]domain.FileRecord{{Key: "existing.png"}, {Key: "noext"}}, dir, true)
	if err != nil {
		t.Fatalf("UploadAll: %v", err)
	}
	if result.Successful != 2 {
		t.Fatalf("result = %+v", result)
	}
	if obj, _ := store.Object("existing.png"); string(obj.Data) != "local" {
		t.Error("overwrite did not replace the object")
	}
	if obj, _ := store.Object("noext"); obj.ContentType != "application/octet-stream" {
		t.Errorf("fallback content type = %q", obj.ContentType)
	}
	if _, _, _, heads := store.Calls(); heads != 0 {
		t.Errorf("overwrite made %d existence checks", heads)
	}
}

func TestUploadAll_PutFailureContinues(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.jpg": "a", "b.jpg": "b"})

	store := storagetest.NewMemory("media")
	store.PutErr["a.jpg"] = errors.New("slow down")

	result, err := NewUploader(store).UploadAll(context.Background(),
		[]domain.FileRecord{{Key: "a.jpg"}, {Key: "b.jpg"}}, dir, true)
	if err != nil {
		t.Fatalf("UploadAll: %v", err)
	}
	if result.Failed != 1 || result.Successful != 1 || result.OK() {
		t.Fatalf("result = %+v", result)
	}
	if _, ok := store.Object("b.jpg"); !ok {
		t.Error("run stopped after the first failure")
	}
}
