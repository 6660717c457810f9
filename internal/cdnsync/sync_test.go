package cdnsync

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/andresuchdata/mediasync/internal/storage/storagetest"
)

type recordingInvalidator struct {
	calls [][]string
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, paths []string) (string, error) {
	r.calls = append(r.calls, paths)
	return "INV1", nil
}

func writeTree(t *testing.T, root string, files map[string]string) {
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

func TestSync_UploadsAndInvalidates(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"logo.svg":          "<svg/>",
		"img/hero.jpg":      "jpeg",
		"img/deep/icon.png": "png",
		"notes.txt":         "ignored by extension filter",
	})

	store := storagetest.NewMemory("media")
	inv := &recordingInvalidator{}
	syncer := NewSyncer(store, inv, 2)

	res, err := syncer.Sync(context.Background(), Options{
		Dir:        dir,
		KeyPrefix:  "static",
		Extensions: []string{".svg", ".jpg", ".png"},
		Invalidate: true,
	})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}

	wantKeys := []string{"static/img/deep/icon.png", "static/img/hero.jpg", "static/logo.svg"}
	if !reflect.DeepEqual(res.Uploaded, wantKeys) {
		t.Fatalf("Uploaded = %v, want %v", res.Uploaded, wantKeys)
	}
	if !reflect.DeepEqual(store.Keys(), wantKeys) {
		t.Fatalf("bucket keys = %v", store.Keys())
	}
	if obj, _ := store.Object("static/logo.svg"); obj.ContentType != "image/svg+xml" {
		t.Fatalf("content type = %q", obj.ContentType)
	}
	if res.InvalidationID != "INV1" || len(inv.calls) != 1 {
		t.Fatalf("invalidation = %q, calls = %d", res.InvalidationID, len(inv.calls))
	}
	if len(inv.calls[0]) != 3 || inv.calls[0][0] != "/static/img/deep/icon.png" {
		t.Fatalf("invalidated paths = %v", inv.calls[0])
	}
	if res.Bytes != int64(len("<svg/>")+len("jpeg")+len("png")) {
		t.Fatalf("Bytes = %d", res.Bytes)
	}
}

func TestSync_FailureAbortsBatch(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"a.png": "a", "b.png": "b", "c.png": "c"})

	store := storagetest.NewMemory("media")
	store.PutErr["b.png"] = errors.New("connection reset")
	inv := &recordingInvalidator{}

	_, err := NewSyncer(store, inv, 0).Sync(context.Background(), Options{Dir: dir, Invalidate: true})
	if err == nil {
		t.Fatal("expected the batch to fail")
	}
	if len(inv.calls) != 0 {
		t.Fatal("a failed batch must not invalidate")
	}
}

func TestSync_DryRun(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"a.png": "a"})
	store := storagetest.NewMemory("media")

	res, err := NewSyncer(store, nil, 4).Sync(context.Background(), Options{Dir: dir, DryRun: true})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !reflect.DeepEqual(res.Uploaded, []string{"a.png"}) {
		t.Fatalf("Uploaded = %v", res.Uploaded)
	}
	if _, _, puts, _ := store.Calls(); puts != 0 {
		t.Fatalf("dry run made %d puts", puts)
	}
}

func TestSync_EmptyDir(t *testing.T) {
	res, err := NewSyncer(storagetest.NewMemory("media"), nil, 1).Sync(context.Background(), Options{Dir: t.TempDir()})
	if err != nil || len(res.Uploaded) != 0 {
		t.Fatalf("Sync on empty dir = %+v, %v", res, err)
	}
}

func TestSync_MissingDir(t *testing.T) {
	_, err := NewSyncer(storagetest.NewMemory("media"), nil, 1).Sync(context.Background(), Options{Dir: filepath.Join(t.TempDir(), "missing")})
	if err == nil {
		t.Fatal("expected an error for a missing directory")
	}
}
