package file

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

func TestFileStoreColdStart(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "nested", "data"), nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	got, err := s.Load(context.Background())
	if err != nil || len(got) != 0 {
		t.Fatalf("cold load = %v, %v", got, err)
	}
}

func TestFileStorePersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := New(dir, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := s.Put(ctx, "transactions", []byte(`{"version":1}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Put(ctx, "transactions", []byte(`{"version":1,"items":[]}`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if err := s.Put(ctx, "budgets", []byte(`{}`)); err != nil {
		t.Fatalf("put: %v", err)
	}

	reopened, err := New(dir, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	all, err := reopened.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(all) != 2 || string(all["transactions"]) != `{"version":1,"items":[]}` {
		t.Fatalf("loaded = %q", all)
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".json" && !e.IsDir() {
			t.Fatalf("leftover temp file %s", e.Name())
		}
	}
}

func TestFileStoreRejectsPathKeys(t *testing.T) {
	s, _ := New(t.TempDir(), nil)
	for _, key := range []string{"", "../escape", "a/b", ".hidden"} {
		if err := s.Put(context.Background(), key, []byte("x")); !errors.Is(err, core.ErrPersistence) {
			t.Fatalf("key %q: expected ErrPersistence, got %v", key, err)
		}
	}
}

func TestFileStoreBlobs(t *testing.T) {
	ctx := context.Background()
	s, _ := New(t.TempDir(), nil)
	blob := storage.Blob{Filename: "receipt.pdf", MediaType: "application/pdf", Data: []byte("%PDF")}
	if err := s.PutBlob(ctx, "ref-1", blob); err != nil {
		t.Fatalf("put blob: %v", err)
	}
	got, err := s.GetBlob(ctx, "ref-1")
	if err != nil || got.Filename != "receipt.pdf" || got.MediaType != "application/pdf" || string(got.Data) != "%PDF" {
		t.Fatalf("get blob = %+v, %v", got, err)
	}
	if err := s.DeleteBlob(ctx, "ref-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetBlob(ctx, "ref-1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteBlob(ctx, "ref-1"); err != nil {
		t.Fatalf("second delete should be a no-op: %v", err)
	}
}

func TestFileStoreBlobRefsNeverCollideWithMetadata(t *testing.T) {
	ctx := context.Background()
	s, _ := New(t.TempDir(), nil)
	plain := storage.Blob{Filename: "photo.jpg", MediaType: "image/jpeg", Data: []byte("jpeg")}
	tricky := storage.Blob{Filename: "notes.txt", MediaType: "text/plain", Data: []byte("text")}
	if err := s.PutBlob(ctx, "ref-2", plain); err != nil {
		t.Fatalf("put blob: %v", err)
	}
	if err := s.PutBlob(ctx, "ref-2.meta.json", tricky); err != nil {
		t.Fatalf("put blob: %v", err)
	}
	if err := s.PutBlob(ctx, "ref-2.json", tricky); err != nil {
		t.Fatalf("put blob: %v", err)
	}

	for ref, want := range map[string]storage.Blob{"ref-2": plain, "ref-2.meta.json": tricky, "ref-2.json": tricky} {
		got, err := s.GetBlob(ctx, ref)
		if err != nil {
			t.Fatalf("get %s: %v", ref, err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("blob %s mismatch (-want +got):\n%s", ref, diff)
		}
	}

	if err := s.DeleteBlob(ctx, "ref-2.meta.json"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, err := s.GetBlob(ctx, "ref-2"); err != nil || string(got.Data) != "jpeg" {
		t.Fatalf("deleting one ref touched another: %+v, %v", got, err)
	}
}

func TestFileStoreLogsThroughInjectedLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Handler: slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})})
	s, err := New(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := s.Put(context.Background(), "accounts", []byte(`{}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"component=storage", "backend=file", "key=accounts", "bytes=2"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %q", out, want)
		}
	}
}
