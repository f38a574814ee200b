package memory

import (
	"context"
	"errors"
	"testing"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

func TestMemoryStoreColdStart(t *testing.T) {
	s := New()
	got, err := s.Load(context.Background())
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("cold load = %v, %v", got, err)
	}
	if _, ok, err := s.Get(context.Background(), "transactions"); ok || err != nil {
		t.Fatalf("unexpected value on cold start: ok=%v err=%v", ok, err)
	}
}

func TestMemoryStorePutOverwritesAndCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	buf := []byte("one")
	if err := s.Put(ctx, "k", buf); err != nil {
		t.Fatalf("put: %v", err)
	}
	buf[0] = 'X'
	if err := s.Put(ctx, "k", []byte("two")); err != nil {
		t.Fatalf("put: %v", err)
	}
	v, ok, err := s.Get(ctx, "k")
	if err != nil || !ok || string(v) != "two" {
		t.Fatalf("get = %q, %v, %v", v, ok, err)
	}
	v[0] = 'Z'
	all, _ := s.Load(ctx)
	if string(all["k"]) != "two" || len(s.Keys()) != 1 {
		t.Fatalf("store state leaked to caller: %q", all["k"])
	}
}

func TestMemoryStoreFailPutsKeepsPreviousValue(t *testing.T) {
	ctx := context.Background()
	s := NewSeeded(map[string][]byte{"k": []byte("old")})
	s.FailPuts = true
	if err := s.Put(ctx, "k", []byte("new")); !errors.Is(err, core.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	v, _, _ := s.Get(ctx, "k")
	if string(v) != "old" {
		t.Fatalf("failed put changed value to %q", v)
	}
}

func TestMemoryBlobs(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.PutBlob(ctx, "r1", storage.Blob{Filename: "a.png", MediaType: "image/png", Data: []byte{1, 2}}); err != nil {
		t.Fatalf("put blob: %v", err)
	}
	b, err := s.GetBlob(ctx, "r1")
	if err != nil || b.Filename != "a.png" || len(b.Data) != 2 {
		t.Fatalf("get blob = %+v, %v", b, err)
	}
	if err := s.DeleteBlob(ctx, "r1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetBlob(ctx, "r1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteBlob(ctx, "missing"); err != nil {
		t.Fatalf("deleting a missing blob should be a no-op: %v", err)
	}
	if s.BlobCount() != 0 {
		t.Fatalf("blob count = %d", s.BlobCount())
	}
}
