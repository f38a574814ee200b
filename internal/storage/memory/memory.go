// Package memory is a process-local storage backend. Nothing survives a restart
// unless the same Store value is reused, which is what tests rely on to simulate one.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

type Store struct {
	mu    sync.Mutex
	kv    map[string][]byte
	blobs map[string]storage.Blob

	// FailPuts makes Put fail with ErrPersistence, for exercising error paths.
	FailPuts bool
}

var _ storage.Backend = (*Store)(nil)

func New() *Store {
	return &Store{kv: map[string][]byte{}, blobs: map[string]storage.Blob{}}
}

// NewSeeded returns a store pre-populated with values, copied.
func NewSeeded(values map[string][]byte) *Store {
	s := New()
	for k, v := range values {
		s.kv[k] = clone(v)
	}
	return s
}

func (s *Store) Load(_ context.Context) (map[string][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]byte, len(s.kv))
	for k, v := range s.kv {
		out[k] = clone(v)
	}
	return out, nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.kv[key]
	if !ok {
		return nil, false, nil
	}
	return clone(v), true, nil
}

func (s *Store) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailPuts {
		return fmt.Errorf("%w: put %q: simulated failure", core.ErrPersistence, key)
	}
	s.kv[key] = clone(value)
	return nil
}

// Keys returns a copy of the key set.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.kv))
	for k := range maps.Keys(s.kv) {
		keys = append(keys, k)
	}
	return keys
}

func (s *Store) PutBlob(_ context.Context, ref string, blob storage.Blob) error {
	if ref == "" {
		return fmt.Errorf("%w: empty blob reference", core.ErrPersistence)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailPuts {
		return fmt.Errorf("%w: put blob %q: simulated failure", core.ErrPersistence, ref)
	}
	s.blobs[ref] = blob.Clone()
	return nil
}

func (s *Store) GetBlob(_ context.Context, ref string) (storage.Blob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blobs[ref]
	if !ok {
		return storage.Blob{}, fmt.Errorf("%w: blob %q", core.ErrNotFound, ref)
	}
	return b.Clone(), nil
}

func (s *Store) DeleteBlob(_ context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, ref)
	return nil
}

// BlobCount reports how many blobs are held.
func (s *Store) BlobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}

func (s *Store) Close() error { return nil }

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte{}, b...)
}
