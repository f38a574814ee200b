// Package file persists each key as a JSON document in a directory, with attachment
// payloads under blobs/ and their metadata under blobmeta/. Writes go through a synced temp file and a rename so readers never see
// a partially written value.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

const (
	valueExt = ".json"
	blobDir  = "blobs"
	metaDir  = "blobmeta"
)

var validName = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

type Store struct {
	mu     sync.Mutex
	dir    string
	logger *log.Logger
}

var _ storage.Backend = (*Store)(nil)

// New opens (and creates if needed) a store rooted at dir. A nil logger discards.
func New(dir string, logger *log.Logger) (*Store, error) {
	for _, sub := range []string{blobDir, metaDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("%w: create data directory: %v", core.ErrPersistence, err)
		}
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Store{dir: dir, logger: logger.WithComponent(log.ComponentStorage).With(log.FieldBackend, "file")}, nil
}

func (s *Store) Load(_ context.Context) (map[string][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string][]byte{}, nil
		}
		return nil, fmt.Errorf("%w: read data directory: %v", core.ErrPersistence, err)
	}
	out := make(map[string][]byte, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, valueExt) {
			continue
		}
		b, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			return nil, fmt.Errorf("%w: read %q: %v", core.ErrPersistence, name, err)
		}
		out[strings.TrimSuffix(name, valueExt)] = b
	}
	return out, nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	if err := checkName(key); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.valuePath(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: read %q: %v", core.ErrPersistence, key, err)
	}
	return b, true, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if err := checkName(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeAtomic(s.valuePath(key), value); err != nil {
		return fmt.Errorf("%w: write %q: %v", core.ErrPersistence, key, err)
	}
	s.logger.DebugContext(ctx, "Value written", log.FieldKey, key, log.FieldBytes, len(value))
	return nil
}

type blobMeta struct {
	Filename  string `json:"filename"`
	MediaType string `json:"media_type"`
}

func (s *Store) PutBlob(_ context.Context, ref string, blob storage.Blob) error {
	if err := checkName(ref); err != nil {
		return err
	}
	meta, err := json.Marshal(blobMeta{Filename: blob.Filename, MediaType: blob.MediaType})
	if err != nil {
		return fmt.Errorf("%w: encode blob metadata: %v", core.ErrPersistence, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	// Payload first: a blob without metadata is invisible to GetBlob.
	if err := writeAtomic(s.blobPath(ref), blob.Data); err != nil {
		return fmt.Errorf("%w: write blob %q: %v", core.ErrPersistence, ref, err)
	}
	if err := writeAtomic(s.metaPath(ref), meta); err != nil {
		return fmt.Errorf("%w: write blob metadata %q: %v", core.ErrPersistence, ref, err)
	}
	return nil
}

func (s *Store) GetBlob(_ context.Context, ref string) (storage.Blob, error) {
	if err := checkName(ref); err != nil {
		return storage.Blob{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.metaPath(ref))
	if errors.Is(err, fs.ErrNotExist) {
		return storage.Blob{}, fmt.Errorf("%w: blob %q", core.ErrNotFound, ref)
	}
	if err != nil {
		return storage.Blob{}, fmt.Errorf("%w: read blob metadata %q: %v", core.ErrPersistence, ref, err)
	}
	var meta blobMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return storage.Blob{}, fmt.Errorf("%w: blob metadata %q: %v", core.ErrDecode, ref, err)
	}
	data, err := os.ReadFile(s.blobPath(ref))
	if err != nil {
		return storage.Blob{}, fmt.Errorf("%w: read blob %q: %v", core.ErrPersistence, ref, err)
	}
	return storage.Blob{Filename: meta.Filename, MediaType: meta.MediaType, Data: data}, nil
}

func (s *Store) DeleteBlob(_ context.Context, ref string) error {
	if err := checkName(ref); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range []string{s.metaPath(ref), s.blobPath(ref)} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: delete blob %q: %v", core.ErrPersistence, ref, err)
		}
	}
	return nil
}

func (s *Store) Close() error { return nil }

func (s *Store) valuePath(key string) string { return filepath.Join(s.dir, key+valueExt) }
func (s *Store) blobPath(ref string) string  { return filepath.Join(s.dir, blobDir, ref) }
func (s *Store) metaPath(ref string) string  { return filepath.Join(s.dir, metaDir, ref+valueExt) }

func checkName(name string) error {
	if !validName.MatchString(name) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: invalid key %q", core.ErrPersistence, name)
	}
	return nil
}

// writeAtomic writes data to a temp file in the target directory, syncs it and
// renames it over path.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	defer os.Remove(name) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(name, path)
}
