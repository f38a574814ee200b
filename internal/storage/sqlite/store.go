// Package sqlite is the on-device database backend: one row per key in kv, one row
// per attachment in blobs.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"

	_ "modernc.org/sqlite"
)

type Store struct {
	db     *sql.DB
	logger *log.Logger
}

var _ storage.Backend = (*Store)(nil)

// New opens the database at dbPath, creating it and applying migrations as needed.
// A nil logger discards.
func New(dbPath string, logger *log.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("%w: create db directory: %v", core.ErrPersistence, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite database: %v", core.ErrPersistence, err)
	}
	// A single connection serialises writers, matching the single-writer model.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping database: %v", core.ErrPersistence, err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", core.ErrPersistence, err)
	}

	if logger == nil {
		logger = log.Nop()
	}
	return &Store{db: db, logger: logger.WithComponent(log.ComponentStorage).With(log.FieldBackend, "sqlite")}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Load(ctx context.Context) (map[string][]byte, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM kv`)
	if err != nil {
		return nil, fmt.Errorf("%w: load values: %v", core.ErrPersistence, err)
	}
	defer rows.Close()

	out := map[string][]byte{}
	for rows.Next() {
		var (
			key   string
			value []byte
		)
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("%w: scan value: %v", core.ErrPersistence, err)
		}
		out[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate values: %v", core.ErrPersistence, err)
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: get %q: %v", core.ErrPersistence, key, err)
	}
	return value, true, nil
}

// Put upserts in a single statement, so the row is replaced atomically.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	if err != nil {
		return fmt.Errorf("%w: put %q: %v", core.ErrPersistence, key, err)
	}

	s.logger.DebugContext(ctx, "Value saved to SQLite", log.FieldKey, key, log.FieldBytes, len(value))
	return nil
}

func (s *Store) PutBlob(ctx context.Context, ref string, blob storage.Blob) error {
	data := blob.Data
	if data == nil {
		data = []byte{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO blobs (ref, filename, media_type, data) VALUES (?, ?, ?, ?)
		ON CONFLICT(ref) DO UPDATE SET filename = excluded.filename, media_type = excluded.media_type, data = excluded.data`,
		ref, blob.Filename, blob.MediaType, data)
	if err != nil {
		return fmt.Errorf("%w: put blob %q: %v", core.ErrPersistence, ref, err)
	}
	return nil
}

func (s *Store) GetBlob(ctx context.Context, ref string) (storage.Blob, error) {
	var b storage.Blob
	err := s.db.QueryRowContext(ctx, `SELECT filename, media_type, data FROM blobs WHERE ref = ?`, ref).
		Scan(&b.Filename, &b.MediaType, &b.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Blob{}, fmt.Errorf("%w: blob %q", core.ErrNotFound, ref)
	}
	if err != nil {
		return storage.Blob{}, fmt.Errorf("%w: get blob %q: %v", core.ErrPersistence, ref, err)
	}
	return b, nil
}

func (s *Store) DeleteBlob(ctx context.Context, ref string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM blobs WHERE ref = ?`, ref); err != nil {
		return fmt.Errorf("%w: delete blob %q: %v", core.ErrPersistence, ref, err)
	}
	return nil
}
