// Package storage defines the persistence ports the repositories depend on.
package storage

import "context"

// Ports for local persistence adapters.
type (
	// Store is a key-value blob store holding one serialised collection per key.
	Store interface {
		// Load returns every key and its value. A store with no prior data returns an
		// empty map and no error.
		Load(ctx context.Context) (map[string][]byte, error)
		// Get returns the value for key and whether it exists.
		Get(ctx context.Context, key string) ([]byte, bool, error)
		// Put replaces the value for key. The write is atomic per key: Get observes
		// either the previous value or the new one.
		Put(ctx context.Context, key string, value []byte) error
		Close() error
	}

	// BlobStore holds binary attachment payloads addressed by reference.
	BlobStore interface {
		PutBlob(ctx context.Context, ref string, blob Blob) error
		// GetBlob returns core.ErrNotFound for unknown references.
		GetBlob(ctx context.Context, ref string) (Blob, error)
		// DeleteBlob is a no-op for unknown references.
		DeleteBlob(ctx context.Context, ref string) error
	}

	// Backend is a store that also holds attachments.
	Backend interface {
		Store
		BlobStore
	}
)

// Blob is an attachment payload with its filename and media type.
type Blob struct {
	Filename  string
	MediaType string
	Data      []byte
}

// Clone copies the payload.
func (b Blob) Clone() Blob {
	b.Data = append([]byte(nil), b.Data...)
	return b
}
