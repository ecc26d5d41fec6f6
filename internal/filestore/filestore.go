package filestore

import (
	"io"
)

// FileStore stores and retrieves blobs by their content hash.
type FileStore interface {
	// Save is idempotent: saving an existing hash is a no-op.
	Save(r io.Reader, hash string) error
	// Get returns ErrNotFound for an unknown hash.
	Get(hash string) (io.ReadCloser, error)
}
