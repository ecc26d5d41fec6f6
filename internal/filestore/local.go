package filestore

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"

	"github.com/google/uuid"
)

// LocalFileStore keeps blobs under a directory, sharded by the first two
// characters of the hash. All access goes through an os.Root, so a hash can
// never name a file outside the directory.
type LocalFileStore struct {
	root *os.Root
}

func NewLocalFileStore(dir string) (*LocalFileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("open uploads dir: %w", err)
	}
	return &LocalFileStore{root: root}, nil
}

func blobName(hash string) string {
	if len(hash) < 2 {
		return hash
	}
	return path.Join(hash[:2], hash)
}

// Save writes the blob under a temporary name and renames it into place.
// Existing blobs are left untouched.
func (s *LocalFileStore) Save(r io.Reader, hash string) error {
	name := blobName(hash)
	if _, err := s.root.Stat(name); err == nil {
		return nil
	}
	if err := s.root.MkdirAll(path.Dir(name), 0o755); err != nil {
		return fmt.Errorf("shard dir for %s: %w", hash, err)
	}

	partial := name + ".part-" + uuid.NewString()
	f, err := s.root.OpenFile(partial, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", partial, err)
	}
	_, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = s.root.Remove(partial)
		return fmt.Errorf("write %s: %w", hash, err)
	}

	if err := s.root.Rename(partial, name); err != nil {
		_ = s.root.Remove(partial)
		return fmt.Errorf("commit %s: %w", hash, err)
	}
	return nil
}

// Get opens a stored blob. A missing blob yields ErrNotFound.
func (s *LocalFileStore) Get(hash string) (io.ReadCloser, error) {
	f, err := s.root.Open(blobName(hash))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", hash, err)
	}
	return f, nil
}

func (s *LocalFileStore) Close() error {
	return s.root.Close()
}
