package localstore

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/sitesync/go-site-settings/subsystems"
)

// DirectoryStore is a SnapshotStore that keeps one file per key in a directory. Writes are atomic:
// the value is written to a temporary file which is then renamed over the old one, so a reader in
// another process never sees a partial value.
type DirectoryStore struct {
	dir string
}

var _ subsystems.SnapshotStore = (*DirectoryStore)(nil)

// NewDirectoryStore creates the directory if necessary and returns a store that uses it.
func NewDirectoryStore(dir string) (*DirectoryStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("unable to create snapshot directory %q: %w", dir, err)
	}
	return &DirectoryStore{dir: dir}, nil
}

// Get reads the value for a key.
func (s *DirectoryStore) Get(key string) ([]byte, bool, error) {
	data, err := os.ReadFile(s.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// Set replaces the value for a key.
func (s *DirectoryStore) Set(key string, value []byte) error {
	tmp, err := os.CreateTemp(s.dir, ".tmp-")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.pathFor(key))
}

// Remove deletes the value for a key. Removing a missing key is not an error.
func (s *DirectoryStore) Remove(key string) error {
	if err := os.Remove(s.pathFor(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Keys may contain characters that are not valid in file names, such as ':' or '/'.
func (s *DirectoryStore) pathFor(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key)+".json")
}
