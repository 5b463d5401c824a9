package kv

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"
)

var _ Store = (*File)(nil)

// File is a Store that keeps one file per key under a state directory.
// It is the standalone-terminal analogue of browser local storage.
type File struct {
	dir string
}

// NewFile creates the state directory if needed and returns a File store.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create state dir")
	}
	return &File{dir: dir}, nil
}

// path maps a key to a file name. Keys may contain characters that are not
// filesystem-safe (colons on Windows), so the key is hex-encoded.
func (f *File) path(key string) string {
	return filepath.Join(f.dir, hex.EncodeToString([]byte(key)))
}

// Get returns the value stored under key, or ErrNotFound.
func (f *File) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read %q", key)
	}
	return data, nil
}

// Set writes the value atomically: to a temp file first, then renamed over
// the destination, so a crash mid-write leaves the previous value intact.
func (f *File) Set(_ context.Context, key string, value []byte) error {
	dst := f.path(key)
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, value, 0o644); err != nil {
		return errors.Wrapf(err, "write %q", key)
	}
	if err := os.Rename(tmp, dst); err != nil {
		return errors.Wrapf(err, "rename %q", key)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (f *File) Delete(_ context.Context, key string) error {
	err := os.Remove(f.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrapf(err, "delete %q", key)
	}
	return nil
}
