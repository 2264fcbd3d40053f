package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/spf13/afero"
)

// FileSnapshotStore keeps the snapshot as a single JSON file.
type FileSnapshotStore struct {
	fs   afero.Fs
	path string
}

// NewFileSnapshotStore stores the snapshot at path on the given filesystem.
// Pass afero.NewOsFs() for the real disk.
func NewFileSnapshotStore(fsys afero.Fs, path string) (*FileSnapshotStore, error) {
	if fsys == nil {
		return nil, fmt.Errorf("%w: filesystem", ErrEmptyString)
	}
	if err := validateString(path, "path"); err != nil {
		return nil, err
	}
	return &FileSnapshotStore{fs: fsys, path: path}, nil
}

// Path returns the snapshot file location.
func (f *FileSnapshotStore) Path() string {
	return f.path
}

// Load reads the snapshot file, or returns ErrNoSnapshot if it does not exist.
func (f *FileSnapshotStore) Load(ctx context.Context) ([]byte, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(f.fs, f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}
	return data, nil
}

// Save writes the snapshot to a temporary file and renames it over the old
// one, so the file on disk is always a complete snapshot.
func (f *FileSnapshotStore) Save(ctx context.Context, snapshot []byte) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSnapshot(snapshot); err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	if err := f.fs.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp, err := afero.TempFile(f.fs, dir, filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(snapshot); err != nil {
		_ = tmp.Close()
		_ = f.fs.Remove(tmpName)
		return fmt.Errorf("failed to write temporary snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = f.fs.Remove(tmpName)
		return fmt.Errorf("failed to sync temporary snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = f.fs.Remove(tmpName)
		return fmt.Errorf("failed to close temporary snapshot: %w", err)
	}

	if err := f.fs.Rename(tmpName, f.path); err != nil {
		_ = f.fs.Remove(tmpName)
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}

	slog.Debug("Saved snapshot", "path", f.path, "bytes", len(snapshot))
	return nil
}
