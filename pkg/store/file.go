package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// FileStore keeps the snapshot as a single JSON file. Saves are atomic: the
// snapshot is written to a temp file first and renamed over the previous one,
// so a crash mid-write never corrupts the last good snapshot.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed store at the given path.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("file store: path required")
	}
	return &FileStore{path: path}, nil
}

// Save writes the snapshot atomically.
func (s *FileStore) Save(ctx context.Context, snap Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	snap.stamp(s.Name())

	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("file store: create temp: %w", err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("file store: encode: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("file store: close temp: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("file store: rename: %w", err)
	}
	return nil
}

// Load reads the snapshot file. A missing file is ErrSnapshotNotFound.
func (s *FileStore) Load(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	if err := ctx.Err(); err != nil {
		return snap, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return snap, ErrSnapshotNotFound
		}
		return snap, fmt.Errorf("file store: open: %w", err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(&snap); err != nil {
		return snap, fmt.Errorf("file store: decode: %w", err)
	}
	return snap, nil
}

// Name returns the backend identifier.
func (s *FileStore) Name() string { return "file" }

// Close is a no-op for the file backend.
func (s *FileStore) Close() error { return nil }
