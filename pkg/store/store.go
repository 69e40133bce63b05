// Package store persists ledger snapshots. Backends are interchangeable and
// opaque to the ledger core: a loaded snapshot must round-trip exactly to the
// saved one (accounts, transactions, counters, admin credential).
package store

import (
	"context"
	"errors"
)

// ErrSnapshotNotFound is returned by Load when no snapshot has been saved yet.
// It is distinct from I/O errors: a fresh deployment is not a failure.
var ErrSnapshotNotFound = errors.New("store: snapshot not found")

// ErrUnavailable is returned when the backing store is temporarily rejecting
// requests (circuit breaker open).
var ErrUnavailable = errors.New("store: unavailable")

// Store saves and loads opaque ledger snapshots.
type Store interface {
	// Save persists the snapshot, replacing any previous one as the latest.
	Save(ctx context.Context, snap Snapshot) error

	// Load returns the most recent snapshot, or ErrSnapshotNotFound.
	Load(ctx context.Context) (Snapshot, error)

	// Name identifies the backend for logs and metrics.
	Name() string

	// Close releases backend resources.
	Close() error
}

// IsNotFound checks if the given error indicates a missing snapshot.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSnapshotNotFound)
}
