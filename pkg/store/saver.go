package store

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Saver collapses concurrent snapshot saves into one. Taking a snapshot holds
// the ledger's locks, so overlapping save triggers (periodic flush plus a
// shutdown save) should not each freeze the ledger; the duplicate callers
// share the in-flight save's result instead.
type Saver struct {
	store Store
	sf    singleflight.Group
}

// NewSaver creates a saver in front of the given store.
func NewSaver(s Store) *Saver {
	return &Saver{store: s}
}

// Save takes a snapshot via the callback and persists it. Concurrent calls
// while a save is in flight return that save's result without invoking the
// callback again.
func (s *Saver) Save(ctx context.Context, take func() Snapshot) error {
	_, err, _ := s.sf.Do("snapshot", func() (interface{}, error) {
		return nil, s.store.Save(ctx, take())
	})
	return err
}
