package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/ashureev/debate-labs/internal/domain"
)

// Serialized wraps a Store so that every load-modify-save round trip runs as
// one critical section. Without it, two sessions finalizing at the same time
// can each load the same snapshot and the second save drops the first one's
// changes.
type Serialized struct {
	mu    sync.Mutex
	inner Store
}

// NewSerialized wraps inner with a single-writer lock.
func NewSerialized(inner Store) *Serialized {
	return &Serialized{inner: inner}
}

// Load returns a copy of the persisted snapshot.
func (s *Serialized) Load(ctx context.Context) domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Load(ctx)
}

// Update loads the snapshot, applies fn, and saves the result while holding
// the writer lock. If fn returns an error nothing is saved. If the wrapped
// store is a CheckedLoader and its snapshot could not be read, Update fails
// with ErrSaveFailed rather than overwrite sessions it never saw.
func (s *Serialized) Update(ctx context.Context, fn func(domain.Snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load(ctx)
	if err != nil {
		return fmt.Errorf("%w: snapshot unreadable, not overwriting: %w", ErrSaveFailed, err)
	}
	if err := fn(snap); err != nil {
		return err
	}
	return s.inner.Save(ctx, snap)
}

func (s *Serialized) load(ctx context.Context) (domain.Snapshot, error) {
	if cl, ok := s.inner.(CheckedLoader); ok {
		return cl.LoadChecked(ctx)
	}
	return s.inner.Load(ctx), nil
}

// Clear empties the persisted snapshot.
func (s *Serialized) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Clear(ctx)
}

// Close closes the wrapped store.
func (s *Serialized) Close() error {
	return s.inner.Close()
}
