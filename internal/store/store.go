// Package store provides snapshot persistence for debate sessions.
//
// Every implementation persists the complete set of sessions as one unit.
// There are no per-key updates: callers read the whole snapshot, modify it,
// and save it back. Use Serialized to make that round trip safe when more
// than one goroutine writes.
package store

import (
	"context"
	"errors"

	"github.com/ashureev/debate-labs/internal/domain"
)

// ErrSaveFailed wraps any failure to persist a snapshot.
var ErrSaveFailed = errors.New("save snapshot failed")

// ErrLoadFailed wraps a failure to read a snapshot that exists.
var ErrLoadFailed = errors.New("load snapshot failed")

// Store defines the interface for persisting session snapshots.
type Store interface {
	// Load returns the last persisted snapshot. It never fails: a missing,
	// unreadable, or malformed medium yields an empty snapshot.
	Load(ctx context.Context) domain.Snapshot

	// Save atomically replaces the persisted snapshot.
	Save(ctx context.Context, snap domain.Snapshot) error

	// Clear persists an empty snapshot.
	Clear(ctx context.Context) error

	// Close releases resources held by the store.
	Close() error
}

// CheckedLoader is implemented by stores that can tell a missing snapshot
// apart from one they failed to read. A missing or malformed medium still
// yields an empty snapshot and no error; a read failure returns ErrLoadFailed.
type CheckedLoader interface {
	LoadChecked(ctx context.Context) (domain.Snapshot, error)
}
