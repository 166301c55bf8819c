package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/ashureev/debate-labs/internal/domain"
)

func TestSerializedUpdateNoLostWrites(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewSerialized(newTestFileStore(t))

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("sess-%d", i)
			err := s.Update(ctx, func(snap domain.Snapshot) error {
				snap[id] = domain.Session{History: []domain.Message{domain.UserMessage(id)}}
				return nil
			})
			if err != nil {
				t.Errorf("Update %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	snap := s.Load(ctx)
	if len(snap) != writers {
		t.Fatalf("expected %d sessions, got %d", writers, len(snap))
	}
}

func TestSerializedUpdateAbortsOnError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewSerialized(newTestFileStore(t))
	if err := s.Update(ctx, func(snap domain.Snapshot) error {
		snap["keep"] = domain.Session{History: []domain.Message{}}
		return nil
	}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	errBoom := errors.New("boom")
	err := s.Update(ctx, func(snap domain.Snapshot) error {
		snap["drop"] = domain.Session{}
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected errBoom, got %v", err)
	}

	snap := s.Load(ctx)
	if _, ok := snap["drop"]; ok {
		t.Fatal("aborted update must not be saved")
	}
	if _, ok := snap["keep"]; !ok {
		t.Fatal("expected earlier session to survive")
	}
}

// flakyStore fails LoadChecked while readFails is set.
type flakyStore struct {
	*FileStore
	readFails bool
	saves     int
}

func (f *flakyStore) LoadChecked(ctx context.Context) (domain.Snapshot, error) {
	if f.readFails {
		return nil, fmt.Errorf("%w: i/o error", ErrLoadFailed)
	}
	return f.FileStore.LoadChecked(ctx)
}

func (f *flakyStore) Save(ctx context.Context, snap domain.Snapshot) error {
	f.saves++
	return f.FileStore.Save(ctx, snap)
}

func TestSerializedUpdateRefusesUnreadableSnapshot(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	inner := &flakyStore{FileStore: newTestFileStore(t)}
	s := NewSerialized(inner)
	if err := s.Update(ctx, func(snap domain.Snapshot) error {
		snap["other"] = domain.Session{History: []domain.Message{domain.UserMessage("keep me")}}
		return nil
	}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	inner.readFails = true
	called := false
	err := s.Update(ctx, func(snap domain.Snapshot) error {
		called = true
		snap["mine"] = domain.Session{}
		return nil
	})
	if !errors.Is(err, ErrSaveFailed) || !errors.Is(err, ErrLoadFailed) {
		t.Fatalf("expected ErrSaveFailed wrapping ErrLoadFailed, got %v", err)
	}
	if called {
		t.Fatal("fn must not run on an unreadable snapshot")
	}
	if inner.saves != 1 {
		t.Fatalf("expected no save after the failed read, got %d saves", inner.saves)
	}

	inner.readFails = false
	snap := s.Load(ctx)
	if _, ok := snap["other"]; !ok || len(snap) != 1 {
		t.Fatalf("expected the existing session to survive untouched, got %v", snap)
	}
}

func TestSerializedUpdateOverMalformedSnapshot(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fs := newTestFileStore(t)
	if err := os.WriteFile(fs.Path(), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s := NewSerialized(fs)
	if err := s.Update(ctx, func(snap domain.Snapshot) error {
		snap["fresh"] = domain.Session{History: []domain.Message{}}
		return nil
	}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if _, ok := s.Load(ctx)["fresh"]; !ok {
		t.Fatal("expected a malformed snapshot to be replaced")
	}
}
