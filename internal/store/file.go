package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ashureev/debate-labs/internal/domain"
)

// FileStore implements Store with a single JSON file.
type FileStore struct {
	path   string
	logger *slog.Logger
}

// NewFileStore creates a file-backed store at path. The parent directory is
// created if it does not exist; the file itself is created on first save.
func NewFileStore(path string, logger *slog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &FileStore{path: path, logger: logger}, nil
}

// Path returns the snapshot file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the snapshot file.
func (s *FileStore) Load(ctx context.Context) domain.Snapshot {
	snap, err := s.LoadChecked(ctx)
	if err != nil {
		return domain.Snapshot{}
	}
	return snap
}

// LoadChecked reads the snapshot file. A missing file is an empty snapshot;
// any other read error is returned.
func (s *FileStore) LoadChecked(_ context.Context) (domain.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.Snapshot{}, nil
		}
		s.logger.Warn("failed to read session snapshot", "path", s.path, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}

	snap, err := DecodeSnapshot(data)
	if err != nil {
		s.logger.Warn("malformed session snapshot, starting empty", "path", s.path, "error", err)
		return domain.Snapshot{}, nil
	}
	return snap, nil
}

// Save writes the snapshot to a temp file next to the target and renames it
// into place, so a crash leaves either the old or the new snapshot.
func (s *FileStore) Save(_ context.Context, snap domain.Snapshot) error {
	data, err := EncodeSnapshot(snap)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".sessions-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	return nil
}

// Clear replaces the snapshot with an empty one.
func (s *FileStore) Clear(ctx context.Context) error {
	return s.Save(ctx, domain.Snapshot{})
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error {
	return nil
}

var (
	_ Store         = (*FileStore)(nil)
	_ CheckedLoader = (*FileStore)(nil)
)
