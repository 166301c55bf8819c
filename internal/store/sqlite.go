package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ashureev/debate-labs/internal/domain"
	"github.com/ashureev/debate-labs/internal/shared"
	_ "modernc.org/sqlite"
)

// snapshotRowID is the primary key of the single snapshot row.
const snapshotRowID = 1

// SQLiteStore implements Store using SQLite. The whole snapshot lives in one
// row and is replaced by a single upsert.
type SQLiteStore struct {
	db         *sql.DB
	logger     *slog.Logger
	mu         sync.Mutex // Serializes writes to prevent SQLITE_BUSY
	maxRetries int
	baseDelay  time.Duration
}

// NewSQLite creates a new SQLite-backed store.
func NewSQLite(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{
		db:         db,
		logger:     logger,
		maxRetries: 3,
		baseDelay:  100 * time.Millisecond,
	}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		data TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Load reads the snapshot row.
func (s *SQLiteStore) Load(ctx context.Context) domain.Snapshot {
	snap, err := s.LoadChecked(ctx)
	if err != nil {
		return domain.Snapshot{}
	}
	return snap
}

// LoadChecked reads the snapshot row. A missing row is an empty snapshot;
// a failed query is returned.
func (s *SQLiteStore) LoadChecked(ctx context.Context) (domain.Snapshot, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM snapshots WHERE id = ?`, snapshotRowID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Snapshot{}, nil
	}
	if err != nil {
		s.logger.Warn("failed to read session snapshot", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}

	snap, err := DecodeSnapshot([]byte(data))
	if err != nil {
		s.logger.Warn("malformed session snapshot, starting empty", "error", err)
		return domain.Snapshot{}, nil
	}
	return snap, nil
}

// Save replaces the snapshot row.
// Retries with exponential backoff when the database is busy.
func (s *SQLiteStore) Save(ctx context.Context, snap domain.Snapshot) error {
	data, err := EncodeSnapshot(snap)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}

	for i := 0; i < s.maxRetries; i++ {
		err = s.saveOnce(ctx, string(data))
		if err == nil {
			return nil
		}

		if shared.IsSQLiteConflictError(err) && i < s.maxRetries-1 {
			delay := s.baseDelay * time.Duration(1<<i) // 100ms, 200ms, 400ms
			s.logger.Debug("snapshot save hit SQLITE_BUSY, retrying",
				"attempt", i+1,
				"delay", delay)
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrSaveFailed, ctx.Err())
			case <-time.After(delay):
			}
			continue
		}
		break
	}

	return fmt.Errorf("%w: %v", ErrSaveFailed, err)
}

func (s *SQLiteStore) saveOnce(ctx context.Context, data string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO snapshots (id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, query, snapshotRowID, data, time.Now().Unix()); err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

// Clear replaces the snapshot with an empty one.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	return s.Save(ctx, domain.Snapshot{})
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

var (
	_ Store         = (*SQLiteStore)(nil)
	_ CheckedLoader = (*SQLiteStore)(nil)
)
