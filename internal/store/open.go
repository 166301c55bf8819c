package store

import (
	"context"
	"fmt"
	"log/slog"
)

// Supported drivers for Open.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Options selects and locates a Store.
type Options struct {
	Driver string
	Path   string // snapshot file for DriverFile
	DBPath string // database file for DriverSQLite
}

// Open creates the store named by opts.Driver. A SQLite store is pinged
// before it is returned.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (Store, error) {
	switch opts.Driver {
	case DriverFile, "":
		return NewFileStore(opts.Path, logger)
	case DriverSQLite:
		db, err := NewSQLite(opts.DBPath, logger)
		if err != nil {
			return nil, err
		}
		if err := db.Ping(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", opts.Driver)
	}
}
