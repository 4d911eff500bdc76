package store

import (
	"context"
	"fmt"

	"github.com/Harshitk-cp/feps/internal/domain"
)

// Backend constants
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Backend bundles the stores of one database together with its lifecycle.
// Both implementations expose identical semantics, including the ErrNotFound
// and ErrConflict mappings, so callers never branch on the backend.
type Backend interface {
	Agents() domain.AgentStore
	Snapshots() domain.SnapshotStore

	// Name reports which backend is serving, for logs and health output.
	Name() string
	// EnsureSchema creates missing tables and indexes. Safe to call on
	// every startup.
	EnsureSchema(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Open connects the named backend.
// Returns an error if the backend is unknown or the DSN is empty.
func Open(ctx context.Context, backend, dsn string) (Backend, error) {
	switch backend {
	case BackendPostgres:
		if dsn == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
		return OpenPostgres(ctx, dsn)

	case BackendSQLite:
		if dsn == "" {
			return nil, fmt.Errorf("SQLITE_PATH is required for the sqlite backend")
		}
		return OpenSQLite(dsn)

	default:
		return nil, fmt.Errorf("unknown store backend: %s (valid options: postgres, sqlite)", backend)
	}
}

var (
	_ Backend = (*Postgres)(nil)
	_ Backend = (*SQLite)(nil)
)
