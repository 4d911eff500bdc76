package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Harshitk-cp/feps/internal/domain"
	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS agents (
	id             TEXT PRIMARY KEY,
	external_id    TEXT NOT NULL UNIQUE,
	name           TEXT NOT NULL DEFAULT '',
	clones         INTEGER NOT NULL,
	gamma          REAL NOT NULL,
	base_reward    REAL NOT NULL,
	vocabulary     TEXT NOT NULL DEFAULT '[]',
	created_at     TEXT NOT NULL,
	last_active_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS model_snapshots (
	id         TEXT PRIMARY KEY,
	agent_id   TEXT NOT NULL REFERENCES agents(id) ON DELETE CASCADE,
	version    INTEGER NOT NULL,
	payload    BLOB NOT NULL,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_model_snapshots_agent_created
	ON model_snapshots (agent_id, created_at DESC);
`

// SQLite is the embedded single-file store, the default for local runs and
// single-node deployments. Times are stored as RFC 3339 text and UUIDs as
// their string form.
type SQLite struct {
	db        *sql.DB
	agents    *sqliteAgentStore
	snapshots *sqliteSnapshotStore
}

func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma journal_mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma foreign_keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}
	return &SQLite{
		db:        db,
		agents:    &sqliteAgentStore{db: db},
		snapshots: &sqliteSnapshotStore{db: db},
	}, nil
}

func (s *SQLite) Agents() domain.AgentStore       { return s.agents }
func (s *SQLite) Snapshots() domain.SnapshotStore { return s.snapshots }
func (s *SQLite) Name() string                    { return BackendSQLite }

func (s *SQLite) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// isSQLiteConflict reports whether err is a uniqueness violation, covering
// both UNIQUE columns and primary keys.
func isSQLiteConflict(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
		se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

type sqliteAgentStore struct {
	db *sql.DB
}

func (s *sqliteAgentStore) Create(ctx context.Context, a *domain.Agent) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.LastActiveAt = now

	vocabularyJSON, err := json.Marshal(a.Vocabulary)
	if err != nil {
		return fmt.Errorf("marshal vocabulary: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO agents (id, external_id, name, clones, gamma, base_reward, vocabulary, created_at, last_active_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID.String(), a.ExternalID, a.Name, a.Params.Clones, a.Params.Gamma, a.Params.BaseReward,
		string(vocabularyJSON), a.CreatedAt.Format(time.RFC3339Nano), a.LastActiveAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		if isSQLiteConflict(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (s *sqliteAgentStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Agent, error) {
	return scanSQLiteAgent(s.db.QueryRowContext(ctx,
		`SELECT id, external_id, name, clones, gamma, base_reward, vocabulary, created_at, last_active_at
		 FROM agents WHERE id = ?`,
		id.String(),
	))
}

func (s *sqliteAgentStore) GetByExternalID(ctx context.Context, externalID string) (*domain.Agent, error) {
	return scanSQLiteAgent(s.db.QueryRowContext(ctx,
		`SELECT id, external_id, name, clones, gamma, base_reward, vocabulary, created_at, last_active_at
		 FROM agents WHERE external_id = ?`,
		externalID,
	))
}

func (s *sqliteAgentStore) TouchLastActive(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE agents SET last_active_at = ? WHERE id = ?`,
		at.UTC().Format(time.RFC3339Nano), id.String(),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanSQLiteAgent(row *sql.Row) (*domain.Agent, error) {
	a := &domain.Agent{}
	var id, vocabularyJSON, createdAt, lastActiveAt string

	err := row.Scan(
		&id, &a.ExternalID, &a.Name,
		&a.Params.Clones, &a.Params.Gamma, &a.Params.BaseReward,
		&vocabularyJSON, &createdAt, &lastActiveAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if a.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse agent id: %w", err)
	}
	if err := json.Unmarshal([]byte(vocabularyJSON), &a.Vocabulary); err != nil {
		return nil, fmt.Errorf("unmarshal vocabulary: %w", err)
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	a.LastActiveAt, _ = time.Parse(time.RFC3339Nano, lastActiveAt)
	return a, nil
}

type sqliteSnapshotStore struct {
	db *sql.DB
}

func (s *sqliteSnapshotStore) Save(ctx context.Context, snap *domain.Snapshot) error {
	if snap.ID == uuid.Nil {
		snap.ID = uuid.New()
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO model_snapshots (id, agent_id, version, payload, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		snap.ID.String(), snap.AgentID.String(), snap.Version, snap.Payload,
		snap.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		if isSQLiteConflict(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (s *sqliteSnapshotStore) Latest(ctx context.Context, agentID uuid.UUID) (*domain.Snapshot, error) {
	snap := &domain.Snapshot{}
	var id, aid, createdAt string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, agent_id, version, payload, created_at
		 FROM model_snapshots WHERE agent_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT 1`,
		agentID.String(),
	).Scan(&id, &aid, &snap.Version, &snap.Payload, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if snap.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse snapshot id: %w", err)
	}
	if snap.AgentID, err = uuid.Parse(aid); err != nil {
		return nil, fmt.Errorf("parse agent id: %w", err)
	}
	snap.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return snap, nil
}

func (s *sqliteSnapshotStore) Prune(ctx context.Context, agentID uuid.UUID, keep int) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM model_snapshots
		 WHERE agent_id = ? AND id NOT IN (
			SELECT id FROM model_snapshots WHERE agent_id = ?
			ORDER BY created_at DESC, id DESC LIMIT ?
		 )`,
		agentID.String(), agentID.String(), keep,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

var (
	_ domain.AgentStore    = (*sqliteAgentStore)(nil)
	_ domain.SnapshotStore = (*sqliteSnapshotStore)(nil)
)
