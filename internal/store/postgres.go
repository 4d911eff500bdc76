package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Harshitk-cp/feps/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS agents (
		id             UUID PRIMARY KEY,
		external_id    TEXT NOT NULL UNIQUE,
		name           TEXT NOT NULL DEFAULT '',
		clones         INTEGER NOT NULL,
		gamma          DOUBLE PRECISION NOT NULL,
		base_reward    DOUBLE PRECISION NOT NULL,
		vocabulary     JSONB NOT NULL DEFAULT '[]',
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		last_active_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS model_snapshots (
		id         UUID PRIMARY KEY,
		agent_id   UUID NOT NULL REFERENCES agents(id) ON DELETE CASCADE,
		version    INTEGER NOT NULL,
		payload    JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_model_snapshots_agent_created
		ON model_snapshots (agent_id, created_at DESC)`,
}

// Postgres is the pgx-backed store, intended for deployments where several
// replicas share one database.
type Postgres struct {
	db        *pgxpool.Pool
	agents    *pgAgentStore
	snapshots *pgSnapshotStore
}

func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Postgres{
		db:        pool,
		agents:    &pgAgentStore{db: pool},
		snapshots: &pgSnapshotStore{db: pool},
	}, nil
}

func (p *Postgres) Agents() domain.AgentStore       { return p.agents }
func (p *Postgres) Snapshots() domain.SnapshotStore { return p.snapshots }
func (p *Postgres) Name() string                    { return BackendPostgres }

func (p *Postgres) EnsureSchema(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := p.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.Ping(ctx)
}

func (p *Postgres) Close() error {
	p.db.Close()
	return nil
}

type pgAgentStore struct {
	db *pgxpool.Pool
}

func (s *pgAgentStore) Create(ctx context.Context, a *domain.Agent) error {
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

	_, err = s.db.Exec(ctx,
		`INSERT INTO agents (id, external_id, name, clones, gamma, base_reward, vocabulary, created_at, last_active_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.ExternalID, a.Name, a.Params.Clones, a.Params.Gamma, a.Params.BaseReward,
		vocabularyJSON, a.CreatedAt, a.LastActiveAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (s *pgAgentStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Agent, error) {
	return scanPgAgent(s.db.QueryRow(ctx,
		`SELECT id, external_id, name, clones, gamma, base_reward, vocabulary, created_at, last_active_at
		 FROM agents WHERE id = $1`,
		id,
	))
}

func (s *pgAgentStore) GetByExternalID(ctx context.Context, externalID string) (*domain.Agent, error) {
	return scanPgAgent(s.db.QueryRow(ctx,
		`SELECT id, external_id, name, clones, gamma, base_reward, vocabulary, created_at, last_active_at
		 FROM agents WHERE external_id = $1`,
		externalID,
	))
}

func (s *pgAgentStore) TouchLastActive(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE agents SET last_active_at = $2 WHERE id = $1`,
		id, at,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPgAgent(row pgx.Row) (*domain.Agent, error) {
	a := &domain.Agent{}
	var vocabularyJSON []byte

	err := row.Scan(
		&a.ID, &a.ExternalID, &a.Name,
		&a.Params.Clones, &a.Params.Gamma, &a.Params.BaseReward,
		&vocabularyJSON, &a.CreatedAt, &a.LastActiveAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if len(vocabularyJSON) > 0 {
		if err := json.Unmarshal(vocabularyJSON, &a.Vocabulary); err != nil {
			return nil, fmt.Errorf("unmarshal vocabulary: %w", err)
		}
	}
	return a, nil
}

type pgSnapshotStore struct {
	db *pgxpool.Pool
}

func (s *pgSnapshotStore) Save(ctx context.Context, snap *domain.Snapshot) error {
	if snap.ID == uuid.Nil {
		snap.ID = uuid.New()
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO model_snapshots (id, agent_id, version, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		snap.ID, snap.AgentID, snap.Version, snap.Payload, snap.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (s *pgSnapshotStore) Latest(ctx context.Context, agentID uuid.UUID) (*domain.Snapshot, error) {
	snap := &domain.Snapshot{}
	err := s.db.QueryRow(ctx,
		`SELECT id, agent_id, version, payload, created_at
		 FROM model_snapshots WHERE agent_id = $1
		 ORDER BY created_at DESC, id DESC LIMIT 1`,
		agentID,
	).Scan(&snap.ID, &snap.AgentID, &snap.Version, &snap.Payload, &snap.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return snap, nil
}

func (s *pgSnapshotStore) Prune(ctx context.Context, agentID uuid.UUID, keep int) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM model_snapshots
		 WHERE agent_id = $1 AND id NOT IN (
			SELECT id FROM model_snapshots WHERE agent_id = $1
			ORDER BY created_at DESC, id DESC LIMIT $2
		 )`,
		agentID, keep,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var (
	_ domain.AgentStore    = (*pgAgentStore)(nil)
	_ domain.SnapshotStore = (*pgSnapshotStore)(nil)
)
