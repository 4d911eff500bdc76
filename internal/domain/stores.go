package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type AgentStore interface {
	Create(ctx context.Context, a *Agent) error
	GetByID(ctx context.Context, id uuid.UUID) (*Agent, error)
	GetByExternalID(ctx context.Context, externalID string) (*Agent, error)
	TouchLastActive(ctx context.Context, id uuid.UUID, at time.Time) error
}

// SnapshotStore persists model snapshots. Latest returns the most recent
// snapshot for an agent; Prune drops all but the newest keep rows.
type SnapshotStore interface {
	Save(ctx context.Context, s *Snapshot) error
	Latest(ctx context.Context, agentID uuid.UUID) (*Snapshot, error)
	Prune(ctx context.Context, agentID uuid.UUID, keep int) (int64, error)
}
