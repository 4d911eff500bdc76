package domain

import (
	"time"

	"github.com/google/uuid"
)

// SnapshotVersion is the current wire version of ModelSnapshot documents.
const SnapshotVersion = 1

// SuccessorWeight is one learned successor clone with its accumulated
// transition weight.
type SuccessorWeight struct {
	Clone  CloneID `json:"clone"`
	Weight float64 `json:"weight"`
}

// TransitionRecord is the persisted form of one (from clone, action) row of
// the transition table.
type TransitionRecord struct {
	From       CloneID           `json:"from"`
	Action     string            `json:"action"`
	Successors []SuccessorWeight `json:"successors"`
}

// ModelSnapshot is the complete persistable state of a model: parameters,
// the observation vocabulary in insertion order, and the transition table.
// Belief state and trajectories are episode-scoped and deliberately excluded.
type ModelSnapshot struct {
	Version      int                `json:"version"`
	Params       ModelParams        `json:"params"`
	Observations []string           `json:"observations"`
	Transitions  []TransitionRecord `json:"transitions"`
}

// Snapshot is a stored ModelSnapshot blob belonging to an agent.
type Snapshot struct {
	ID        uuid.UUID `json:"id"`
	AgentID   uuid.UUID `json:"agent_id"`
	Version   int       `json:"version"`
	Payload   []byte    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}
