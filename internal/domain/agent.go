package domain

import (
	"time"

	"github.com/google/uuid"
)

// Agent owns exactly one model. Vocabulary holds the observation tokens the
// model was seeded with at creation, so a model rebuilt without a snapshot
// reproduces the same clone insertion order.
type Agent struct {
	ID           uuid.UUID   `json:"id"`
	ExternalID   string      `json:"external_id"`
	Name         string      `json:"name"`
	Params       ModelParams `json:"params"`
	Vocabulary   []string    `json:"vocabulary,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	LastActiveAt time.Time   `json:"last_active_at"`
}
