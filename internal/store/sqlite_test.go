package store

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/Harshitk-cp/feps/internal/domain"
	"github.com/google/uuid"
)

func openTestBackend(t *testing.T) Backend {
	t.Helper()
	b, err := OpenSQLite(filepath.Join(t.TempDir(), "feps.db"))
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	t.Cleanup(func() { b.Close() })

	if err := b.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}
	return b
}

func TestOpen_UnknownBackend(t *testing.T) {
	if _, err := Open(context.Background(), "mongodb", "whatever"); err == nil {
		t.Fatal("Open accepted an unknown backend")
	}
	if _, err := Open(context.Background(), BackendSQLite, ""); err == nil {
		t.Fatal("Open accepted an empty sqlite DSN")
	}
}

func TestSQLiteAgentStore_CreateAndGet(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()

	agent := &domain.Agent{
		ExternalID: "robot-7",
		Name:       "Corridor Robot",
		Params:     domain.ModelParams{Clones: 3, Gamma: 0.05, BaseReward: 2},
		Vocabulary: []string{"corner", "edge"},
	}
	if err := b.Agents().Create(ctx, agent); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if agent.ID == uuid.Nil {
		t.Fatal("Create left the agent ID unset")
	}
	if agent.CreatedAt.IsZero() || agent.LastActiveAt.IsZero() {
		t.Fatal("Create left timestamps unset")
	}

	got, err := b.Agents().GetByID(ctx, agent.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.ExternalID != agent.ExternalID || got.Name != agent.Name {
		t.Errorf("GetByID = %q/%q, want %q/%q", got.ExternalID, got.Name, agent.ExternalID, agent.Name)
	}
	if got.Params != agent.Params {
		t.Errorf("params = %+v, want %+v", got.Params, agent.Params)
	}
	if !reflect.DeepEqual(got.Vocabulary, agent.Vocabulary) {
		t.Errorf("vocabulary = %v, want %v", got.Vocabulary, agent.Vocabulary)
	}
	if !got.CreatedAt.Equal(agent.CreatedAt) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, agent.CreatedAt)
	}

	byExternal, err := b.Agents().GetByExternalID(ctx, "robot-7")
	if err != nil {
		t.Fatalf("GetByExternalID failed: %v", err)
	}
	if byExternal.ID != agent.ID {
		t.Errorf("GetByExternalID ID = %s, want %s", byExternal.ID, agent.ID)
	}

	dup := &domain.Agent{ExternalID: "robot-7", Params: agent.Params}
	if err := b.Agents().Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate external_id error = %v, want ErrConflict", err)
	}

	if _, err := b.Agents().GetByID(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteAgentStore_TouchLastActive(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()

	agent := &domain.Agent{
		ExternalID: "robot-8",
		Params:     domain.ModelParams{Clones: 2, Gamma: 0.1, BaseReward: 1},
	}
	if err := b.Agents().Create(ctx, agent); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	later := agent.LastActiveAt.Add(90 * time.Second)
	if err := b.Agents().TouchLastActive(ctx, agent.ID, later); err != nil {
		t.Fatalf("TouchLastActive failed: %v", err)
	}

	got, err := b.Agents().GetByID(ctx, agent.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !got.LastActiveAt.Equal(later) {
		t.Errorf("last_active_at = %v, want %v", got.LastActiveAt, later)
	}

	if err := b.Agents().TouchLastActive(ctx, uuid.New(), later); !errors.Is(err, ErrNotFound) {
		t.Errorf("TouchLastActive(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteSnapshotStore_SaveLatestPrune(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()

	agent := &domain.Agent{
		ExternalID: "robot-9",
		Params:     domain.ModelParams{Clones: 2, Gamma: 0.1, BaseReward: 1},
	}
	if err := b.Agents().Create(ctx, agent); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	payloads := [][]byte{
		[]byte(`{"version":1,"n":0}`),
		[]byte(`{"version":1,"n":1}`),
		[]byte(`{"version":1,"n":2}`),
	}
	for i, p := range payloads {
		snap := &domain.Snapshot{
			AgentID:   agent.ID,
			Version:   domain.SnapshotVersion,
			Payload:   p,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := b.Snapshots().Save(ctx, snap); err != nil {
			t.Fatalf("Save %d failed: %v", i, err)
		}
	}

	latest, err := b.Snapshots().Latest(ctx, agent.ID)
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if !bytes.Equal(latest.Payload, payloads[2]) {
		t.Errorf("Latest payload = %s, want %s", latest.Payload, payloads[2])
	}
	if latest.Version != domain.SnapshotVersion {
		t.Errorf("Latest version = %d, want %d", latest.Version, domain.SnapshotVersion)
	}

	removed, err := b.Snapshots().Prune(ctx, agent.ID, 2)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Prune removed %d rows, want 1", removed)
	}

	latest, err = b.Snapshots().Latest(ctx, agent.ID)
	if err != nil {
		t.Fatalf("Latest after prune failed: %v", err)
	}
	if !bytes.Equal(latest.Payload, payloads[2]) {
		t.Errorf("Latest after prune = %s, want %s", latest.Payload, payloads[2])
	}

	if _, err := b.Snapshots().Latest(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Latest(unknown) error = %v, want ErrNotFound", err)
	}

	orphan := &domain.Snapshot{AgentID: uuid.New(), Version: domain.SnapshotVersion, Payload: []byte(`{}`)}
	if err := b.Snapshots().Save(ctx, orphan); err == nil {
		t.Error("Save accepted a snapshot for a nonexistent agent")
	}
}
