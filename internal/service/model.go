package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Harshitk-cp/feps/internal/domain"
	"github.com/Harshitk-cp/feps/internal/feps"
	"github.com/Harshitk-cp/feps/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultSnapshotKeep is how many snapshots survive pruning per agent.
const DefaultSnapshotKeep = 5

var (
	ErrAgentNotFound = errors.New("agent not found")
	ErrAgentConflict = errors.New("agent with this external_id already exists")
)

// managedModel pairs a live model with its persistence bookkeeping. The
// model pointer is atomic so an import can swap it without stalling reads.
type managedModel struct {
	agent *domain.Agent
	model atomic.Pointer[feps.Model]

	lastUsed atomic.Int64 // unix nanoseconds
	dirty    atomic.Bool
}

func (mm *managedModel) touch() {
	mm.lastUsed.Store(time.Now().UnixNano())
}

// ModelService owns the live models: it loads them from snapshots on first
// use, routes every operation, and writes dirty models back on checkpoint.
type ModelService struct {
	agents    domain.AgentStore
	snapshots domain.SnapshotStore
	logger    *zap.Logger

	defaults     domain.ModelParams
	snapshotKeep int

	mu     sync.Mutex
	models map[uuid.UUID]*managedModel
}

func NewModelService(agents domain.AgentStore, snapshots domain.SnapshotStore, defaults domain.ModelParams, logger *zap.Logger) *ModelService {
	return &ModelService{
		agents:       agents,
		snapshots:    snapshots,
		logger:       logger,
		defaults:     defaults,
		snapshotKeep: DefaultSnapshotKeep,
		models:       make(map[uuid.UUID]*managedModel),
	}
}

func (s *ModelService) SetSnapshotKeep(n int) {
	if n > 0 {
		s.snapshotKeep = n
	}
}

// CreateAgentInput carries the create request. Nil parameter fields fall
// back to the service defaults.
type CreateAgentInput struct {
	ExternalID string
	Name       string
	Clones     *int
	Gamma      *float64
	BaseReward *float64
	Vocabulary []string
}

// BeliefState is the queryable view of an agent's current episode.
type BeliefState struct {
	Candidates    []domain.BeliefCandidate `json:"candidates"`
	History       []string                 `json:"history"`
	TrajectoryLen int                      `json:"trajectory_len"`
}

func (s *ModelService) CreateAgent(ctx context.Context, input CreateAgentInput) (*domain.Agent, error) {
	params := s.defaults
	if input.Clones != nil {
		params.Clones = *input.Clones
	}
	if input.Gamma != nil {
		params.Gamma = *input.Gamma
	}
	if input.BaseReward != nil {
		params.BaseReward = *input.BaseReward
	}

	// Building the model up front validates the parameters and the
	// vocabulary before anything is written.
	model, err := feps.New(params)
	if err != nil {
		return nil, err
	}
	if len(input.Vocabulary) > 0 {
		if err := model.RegisterObservations(input.Vocabulary...); err != nil {
			return nil, err
		}
	}

	agent := &domain.Agent{
		ExternalID: input.ExternalID,
		Name:       input.Name,
		Params:     params,
		Vocabulary: model.Export().Observations,
	}
	if err := s.agents.Create(ctx, agent); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrAgentConflict
		}
		return nil, fmt.Errorf("create agent: %w", err)
	}

	mm := &managedModel{agent: agent}
	mm.model.Store(model)
	mm.touch()

	s.mu.Lock()
	s.models[agent.ID] = mm
	s.mu.Unlock()

	s.logger.Info("agent created",
		zap.String("agent_id", agent.ID.String()),
		zap.String("external_id", agent.ExternalID),
		zap.Int("clones", params.Clones))
	return agent, nil
}

func (s *ModelService) GetAgent(ctx context.Context, id uuid.UUID) (*domain.Agent, error) {
	a, err := s.agents.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAgentNotFound
		}
		return nil, err
	}
	return a, nil
}

// LookupAgent resolves a path or query reference that may be either the
// agent UUID or its external ID.
func (s *ModelService) LookupAgent(ctx context.Context, ref string) (*domain.Agent, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return s.GetAgent(ctx, id)
	}
	a, err := s.agents.GetByExternalID(ctx, ref)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAgentNotFound
		}
		return nil, err
	}
	return a, nil
}

// ResolveAgentID turns a reference into the agent UUID. UUID references
// resolve without touching the store; existence is checked when the model
// loads.
func (s *ModelService) ResolveAgentID(ctx context.Context, ref string) (uuid.UUID, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return id, nil
	}
	a, err := s.LookupAgent(ctx, ref)
	if err != nil {
		return uuid.Nil, err
	}
	return a.ID, nil
}

func (s *ModelService) Observe(ctx context.Context, agentID uuid.UUID, observation, action string) (domain.BeliefSnapshot, error) {
	mm, err := s.getModel(ctx, agentID)
	if err != nil {
		return domain.BeliefSnapshot{}, err
	}
	snap, err := mm.model.Load().Observe(observation, action)
	if err != nil {
		return domain.BeliefSnapshot{}, err
	}
	mm.dirty.Store(true)
	return snap, nil
}

func (s *ModelService) Predict(ctx context.Context, agentID uuid.UUID, action string) (domain.Prediction, error) {
	mm, err := s.getModel(ctx, agentID)
	if err != nil {
		return domain.Prediction{}, err
	}
	return mm.model.Load().Predict(action)
}

func (s *ModelService) SamplePredict(ctx context.Context, agentID uuid.UUID, action string) (domain.Prediction, error) {
	mm, err := s.getModel(ctx, agentID)
	if err != nil {
		return domain.Prediction{}, err
	}
	return mm.model.Load().SamplePrediction(action)
}

func (s *ModelService) Uncertainty(ctx context.Context, agentID uuid.UUID, action string) (float64, error) {
	mm, err := s.getModel(ctx, agentID)
	if err != nil {
		return 0, err
	}
	return mm.model.Load().Uncertainty(action)
}

func (s *ModelService) Beliefs(ctx context.Context, agentID uuid.UUID) (*BeliefState, error) {
	mm, err := s.getModel(ctx, agentID)
	if err != nil {
		return nil, err
	}
	m := mm.model.Load()
	return &BeliefState{
		Candidates:    m.Beliefs(),
		History:       m.History(),
		TrajectoryLen: m.TrajectoryLen(),
	}, nil
}

func (s *ModelService) ResolveOutcome(ctx context.Context, agentID uuid.UUID, predicted, actual string) (float64, error) {
	mm, err := s.getModel(ctx, agentID)
	if err != nil {
		return 0, err
	}
	reward, err := mm.model.Load().ResolveOutcome(predicted, actual)
	if err != nil {
		return 0, err
	}
	if reward != 0 {
		mm.dirty.Store(true)
	}
	return reward, nil
}

func (s *ModelService) ResetEpisode(ctx context.Context, agentID uuid.UUID) error {
	mm, err := s.getModel(ctx, agentID)
	if err != nil {
		return err
	}
	mm.model.Load().ResetEpisode()
	return nil
}

func (s *ModelService) RegisterObservations(ctx context.Context, agentID uuid.UUID, observations ...string) error {
	mm, err := s.getModel(ctx, agentID)
	if err != nil {
		return err
	}
	if err := mm.model.Load().RegisterObservations(observations...); err != nil {
		return err
	}
	mm.dirty.Store(true)
	return nil
}

func (s *ModelService) Export(ctx context.Context, agentID uuid.UUID) (*domain.ModelSnapshot, error) {
	mm, err := s.getModel(ctx, agentID)
	if err != nil {
		return nil, err
	}
	return mm.model.Load().Export(), nil
}

// Import replaces the agent's model with the given snapshot and checkpoints
// immediately so the swap survives a crash.
func (s *ModelService) Import(ctx context.Context, agentID uuid.UUID, snapshot *domain.ModelSnapshot) error {
	mm, err := s.getModel(ctx, agentID)
	if err != nil {
		return err
	}
	model, err := feps.Restore(snapshot)
	if err != nil {
		return err
	}
	mm.model.Store(model)
	mm.dirty.Store(true)
	return s.Checkpoint(ctx, agentID)
}

// Checkpoint persists the agent's current model, prunes old snapshots and
// clears the dirty flag.
func (s *ModelService) Checkpoint(ctx context.Context, agentID uuid.UUID) error {
	mm, err := s.getModel(ctx, agentID)
	if err != nil {
		return err
	}
	if err := s.persist(ctx, mm); err != nil {
		return err
	}
	mm.dirty.Store(false)
	return nil
}

// FlushDirty checkpoints every loaded model with unsaved changes and
// reports how many were written.
func (s *ModelService) FlushDirty(ctx context.Context) (int, error) {
	flushed := 0
	var firstErr error
	for _, mm := range s.loadedModels() {
		if !mm.dirty.Load() {
			continue
		}
		if err := s.persist(ctx, mm); err != nil {
			s.logger.Error("checkpoint failed",
				zap.String("agent_id", mm.agent.ID.String()),
				zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		mm.dirty.Store(false)
		flushed++
	}
	return flushed, firstErr
}

// EvictIdle unloads models idle for longer than ttl, checkpointing dirty
// ones first. Models that fail to persist stay loaded.
func (s *ModelService) EvictIdle(ctx context.Context, ttl time.Duration) (int, error) {
	cutoff := time.Now().Add(-ttl).UnixNano()

	evicted := 0
	var firstErr error
	for _, mm := range s.loadedModels() {
		if mm.lastUsed.Load() > cutoff {
			continue
		}
		if mm.dirty.Load() {
			if err := s.persist(ctx, mm); err != nil {
				s.logger.Error("checkpoint before eviction failed",
					zap.String("agent_id", mm.agent.ID.String()),
					zap.Error(err))
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			mm.dirty.Store(false)
		}

		s.mu.Lock()
		// A request may have arrived while persisting.
		if mm.lastUsed.Load() <= cutoff {
			delete(s.models, mm.agent.ID)
			evicted++
		}
		s.mu.Unlock()
	}
	if evicted > 0 {
		s.logger.Info("evicted idle models", zap.Int("count", evicted))
	}
	return evicted, firstErr
}

// Loaded reports how many models are resident in memory.
func (s *ModelService) Loaded() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.models)
}

func (s *ModelService) loadedModels() []*managedModel {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*managedModel, 0, len(s.models))
	for _, mm := range s.models {
		out = append(out, mm)
	}
	return out
}

// getModel returns the live model for the agent, restoring it from the
// latest snapshot on first use. Agents that have never been checkpointed
// are rebuilt from their stored parameters and vocabulary.
func (s *ModelService) getModel(ctx context.Context, agentID uuid.UUID) (*managedModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if mm, ok := s.models[agentID]; ok {
		mm.touch()
		return mm, nil
	}

	agent, err := s.agents.GetByID(ctx, agentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAgentNotFound
		}
		return nil, fmt.Errorf("load agent: %w", err)
	}

	model, err := s.restoreModel(ctx, agent)
	if err != nil {
		return nil, err
	}

	mm := &managedModel{agent: agent}
	mm.model.Store(model)
	mm.touch()
	s.models[agentID] = mm

	s.logger.Debug("model loaded",
		zap.String("agent_id", agent.ID.String()),
		zap.String("external_id", agent.ExternalID))
	return mm, nil
}

func (s *ModelService) restoreModel(ctx context.Context, agent *domain.Agent) (*feps.Model, error) {
	stored, err := s.snapshots.Latest(ctx, agent.ID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("load snapshot: %w", err)
		}
		model, err := feps.New(agent.Params)
		if err != nil {
			return nil, fmt.Errorf("rebuild model: %w", err)
		}
		if len(agent.Vocabulary) > 0 {
			if err := model.RegisterObservations(agent.Vocabulary...); err != nil {
				return nil, fmt.Errorf("rebuild vocabulary: %w", err)
			}
		}
		return model, nil
	}

	var snapshot domain.ModelSnapshot
	if err := json.Unmarshal(stored.Payload, &snapshot); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", stored.ID, err)
	}
	model, err := feps.Restore(&snapshot)
	if err != nil {
		return nil, fmt.Errorf("restore snapshot %s: %w", stored.ID, err)
	}
	return model, nil
}

func (s *ModelService) persist(ctx context.Context, mm *managedModel) error {
	snapshot := mm.model.Load().Export()
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	stored := &domain.Snapshot{
		AgentID: mm.agent.ID,
		Version: snapshot.Version,
		Payload: payload,
	}
	if err := s.snapshots.Save(ctx, stored); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	if _, err := s.snapshots.Prune(ctx, mm.agent.ID, s.snapshotKeep); err != nil {
		s.logger.Warn("snapshot prune failed",
			zap.String("agent_id", mm.agent.ID.String()),
			zap.Error(err))
	}

	lastUsed := time.Unix(0, mm.lastUsed.Load()).UTC()
	if err := s.agents.TouchLastActive(ctx, mm.agent.ID, lastUsed); err != nil {
		s.logger.Warn("touch last_active failed",
			zap.String("agent_id", mm.agent.ID.String()),
			zap.Error(err))
	}

	s.logger.Debug("model checkpointed",
		zap.String("agent_id", mm.agent.ID.String()),
		zap.Int("transitions", len(snapshot.Transitions)))
	return nil
}
