// Package feps implements the clone-based predictive model at the heart of
// the service: k parallel hypotheses (clones) per observed token, a sparse
// transition table over (clone, action) pairs, and a belief state pruned by
// comparing each hypothesis' prediction against what was actually observed.
package feps

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/Harshitk-cp/feps/internal/domain"
)

const (
	// DefaultClones is the usual number of hypotheses per observation.
	DefaultClones = 2
	// DefaultGamma is the usual forgetting parameter.
	DefaultGamma = 0.1
	// DefaultBaseReward is the usual reward for a confirmed prediction.
	DefaultBaseReward = 1.0

	// MatchBonus scales a surviving candidate's weight when its prediction
	// is confirmed. Survivors keep their prior weight before renormalizing.
	MatchBonus = 1.0

	// MaxTrajectory bounds the realized steps kept for credit assignment.
	MaxTrajectory = 512
	// MaxHistory bounds the recent-observation ring kept for introspection.
	MaxHistory = 256

	// weightEpsilon is the tolerance for belief normalization checks.
	weightEpsilon = 1e-9
)

// Model is a single agent's world model. All mutating operations hold the
// write lock for their entire step, so a step is atomic with respect to
// queries; queries take the read lock and may run concurrently with each
// other. A Model is not tied to any global state: independent agents use
// independent Models.
type Model struct {
	mu sync.RWMutex

	params domain.ModelParams
	policy domain.RewardPolicy
	rng    *rand.Rand

	registry    *cloneRegistry
	transitions *transitionTable
	beliefs     []domain.BeliefCandidate
	trajectory  []domain.Step
	history     []string
}

// Option configures a Model at construction.
type Option func(*Model)

// WithRand injects the random source used by SamplePrediction. Tests inject
// a seeded source; the default is time-seeded.
func WithRand(rng *rand.Rand) Option {
	return func(m *Model) { m.rng = rng }
}

// WithRewardPolicy replaces the default exact-match reward policy.
func WithRewardPolicy(p domain.RewardPolicy) Option {
	return func(m *Model) { m.policy = p }
}

// MatchReward pays Base when the predicted observation exactly matches the
// actual one, and nothing otherwise. It is the default RewardPolicy.
type MatchReward struct {
	Base float64
}

func (r MatchReward) Reward(predicted, actual string) float64 {
	if predicted != "" && predicted == actual {
		return r.Base
	}
	return 0
}

// New validates params and returns an empty model.
func New(params domain.ModelParams, opts ...Option) (*Model, error) {
	if err := validateParams(params); err != nil {
		return nil, err
	}
	m := &Model{
		params:      params,
		registry:    newCloneRegistry(params.Clones),
		transitions: newTransitionTable(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.policy == nil {
		m.policy = MatchReward{Base: params.BaseReward}
	}
	if m.rng == nil {
		m.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return m, nil
}

func validateParams(p domain.ModelParams) error {
	if p.Clones < 1 {
		return fmt.Errorf("%w: clones must be >= 1, got %d", ErrConfiguration, p.Clones)
	}
	if math.IsNaN(p.Gamma) || math.IsInf(p.Gamma, 0) || p.Gamma < 0 || p.Gamma >= 1 {
		return fmt.Errorf("%w: gamma must be in [0, 1), got %v", ErrConfiguration, p.Gamma)
	}
	if math.IsNaN(p.BaseReward) || math.IsInf(p.BaseReward, 0) || p.BaseReward <= 0 {
		return fmt.Errorf("%w: base_reward must be > 0, got %v", ErrConfiguration, p.BaseReward)
	}
	return nil
}

// Params returns the model's creation parameters.
func (m *Model) Params() domain.ModelParams {
	return m.params
}

// RegisterObservations interns observation tokens up front so their clone
// identity order is fixed before any of them is observed. Registering a
// known token is a no-op. The call is atomic: one empty token rejects the
// whole batch.
func (m *Model) RegisterObservations(observations ...string) error {
	for _, obs := range observations {
		if obs == "" {
			return ErrInvalidObservation
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, obs := range observations {
		m.registry.intern(obs)
	}
	return nil
}

// Beliefs returns the active belief candidates in identity order. The slice
// is empty until the first observation has been processed.
func (m *Model) Beliefs() []domain.BeliefCandidate {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.BeliefCandidate, len(m.beliefs))
	copy(out, m.beliefs)
	return out
}

// History returns the most recent observation tokens, oldest first.
func (m *Model) History() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.history))
	copy(out, m.history)
	return out
}

// TrajectoryLen returns the number of realized steps held for credit
// assignment.
func (m *Model) TrajectoryLen() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.trajectory)
}

// ResetEpisode clears the trajectory and the observation history. Learned
// transitions, the clone registry, and the belief state are untouched.
func (m *Model) ResetEpisode() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trajectory = nil
	m.history = nil
}

func (m *Model) seedBeliefs(observation string) []domain.BeliefCandidate {
	set := m.registry.cloneSet(observation)
	weight := 1.0 / float64(len(set))
	seeded := make([]domain.BeliefCandidate, len(set))
	for i, clone := range set {
		seeded[i] = domain.BeliefCandidate{Clone: clone, Weight: weight}
	}
	return seeded
}

func (m *Model) appendStep(step domain.Step) {
	m.trajectory = append(m.trajectory, step)
	if len(m.trajectory) > MaxTrajectory {
		m.trajectory = m.trajectory[len(m.trajectory)-MaxTrajectory:]
	}
}

func (m *Model) pushHistory(observation string) {
	m.history = append(m.history, observation)
	if len(m.history) > MaxHistory {
		m.history = m.history[len(m.history)-MaxHistory:]
	}
}
