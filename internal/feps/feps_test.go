package feps

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/Harshitk-cp/feps/internal/domain"
)

func TestNew_ParamValidation(t *testing.T) {
	tests := []struct {
		name    string
		params  domain.ModelParams
		wantErr bool
	}{
		{"valid defaults", domain.ModelParams{Clones: 2, Gamma: 0.1, BaseReward: 1}, false},
		{"single clone no forgetting", domain.ModelParams{Clones: 1, Gamma: 0, BaseReward: 0.5}, false},
		{"zero clones", domain.ModelParams{Clones: 0, Gamma: 0.1, BaseReward: 1}, true},
		{"negative clones", domain.ModelParams{Clones: -3, Gamma: 0.1, BaseReward: 1}, true},
		{"gamma one", domain.ModelParams{Clones: 2, Gamma: 1, BaseReward: 1}, true},
		{"gamma negative", domain.ModelParams{Clones: 2, Gamma: -0.01, BaseReward: 1}, true},
		{"gamma NaN", domain.ModelParams{Clones: 2, Gamma: math.NaN(), BaseReward: 1}, true},
		{"gamma Inf", domain.ModelParams{Clones: 2, Gamma: math.Inf(1), BaseReward: 1}, true},
		{"zero base reward", domain.ModelParams{Clones: 2, Gamma: 0.1, BaseReward: 0}, true},
		{"negative base reward", domain.ModelParams{Clones: 2, Gamma: 0.1, BaseReward: -1}, true},
		{"NaN base reward", domain.ModelParams{Clones: 2, Gamma: 0.1, BaseReward: math.NaN()}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(tt.params)
			if tt.wantErr {
				if !errors.Is(err, ErrConfiguration) {
					t.Errorf("New(%+v) error = %v, want ErrConfiguration", tt.params, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("New(%+v) unexpected error: %v", tt.params, err)
			}
			if got := m.Params(); got != tt.params {
				t.Errorf("Params() = %+v, want %+v", got, tt.params)
			}
		})
	}
}

func TestObserve_SeedsUniformBelief(t *testing.T) {
	m := mustModel(t, domain.ModelParams{Clones: 3, Gamma: 0.1, BaseReward: 1})

	snap, err := m.Observe("door", "")
	if err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	if !snap.Reseeded {
		t.Error("first observation should reseed the belief state")
	}
	if len(snap.Candidates) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(snap.Candidates))
	}
	for i, cand := range snap.Candidates {
		want := domain.CloneID{Observation: "door", Index: i}
		if cand.Clone != want {
			t.Errorf("candidate %d clone = %v, want %v", i, cand.Clone, want)
		}
		if math.Abs(cand.Weight-1.0/3.0) > 1e-9 {
			t.Errorf("candidate %d weight = %v, want 1/3", i, cand.Weight)
		}
	}
	if snap.TrajectoryLen != 0 {
		t.Errorf("seeding should not record a step, trajectory len = %d", snap.TrajectoryLen)
	}
}

func TestObserve_EmptyObservationRejected(t *testing.T) {
	m := mustModel(t, domain.ModelParams{Clones: 2, Gamma: 0.1, BaseReward: 1})

	if _, err := m.Observe("", ""); !errors.Is(err, ErrInvalidObservation) {
		t.Fatalf("Observe(\"\") error = %v, want ErrInvalidObservation", err)
	}
	if got := m.Beliefs(); len(got) != 0 {
		t.Errorf("failed observation must not touch state, beliefs = %v", got)
	}
}

func TestObserve_PassiveStep(t *testing.T) {
	m := mustModel(t, domain.ModelParams{Clones: 2, Gamma: 0.1, BaseReward: 1})

	mustObserve(t, m, "hall", "")

	// Same token again: belief kept, no reseed.
	snap := mustObserve(t, m, "hall", "")
	if snap.Reseeded {
		t.Error("passive re-observation of the same token must keep the belief")
	}

	// Different token without an action: reseed, no transition recorded.
	snap = mustObserve(t, m, "yard", "")
	if !snap.Reseeded {
		t.Error("passive observation of a new token must reseed")
	}
	if snap.TrajectoryLen != 0 {
		t.Errorf("passive steps must not record transitions, trajectory len = %d", snap.TrajectoryLen)
	}
	if got := m.Export().Transitions; len(got) != 0 {
		t.Errorf("passive steps must not write transition weights, got %v", got)
	}
}

func TestObserve_KnownTokenKeepsCloneCount(t *testing.T) {
	m := mustModel(t, domain.ModelParams{Clones: 2, Gamma: 0.1, BaseReward: 1})

	mustObserve(t, m, "A", "")
	mustObserve(t, m, "B", "go")
	mustObserve(t, m, "A", "go")

	want := []string{"A", "B"}
	if got := m.Export().Observations; !reflect.DeepEqual(got, want) {
		t.Errorf("observations = %v, want %v (append-only, no duplicates)", got, want)
	}
}

func TestRegisterObservations(t *testing.T) {
	m := mustModel(t, domain.ModelParams{Clones: 2, Gamma: 0.1, BaseReward: 1})

	if err := m.RegisterObservations("corner", "edge", "center"); err != nil {
		t.Fatalf("RegisterObservations failed: %v", err)
	}
	// Duplicates are no-ops; order is first-registration order.
	if err := m.RegisterObservations("edge", "corner"); err != nil {
		t.Fatalf("RegisterObservations failed: %v", err)
	}
	want := []string{"corner", "edge", "center"}
	if got := m.Export().Observations; !reflect.DeepEqual(got, want) {
		t.Errorf("observations = %v, want %v", got, want)
	}

	// One empty token rejects the whole batch.
	if err := m.RegisterObservations("wall", ""); !errors.Is(err, ErrInvalidObservation) {
		t.Fatalf("error = %v, want ErrInvalidObservation", err)
	}
	if got := m.Export().Observations; !reflect.DeepEqual(got, want) {
		t.Errorf("rejected batch must not register anything, observations = %v", got)
	}
}

func TestResetEpisode_KeepsLearnedState(t *testing.T) {
	m := mustModel(t, domain.ModelParams{Clones: 2, Gamma: 0.1, BaseReward: 1})

	mustObserve(t, m, "A", "")
	mustObserve(t, m, "B", "go")
	if _, err := m.ResolveOutcome("B", "B"); err != nil {
		t.Fatalf("ResolveOutcome failed: %v", err)
	}

	before := m.Export()
	beliefsBefore := m.Beliefs()

	m.ResetEpisode()

	if got := m.TrajectoryLen(); got != 0 {
		t.Errorf("trajectory len after reset = %d, want 0", got)
	}
	if got := m.History(); len(got) != 0 {
		t.Errorf("history after reset = %v, want empty", got)
	}
	if !reflect.DeepEqual(m.Export(), before) {
		t.Error("reset must not touch the transition table or registry")
	}
	if !reflect.DeepEqual(m.Beliefs(), beliefsBefore) {
		t.Error("reset must not touch the belief state")
	}

	// Rewards over an empty trajectory reinforce nothing.
	reward, err := m.ResolveOutcome("B", "B")
	if err != nil {
		t.Fatalf("ResolveOutcome failed: %v", err)
	}
	if reward != 1 {
		t.Errorf("reward = %v, want 1", reward)
	}
	if !reflect.DeepEqual(m.Export(), before) {
		t.Error("resolving over an empty trajectory must not change weights")
	}
}

func TestObserve_TrajectoryBounded(t *testing.T) {
	m := mustModel(t, domain.ModelParams{Clones: 1, Gamma: 0, BaseReward: 1})

	mustObserve(t, m, "A", "")
	for i := 0; i < MaxTrajectory+88; i++ {
		obs := "B"
		if i%2 == 1 {
			obs = "A"
		}
		mustObserve(t, m, obs, "go")
	}
	if got := m.TrajectoryLen(); got != MaxTrajectory {
		t.Errorf("trajectory len = %d, want %d", got, MaxTrajectory)
	}
}

func TestHistory_BoundedCopy(t *testing.T) {
	m := mustModel(t, domain.ModelParams{Clones: 1, Gamma: 0, BaseReward: 1})

	for i := 0; i < MaxHistory+10; i++ {
		mustObserve(t, m, "tick", "")
	}
	got := m.History()
	if len(got) != MaxHistory {
		t.Fatalf("history len = %d, want %d", len(got), MaxHistory)
	}
	got[0] = "mutated"
	if m.History()[0] == "mutated" {
		t.Error("History must return a copy")
	}
}

func mustModel(t *testing.T, params domain.ModelParams, opts ...Option) *Model {
	t.Helper()
	m, err := New(params, opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return m
}

func mustObserve(t *testing.T, m *Model, observation, action string) domain.BeliefSnapshot {
	t.Helper()
	snap, err := m.Observe(observation, action)
	if err != nil {
		t.Fatalf("Observe(%q, %q) failed: %v", observation, action, err)
	}
	return snap
}
