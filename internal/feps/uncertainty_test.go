package feps

import (
	"math"
	"testing"

	"github.com/Harshitk-cp/feps/internal/domain"
)

func TestUncertainty_Boundaries(t *testing.T) {
	m := mustModel(t, domain.ModelParams{Clones: 2, Gamma: 0.1, BaseReward: 1})
	mustObserve(t, m, "A", "")

	// No evidence at all: maximal uncertainty.
	u, err := m.Uncertainty("go")
	if err != nil {
		t.Fatalf("Uncertainty failed: %v", err)
	}
	if u != 1 {
		t.Errorf("uncertainty with zero candidates = %v, want exactly 1", u)
	}

	// One successor carrying all mass: zero uncertainty.
	mustObserve(t, m, "B", "go")
	mustObserve(t, m, "A", "")
	u, err = m.Uncertainty("go")
	if err != nil {
		t.Fatalf("Uncertainty failed: %v", err)
	}
	if u != 0 {
		t.Errorf("uncertainty with a single successor = %v, want exactly 0", u)
	}
}

func TestUncertainty_UniformIsExactlyOne(t *testing.T) {
	m := mustModel(t, domain.ModelParams{Clones: 2, Gamma: 0, BaseReward: 1})

	// Divergent outcomes from an aliased token: two successors with equal
	// weight once both visits are recorded.
	mustObserve(t, m, "ambiguous", "")
	mustObserve(t, m, "P", "a")
	mustObserve(t, m, "ambiguous", "")
	mustObserve(t, m, "Q", "a")
	mustObserve(t, m, "ambiguous", "")

	u, err := m.Uncertainty("a")
	if err != nil {
		t.Fatalf("Uncertainty failed: %v", err)
	}
	if u != 1 {
		t.Errorf("uncertainty over an exactly uniform distribution = %v, want exactly 1", u)
	}
}

func TestUncertainty_SkewedDistribution(t *testing.T) {
	snapshot := &domain.ModelSnapshot{
		Version:      domain.SnapshotVersion,
		Params:       domain.ModelParams{Clones: 2, Gamma: 0, BaseReward: 1},
		Observations: []string{"X", "B"},
		Transitions: []domain.TransitionRecord{
			{
				From:   domain.CloneID{Observation: "X", Index: 0},
				Action: "a",
				Successors: []domain.SuccessorWeight{
					{Clone: domain.CloneID{Observation: "B", Index: 0}, Weight: 0.9},
					{Clone: domain.CloneID{Observation: "B", Index: 1}, Weight: 0.1},
				},
			},
		},
	}
	m, err := Restore(snapshot)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	mustObserve(t, m, "X", "")

	u, err := m.Uncertainty("a")
	if err != nil {
		t.Fatalf("Uncertainty failed: %v", err)
	}
	want := -(0.9*math.Log(0.9) + 0.1*math.Log(0.1)) / math.Log(2)
	if math.Abs(u-want) > 1e-9 {
		t.Errorf("uncertainty = %v, want %v", u, want)
	}
	if u <= 0 || u >= 1 {
		t.Errorf("skewed distribution must be strictly between 0 and 1, got %v", u)
	}
}

func TestUncertainty_NormalizationIsScaleInvariant(t *testing.T) {
	twoWay := uniformSuccessorModel(t, 2)
	threeWay := uniformSuccessorModel(t, 3)

	u2, err := twoWay.Uncertainty("a")
	if err != nil {
		t.Fatalf("Uncertainty failed: %v", err)
	}
	u3, err := threeWay.Uncertainty("a")
	if err != nil {
		t.Fatalf("Uncertainty failed: %v", err)
	}
	// Both uniform, both exactly 1 after normalization.
	if u2 != 1 || u3 != 1 {
		t.Errorf("normalized uniform uncertainty = %v / %v, want 1 / 1", u2, u3)
	}
}

// uniformSuccessorModel builds a model whose belief at X has n successors of
// equal weight for action a.
func uniformSuccessorModel(t *testing.T, n int) *Model {
	t.Helper()
	successors := make([]domain.SuccessorWeight, n)
	for i := range successors {
		successors[i] = domain.SuccessorWeight{
			Clone:  domain.CloneID{Observation: "B", Index: i},
			Weight: 0.5,
		}
	}
	snapshot := &domain.ModelSnapshot{
		Version:      domain.SnapshotVersion,
		Params:       domain.ModelParams{Clones: n, Gamma: 0, BaseReward: 1},
		Observations: []string{"X", "B"},
		Transitions: []domain.TransitionRecord{
			{From: domain.CloneID{Observation: "X", Index: 0}, Action: "a", Successors: successors},
		},
	}
	m, err := Restore(snapshot)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	mustObserve(t, m, "X", "")
	return m
}
