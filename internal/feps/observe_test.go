package feps

import (
	"math"
	"testing"

	"github.com/Harshitk-cp/feps/internal/domain"
)

// An aliased token seen twice with divergent outcomes must end up with the
// two outcomes attached to two distinct clones, so that the next
// disambiguating observation can prune the belief down to the lineage that
// matches reality.
func TestObserve_DivergentOutcomesClaimDistinctClones(t *testing.T) {
	m := mustModel(t, domain.ModelParams{Clones: 2, Gamma: 0, BaseReward: 1})

	// First visit: ambiguous -> a -> P.
	mustObserve(t, m, "ambiguous", "")
	mustObserve(t, m, "P", "a")

	// Second visit: ambiguous -> a -> Q.
	mustObserve(t, m, "ambiguous", "")
	mustObserve(t, m, "Q", "a")

	// The two outcomes must live on different hypotheses.
	snapshot := m.Export()
	if len(snapshot.Transitions) != 2 {
		t.Fatalf("expected 2 transition rows, got %d: %+v", len(snapshot.Transitions), snapshot.Transitions)
	}
	fromClones := map[domain.CloneID]string{}
	for _, record := range snapshot.Transitions {
		if len(record.Successors) != 1 {
			t.Fatalf("expected a single successor per row, got %+v", record)
		}
		fromClones[record.From] = record.Successors[0].Clone.Observation
	}
	if len(fromClones) != 2 {
		t.Fatalf("divergent outcomes must claim distinct clones, got %v", fromClones)
	}
	clone0 := domain.CloneID{Observation: "ambiguous", Index: 0}
	clone1 := domain.CloneID{Observation: "ambiguous", Index: 1}
	if fromClones[clone0] != "P" || fromClones[clone1] != "Q" {
		t.Errorf("clone assignment = %v, want clone 0 -> P, clone 1 -> Q", fromClones)
	}

	// Back at the ambiguous token both hypotheses are plausible.
	snap := mustObserve(t, m, "ambiguous", "")
	if len(snap.Candidates) != 2 {
		t.Fatalf("expected 2 active candidates at the ambiguous token, got %d", len(snap.Candidates))
	}

	// Seeing P disambiguates: only the P-lineage survives.
	snap = mustObserve(t, m, "P", "a")
	if snap.Reseeded {
		t.Error("a predicted observation must not reseed")
	}
	if len(snap.Candidates) != 1 {
		t.Fatalf("expected 1 surviving candidate, got %d", len(snap.Candidates))
	}
	want := domain.CloneID{Observation: "P", Index: 0}
	if snap.Candidates[0].Clone != want {
		t.Errorf("survivor = %v, want %v", snap.Candidates[0].Clone, want)
	}
	if math.Abs(snap.Candidates[0].Weight-1) > 1e-9 {
		t.Errorf("survivor weight = %v, want 1", snap.Candidates[0].Weight)
	}
}

// Candidates advancing to the same successor merge their weights before
// renormalization.
func TestObserve_SurvivorsMergeOnSharedSuccessor(t *testing.T) {
	snapshot := &domain.ModelSnapshot{
		Version:      domain.SnapshotVersion,
		Params:       domain.ModelParams{Clones: 2, Gamma: 0.1, BaseReward: 1},
		Observations: []string{"X", "Y"},
		Transitions: []domain.TransitionRecord{
			{
				From:   domain.CloneID{Observation: "X", Index: 0},
				Action: "a",
				Successors: []domain.SuccessorWeight{
					{Clone: domain.CloneID{Observation: "Y", Index: 1}, Weight: 2},
				},
			},
			{
				From:   domain.CloneID{Observation: "X", Index: 1},
				Action: "a",
				Successors: []domain.SuccessorWeight{
					{Clone: domain.CloneID{Observation: "Y", Index: 1}, Weight: 1},
				},
			},
		},
	}
	m, err := Restore(snapshot)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	mustObserve(t, m, "X", "")
	snap := mustObserve(t, m, "Y", "a")

	if len(snap.Candidates) != 1 {
		t.Fatalf("expected merged single candidate, got %+v", snap.Candidates)
	}
	want := domain.CloneID{Observation: "Y", Index: 1}
	if snap.Candidates[0].Clone != want {
		t.Errorf("merged candidate = %v, want %v", snap.Candidates[0].Clone, want)
	}
	if math.Abs(snap.Candidates[0].Weight-1) > 1e-9 {
		t.Errorf("merged weight = %v, want 1", snap.Candidates[0].Weight)
	}
	if snap.TrajectoryLen != 1 {
		t.Errorf("trajectory len = %d, want 1", snap.TrajectoryLen)
	}
}

// Belief weights always renormalize to one, whatever path produced them.
func TestObserve_WeightsNormalized(t *testing.T) {
	m := mustModel(t, domain.ModelParams{Clones: 4, Gamma: 0.2, BaseReward: 1})

	mustObserve(t, m, "A", "")
	sequence := []struct{ obs, action string }{
		{"B", "go"}, {"A", "back"}, {"B", "go"}, {"C", "go"}, {"A", ""},
	}
	for _, step := range sequence {
		snap := mustObserve(t, m, step.obs, step.action)
		total := 0.0
		for _, cand := range snap.Candidates {
			if cand.Weight <= 0 || cand.Weight > 1 {
				t.Errorf("candidate weight %v out of (0, 1]", cand.Weight)
			}
			total += cand.Weight
		}
		if math.Abs(total-1) > 1e-9 {
			t.Errorf("weights after %q/%q sum to %v, want 1", step.obs, step.action, total)
		}
	}
}
