package feps

import (
	"sort"

	"github.com/Harshitk-cp/feps/internal/domain"
)

// Predict returns the most likely next observation under the given action:
// the argmax of the aggregated successor scores across all belief
// candidates, with confidence equal to the winner's share of the total
// score. Ties break on lowest clone identity. A model with no transition
// evidence for the current belief returns a NoData prediction with
// confidence zero; calling before any observation is an error.
func (m *Model) Predict(action string) (domain.Prediction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.beliefs) == 0 {
		return domain.Prediction{}, ErrNoBeliefState
	}

	scores, total := m.aggregate(action)
	if len(scores) == 0 || total <= 0 {
		return domain.Prediction{NoData: true}, nil
	}

	var (
		best       domain.CloneID
		bestScore  float64
		haveWinner bool
	)
	for clone, score := range scores {
		switch {
		case !haveWinner, score > bestScore:
			best, bestScore, haveWinner = clone, score, true
		case score == bestScore && m.registry.less(clone, best):
			best = clone
		}
	}

	return domain.Prediction{
		Observation: best.Observation,
		Clone:       best,
		Confidence:  bestScore / total,
	}, nil
}

// SamplePrediction draws the next observation from the normalized aggregate
// distribution instead of taking the argmax, for callers that explore. It
// takes the write lock because drawing advances the model's random source.
func (m *Model) SamplePrediction(action string) (domain.Prediction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.beliefs) == 0 {
		return domain.Prediction{}, ErrNoBeliefState
	}

	scores, total := m.aggregate(action)
	if len(scores) == 0 {
		return domain.Prediction{NoData: true}, nil
	}

	ordered := make([]domain.CloneID, 0, len(scores))
	for clone := range scores {
		ordered = append(ordered, clone)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return m.registry.less(ordered[i], ordered[j])
	})

	if total <= 0 {
		// All scores zero: draw uniformly over the present candidates.
		chosen := ordered[m.rng.Intn(len(ordered))]
		return domain.Prediction{
			Observation: chosen.Observation,
			Clone:       chosen,
			Confidence:  1 / float64(len(ordered)),
		}, nil
	}

	target := m.rng.Float64() * total
	cumulative := 0.0
	chosen := ordered[len(ordered)-1]
	for _, clone := range ordered {
		cumulative += scores[clone]
		if target < cumulative {
			chosen = clone
			break
		}
	}
	return domain.Prediction{
		Observation: chosen.Observation,
		Clone:       chosen,
		Confidence:  scores[chosen] / total,
	}, nil
}

// aggregate folds every belief candidate's successor row for the action into
// one score map, weighting each row by the candidate's belief weight.
func (m *Model) aggregate(action string) (map[domain.CloneID]float64, float64) {
	scores := make(map[domain.CloneID]float64)
	total := 0.0
	for _, cand := range m.beliefs {
		for succ, weight := range m.transitions.successors(cand.Clone, action) {
			contribution := cand.Weight * weight
			scores[succ] += contribution
			total += contribution
		}
	}
	return scores, total
}
