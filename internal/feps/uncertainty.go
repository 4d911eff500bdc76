package feps

import "math"

// Uncertainty returns the normalized Shannon entropy of the aggregated
// successor distribution for the action, in [0, 1]. Zero candidates (no
// evidence at all) is maximal uncertainty 1; a single candidate, or one
// holding the entire mass, is 0; an exactly uniform distribution over two or
// more candidates is 1. If every score is zero the distribution is treated
// as uniform over the present candidates.
func (m *Model) Uncertainty(action string) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.beliefs) == 0 {
		return 0, ErrNoBeliefState
	}

	scores, total := m.aggregate(action)
	n := len(scores)
	switch n {
	case 0:
		return 1, nil
	case 1:
		return 0, nil
	}

	probs := make([]float64, 0, n)
	if total <= 0 {
		uniform := 1 / float64(n)
		for range scores {
			probs = append(probs, uniform)
		}
	} else {
		for _, score := range scores {
			probs = append(probs, score/total)
		}
	}

	// Exact boundaries first, so callers can compare without epsilons.
	nonZero := 0
	allEqual := true
	for _, p := range probs {
		if p > 0 {
			nonZero++
		}
		if math.Abs(p-probs[0]) > weightEpsilon {
			allEqual = false
		}
	}
	if nonZero <= 1 {
		return 0, nil
	}
	if allEqual {
		return 1, nil
	}

	entropy := 0.0
	for _, p := range probs {
		if p > 0 {
			entropy -= p * math.Log(p)
		}
	}
	normalized := entropy / math.Log(float64(n))
	return math.Min(1, math.Max(0, normalized)), nil
}
