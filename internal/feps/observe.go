package feps

import (
	"sort"

	"github.com/Harshitk-cp/feps/internal/domain"
)

// Observe processes one observation as a single atomic step: it interns the
// token, applies the per-observation decay to every transition weight, then
// advances the belief state. The action is the one taken since the previous
// observation; an empty action marks a passive step (episode start or an
// observation with no intervening action) that never records a transition.
//
// With an action, each belief candidate's predicted successor is checked
// against the actual observation: mismatching candidates are pruned,
// survivors advance to their predicted clones. If nothing survives the
// belief is reseeded uniformly over the observation's clone set, and the
// realized transition is attached to a clone that carried no evidence for
// this action yet, which is how perceptually identical situations with
// divergent outcomes end up on distinct hypotheses.
func (m *Model) Observe(observation, action string) (domain.BeliefSnapshot, error) {
	if observation == "" {
		return domain.BeliefSnapshot{}, ErrInvalidObservation
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.registry.intern(observation)
	m.transitions.decayAll(m.params.Gamma)

	reseeded := false
	switch {
	case len(m.beliefs) == 0:
		m.beliefs = m.seedBeliefs(observation)
		reseeded = true
	case action == "":
		if m.beliefs[0].Clone.Observation != observation {
			m.beliefs = m.seedBeliefs(observation)
			reseeded = true
		}
	default:
		reseeded = m.advanceBeliefs(observation, action)
	}

	m.pushHistory(observation)

	candidates := make([]domain.BeliefCandidate, len(m.beliefs))
	copy(candidates, m.beliefs)
	return domain.BeliefSnapshot{
		Observation:   observation,
		Candidates:    candidates,
		Reseeded:      reseeded,
		TrajectoryLen: len(m.trajectory),
	}, nil
}

func (m *Model) advanceBeliefs(observation, action string) (reseeded bool) {
	prior := m.beliefs

	advanced := make(map[domain.CloneID]float64)
	for _, cand := range prior {
		succ, ok := m.bestSuccessor(cand.Clone, action)
		if !ok || succ.Observation != observation {
			continue
		}
		advanced[succ] += cand.Weight * MatchBonus
	}

	if len(advanced) == 0 {
		// Nothing predicted this observation. Reseed, but still record the
		// realized transition with a trace equal to the source candidate's
		// belief weight, so the next visit has evidence to advance on.
		from := m.traceCandidate(prior, action)
		to := m.registry.cloneSet(observation)[0]
		m.transitions.reinforce(from.Clone, action, to, from.Weight)
		m.appendStep(domain.Step{From: from.Clone, Action: action, To: to, Weight: from.Weight})
		m.beliefs = m.seedBeliefs(observation)
		return true
	}

	total := 0.0
	next := make([]domain.BeliefCandidate, 0, len(advanced))
	for clone, weight := range advanced {
		next = append(next, domain.BeliefCandidate{Clone: clone, Weight: weight})
		total += weight
	}
	sort.Slice(next, func(i, j int) bool {
		return m.registry.less(next[i].Clone, next[j].Clone)
	})
	for i := range next {
		next[i].Weight /= total
	}
	m.beliefs = next

	// The realized step runs between the current clones: the top candidate
	// before the update and the top candidate after it, which is always a
	// clone of the observation just processed.
	top := topCandidate(prior)
	m.appendStep(domain.Step{From: top.Clone, Action: action, To: topCandidate(next).Clone, Weight: top.Weight})
	return false
}

// bestSuccessor returns the argmax successor of (from, action), breaking
// weight ties by lowest clone identity. ok is false when no evidence exists.
func (m *Model) bestSuccessor(from domain.CloneID, action string) (best domain.CloneID, ok bool) {
	row := m.transitions.successors(from, action)
	if len(row) == 0 {
		return domain.CloneID{}, false
	}
	var bestWeight float64
	for clone, weight := range row {
		switch {
		case !ok, weight > bestWeight:
			best, bestWeight, ok = clone, weight, true
		case weight == bestWeight && m.registry.less(clone, best):
			best = clone
		}
	}
	return best, true
}

// traceCandidate picks the prior candidate a surprising transition is
// attached to: the first one with no evidence for this action, falling back
// to the top-weighted candidate when every hypothesis is already claimed.
func (m *Model) traceCandidate(prior []domain.BeliefCandidate, action string) domain.BeliefCandidate {
	for _, cand := range prior {
		if !m.transitions.claimed(cand.Clone, action) {
			return cand
		}
	}
	return topCandidate(prior)
}

// topCandidate returns the highest-weighted candidate; candidates are kept
// in identity order, so the first maximum is the deterministic winner.
func topCandidate(candidates []domain.BeliefCandidate) domain.BeliefCandidate {
	top := candidates[0]
	for _, cand := range candidates[1:] {
		if cand.Weight > top.Weight {
			top = cand
		}
	}
	return top
}
