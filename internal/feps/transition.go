package feps

import "github.com/Harshitk-cp/feps/internal/domain"

type transitionKey struct {
	from   domain.CloneID
	action string
}

// transitionTable is the sparse map of accumulated transition weights
// (h-values). Weights are never negative; entries that reach zero are
// dropped so absent and unlearned transitions stay indistinguishable.
type transitionTable struct {
	weights map[transitionKey]map[domain.CloneID]float64
}

func newTransitionTable() *transitionTable {
	return &transitionTable{
		weights: make(map[transitionKey]map[domain.CloneID]float64),
	}
}

// successors returns the live successor weights for (from, action), or nil
// when nothing has been learned. The returned map is the internal one and
// must not be mutated by callers.
func (t *transitionTable) successors(from domain.CloneID, action string) map[domain.CloneID]float64 {
	return t.weights[transitionKey{from: from, action: action}]
}

// claimed reports whether (from, action) carries any learned successor.
func (t *transitionTable) claimed(from domain.CloneID, action string) bool {
	return len(t.weights[transitionKey{from: from, action: action}]) > 0
}

// reinforce adds delta to the weight of (from, action) -> to, clamping the
// result at zero. Zeroed entries are removed.
func (t *transitionTable) reinforce(from domain.CloneID, action string, to domain.CloneID, delta float64) float64 {
	key := transitionKey{from: from, action: action}
	row := t.weights[key]
	next := row[to] + delta
	if next <= 0 {
		if row != nil {
			delete(row, to)
			if len(row) == 0 {
				delete(t.weights, key)
			}
		}
		return 0
	}
	if row == nil {
		row = make(map[domain.CloneID]float64)
		t.weights[key] = row
	}
	row[to] = next
	return next
}

// decayAll multiplies every stored weight by (1 - rate).
func (t *transitionTable) decayAll(rate float64) {
	if rate == 0 {
		return
	}
	factor := 1 - rate
	for _, row := range t.weights {
		for to := range row {
			row[to] *= factor
		}
	}
}

func (t *transitionTable) size() int {
	return len(t.weights)
}
