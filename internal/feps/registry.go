package feps

import "github.com/Harshitk-cp/feps/internal/domain"

// cloneRegistry interns observation tokens and fixes the identity order of
// their clones. Insertion order is append-only: re-registering a known token
// never changes anything, which keeps tie-breaking stable for the lifetime
// of the model and across export/import.
type cloneRegistry struct {
	clones int
	order  map[string]int
	tokens []string
}

func newCloneRegistry(clones int) *cloneRegistry {
	return &cloneRegistry{
		clones: clones,
		order:  make(map[string]int),
	}
}

// intern registers an observation token if unseen and returns its insertion
// rank.
func (r *cloneRegistry) intern(observation string) int {
	if rank, ok := r.order[observation]; ok {
		return rank
	}
	rank := len(r.tokens)
	r.order[observation] = rank
	r.tokens = append(r.tokens, observation)
	return rank
}

func (r *cloneRegistry) has(observation string) bool {
	_, ok := r.order[observation]
	return ok
}

// cloneSet returns the full k-clone set for a registered observation in
// index order.
func (r *cloneRegistry) cloneSet(observation string) []domain.CloneID {
	set := make([]domain.CloneID, r.clones)
	for i := range set {
		set[i] = domain.CloneID{Observation: observation, Index: i}
	}
	return set
}

// rank maps a clone to its global identity rank: observation insertion order
// first, clone index second. Unregistered observations rank last.
func (r *cloneRegistry) rank(c domain.CloneID) int {
	obsRank, ok := r.order[c.Observation]
	if !ok {
		obsRank = len(r.tokens)
	}
	return obsRank*r.clones + c.Index
}

// less is the deterministic tie-break order over clones.
func (r *cloneRegistry) less(a, b domain.CloneID) bool {
	return r.rank(a) < r.rank(b)
}

func (r *cloneRegistry) observations() []string {
	out := make([]string, len(r.tokens))
	copy(out, r.tokens)
	return out
}
