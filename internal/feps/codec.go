package feps

import (
	"fmt"
	"sort"

	"github.com/Harshitk-cp/feps/internal/domain"
)

// Export captures the model's persistable state: parameters, the observation
// vocabulary in insertion order, and every transition weight. Belief state,
// trajectory, and history are episode-scoped and excluded. The document is
// deterministically ordered, so equal models export byte-equal JSON.
func (m *Model) Export() *domain.ModelSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]transitionKey, 0, m.transitions.size())
	for key := range m.transitions.weights {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, rj := m.registry.rank(keys[i].from), m.registry.rank(keys[j].from)
		if ri != rj {
			return ri < rj
		}
		return keys[i].action < keys[j].action
	})

	records := make([]domain.TransitionRecord, 0, len(keys))
	for _, key := range keys {
		row := m.transitions.weights[key]
		successors := make([]domain.SuccessorWeight, 0, len(row))
		for clone, weight := range row {
			successors = append(successors, domain.SuccessorWeight{Clone: clone, Weight: weight})
		}
		sort.Slice(successors, func(i, j int) bool {
			return m.registry.less(successors[i].Clone, successors[j].Clone)
		})
		records = append(records, domain.TransitionRecord{
			From:       key.from,
			Action:     key.action,
			Successors: successors,
		})
	}

	return &domain.ModelSnapshot{
		Version:      domain.SnapshotVersion,
		Params:       m.params,
		Observations: m.registry.observations(),
		Transitions:  records,
	}
}

// Restore builds a fresh model from an exported snapshot. The restored model
// predicts identically to the exported one but starts with no belief state,
// trajectory, or history. Malformed documents are rejected.
func Restore(snapshot *domain.ModelSnapshot, opts ...Option) (*Model, error) {
	if snapshot == nil {
		return nil, fmt.Errorf("%w: snapshot is nil", ErrSnapshot)
	}
	if snapshot.Version != domain.SnapshotVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSnapshotVersion, snapshot.Version, domain.SnapshotVersion)
	}

	m, err := New(snapshot.Params, opts...)
	if err != nil {
		return nil, err
	}

	for _, obs := range snapshot.Observations {
		if obs == "" {
			return nil, fmt.Errorf("%w: empty observation in vocabulary", ErrSnapshot)
		}
		m.registry.intern(obs)
	}

	for _, record := range snapshot.Transitions {
		if err := m.validateClone(record.From); err != nil {
			return nil, err
		}
		if record.Action == "" {
			return nil, fmt.Errorf("%w: transition from %s has empty action", ErrSnapshot, record.From)
		}
		for _, succ := range record.Successors {
			if err := m.validateClone(succ.Clone); err != nil {
				return nil, err
			}
			if succ.Weight < 0 {
				return nil, fmt.Errorf("%w: negative weight %v on %s -> %s", ErrSnapshot, succ.Weight, record.From, succ.Clone)
			}
			if succ.Weight == 0 {
				continue
			}
			m.transitions.reinforce(record.From, record.Action, succ.Clone, succ.Weight)
		}
	}

	return m, nil
}

func (m *Model) validateClone(c domain.CloneID) error {
	if !m.registry.has(c.Observation) {
		return fmt.Errorf("%w: clone %s references unknown observation", ErrSnapshot, c)
	}
	if c.Index < 0 || c.Index >= m.params.Clones {
		return fmt.Errorf("%w: clone %s index out of range [0, %d)", ErrSnapshot, c, m.params.Clones)
	}
	return nil
}
