package feps

// ResolveOutcome converts a resolved (predicted, actual) pair into an
// internal reward via the model's reward policy and distributes it backward
// over the trajectory: the step at distance d from the most recent one is
// reinforced by reward * step_weight * gamma^d. The trajectory itself is
// kept, so confidence keeps accumulating along runs of confirmed
// predictions until the episode is reset. Returns the reward that was
// applied; with an empty trajectory the reward is computed but reinforces
// nothing.
func (m *Model) ResolveOutcome(predicted, actual string) (float64, error) {
	if actual == "" {
		return 0, ErrInvalidObservation
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	reward := m.policy.Reward(predicted, actual)
	if reward != 0 {
		m.assignCredit(reward)
	}
	return reward, nil
}

func (m *Model) assignCredit(reward float64) {
	discount := 1.0
	for i := len(m.trajectory) - 1; i >= 0; i-- {
		step := m.trajectory[i]
		delta := reward * step.Weight * discount
		if delta != 0 {
			m.transitions.reinforce(step.From, step.Action, step.To, delta)
		}
		discount *= m.params.Gamma
		if discount == 0 {
			break
		}
	}
}
