package domain

// ModelParams are the tunables fixed at model creation.
type ModelParams struct {
	// Clones is the number of hypotheses instantiated per distinct
	// observation (k). Must be >= 1.
	Clones int `json:"clones"`
	// Gamma is the forgetting parameter: the per-observation decay rate of
	// transition weights and the per-step discount of backward credit.
	// Must be in [0, 1).
	Gamma float64 `json:"gamma"`
	// BaseReward is the internal reward paid when a prediction is confirmed
	// by the actual outcome. Must be > 0.
	BaseReward float64 `json:"base_reward"`
}

// RewardPolicy converts a resolved (predicted, actual) observation pair into
// an internal reward. Implementations outside this module may score outcomes
// however they like; the model only consumes the returned value.
type RewardPolicy interface {
	Reward(predicted, actual string) float64
}
