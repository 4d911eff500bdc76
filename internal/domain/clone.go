package domain

import "fmt"

// CloneID identifies one clone clip: a single hypothesis instantiated for an
// observed token. Several clones per token let the model tell apart
// situations that look identical but behave differently.
type CloneID struct {
	Observation string `json:"observation"`
	Index       int    `json:"index"`
}

func (c CloneID) String() string {
	return fmt.Sprintf("%s_clone_%d", c.Observation, c.Index)
}

// BeliefCandidate is one active hypothesis about which clone corresponds to
// the current situation, with its normalized weight.
type BeliefCandidate struct {
	Clone  CloneID `json:"clone"`
	Weight float64 `json:"weight"`
}

// BeliefSnapshot is the belief state returned after processing an observation.
type BeliefSnapshot struct {
	Observation   string            `json:"observation"`
	Candidates    []BeliefCandidate `json:"candidates"`
	Reseeded      bool              `json:"reseeded"`
	TrajectoryLen int               `json:"trajectory_len"`
}

// Prediction is the model's best guess for the observation that follows the
// current belief state under a given action. NoData marks the degenerate
// case where no transition evidence exists yet; it is a valid result, not an
// error.
type Prediction struct {
	Observation string  `json:"observation"`
	Clone       CloneID `json:"clone"`
	Confidence  float64 `json:"confidence"`
	NoData      bool    `json:"no_data"`
}

// Step is one realized transition: the clone held as current, the action
// taken, the clone matching the next observation, and the belief weight the
// current clone carried at the time.
type Step struct {
	From   CloneID `json:"from"`
	Action string  `json:"action"`
	To     CloneID `json:"to"`
	Weight float64 `json:"weight"`
}
