package feps

import "errors"

var (
	// ErrConfiguration is returned when model parameters are out of range.
	ErrConfiguration = errors.New("invalid model configuration")
	// ErrInvalidObservation is returned for empty observation tokens.
	ErrInvalidObservation = errors.New("observation is required")
	// ErrNoBeliefState is returned by queries issued before the model has
	// processed its first observation.
	ErrNoBeliefState = errors.New("no observation processed yet")
	// ErrSnapshot is returned for structurally invalid snapshot documents.
	ErrSnapshot = errors.New("invalid model snapshot")
	// ErrSnapshotVersion is returned for snapshot documents written by an
	// unknown wire version.
	ErrSnapshotVersion = errors.New("unsupported snapshot version")
)
