package scoring

import "errors"

var (
	// ErrInvalidWeights indicates weights are negative or do not sum to 1.
	ErrInvalidWeights = errors.New("weights must be non-negative and sum to 1")

	// ErrInvalidFallback indicates a fallback similarity outside [0,1].
	ErrInvalidFallback = errors.New("fallback similarity must be within [0,1]")
)
