package adaptation

import "errors"

var (
	// ErrEmbeddingUpdateFailed wraps every recompute failure.
	ErrEmbeddingUpdateFailed = errors.New("embedding update failed")

	// ErrEmptyHistory is returned by Blend when there is nothing to blend in.
	ErrEmptyHistory = errors.New("interaction history is empty")

	// ErrInvalidAlpha is returned for blend weights outside [0,1].
	ErrInvalidAlpha = errors.New("alpha must be within [0,1]")

	// ErrZeroVector is returned when a blend cancels out.
	ErrZeroVector = errors.New("blended vector has zero length")
)
