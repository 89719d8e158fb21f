package ai

import "errors"

var (
	// ErrNothingToEncode is returned for a profile or candidate without text.
	ErrNothingToEncode = errors.New("nothing to encode")

	// ErrEmptyEmbedding is returned when the service yields an empty or zero vector.
	ErrEmptyEmbedding = errors.New("embedding service returned an empty vector")

	// ErrEmbeddingCount is returned when a batch comes back with the wrong length.
	ErrEmbeddingCount = errors.New("embedding count mismatch")

	// ErrDimensionMismatch is returned when the service changes vector length mid-stream.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
