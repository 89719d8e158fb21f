package ai

import (
	"context"

	"github.com/poiesic/jobfeed/core"
)

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// ProfileEncoder produces the base vector of a profile from its declared
// attributes. Returned vectors are unit length.
type ProfileEncoder interface {
	EncodeProfile(ctx context.Context, profile *core.Profile) ([]float32, error)
}

// CandidateEncoder embeds candidates in place.
type CandidateEncoder interface {
	EncodeCandidates(ctx context.Context, candidates []*core.Candidate) error
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Close releases resources held by the provider and its services.
	Close() error
}
