package ai

import (
	"context"
	"fmt"

	"github.com/poiesic/jobfeed/core"
)

// TextEncoder turns profiles and candidates into unit vectors by embedding
// their text form.
type TextEncoder struct {
	embedder Embedder
}

var (
	_ ProfileEncoder   = (*TextEncoder)(nil)
	_ CandidateEncoder = (*TextEncoder)(nil)
)

// NewTextEncoder wraps an embedder.
func NewTextEncoder(embedder Embedder) *TextEncoder {
	return &TextEncoder{embedder: embedder}
}

// EncodeProfile embeds the profile's headline, skills, seniority and
// preferred locations.
func (e *TextEncoder) EncodeProfile(ctx context.Context, profile *core.Profile) ([]float32, error) {
	text := profile.Text()
	if text == "" {
		return nil, ErrNothingToEncode
	}
	vector, err := e.embedder.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}
	return unit(vector)
}

// EncodeCandidates embeds every candidate in one batch call and assigns
// the normalized vectors.
func (e *TextEncoder) EncodeCandidates(ctx context.Context, candidates []*core.Candidate) error {
	if len(candidates) == 0 {
		return nil
	}

	texts := make([]string, len(candidates))
	for i, candidate := range candidates {
		texts[i] = candidate.Text()
		if texts[i] == "" {
			return fmt.Errorf("candidate %s: %w", candidate.Id, ErrNothingToEncode)
		}
	}

	embeddings, err := e.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return err
	}
	if len(embeddings) != len(candidates) {
		return fmt.Errorf("%w: expected %d, got %d", ErrEmbeddingCount, len(candidates), len(embeddings))
	}

	vectors := make([][]float32, len(embeddings))
	for i, embedding := range embeddings {
		if vectors[i], err = unit(embedding); err != nil {
			return fmt.Errorf("candidate %s: %w", candidates[i].Id, err)
		}
	}
	for i, candidate := range candidates {
		candidate.Vector = vectors[i]
	}
	return nil
}

func unit(v []float32) ([]float32, error) {
	if core.Norm(v) == 0 {
		return nil, ErrEmptyEmbedding
	}
	return core.NormalizeVector(v), nil
}
