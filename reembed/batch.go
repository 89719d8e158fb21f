package reembed

import (
	"context"
	"fmt"

	"github.com/poiesic/jobfeed/ai"
	"github.com/poiesic/jobfeed/core"
	"github.com/poiesic/jobfeed/retry"
	"github.com/poiesic/jobfeed/storage"
)

// BatchProcessor embeds batches of candidates and writes the vectors back.
type BatchProcessor struct {
	repo    storage.CandidateRepository
	encoder ai.CandidateEncoder
	policy  retry.Policy
}

// NewBatchProcessor creates a new batch processor. Encoder calls are retried
// according to policy; storage writes are not.
func NewBatchProcessor(repo storage.CandidateRepository, encoder ai.CandidateEncoder, policy retry.Policy) *BatchProcessor {
	return &BatchProcessor{
		repo:    repo,
		encoder: encoder,
		policy:  policy,
	}
}

// Process replaces the vectors of a batch. The encoder normalizes vectors so
// they can be compared by cosine similarity.
func (bp *BatchProcessor) Process(ctx context.Context, candidates []*core.Candidate) error {
	if len(candidates) == 0 {
		return nil
	}

	err := bp.policy.Do(ctx, func() error {
		return bp.encoder.EncodeCandidates(ctx, candidates)
	})
	if err != nil {
		return fmt.Errorf("failed to generate embeddings after %d attempts: %w", bp.policy.MaxAttempts, err)
	}

	if _, err := bp.repo.UpdateCandidates(ctx, candidates...); err != nil {
		return fmt.Errorf("failed to update candidates: %w", err)
	}
	return nil
}
