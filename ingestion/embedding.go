package ingestion

import (
	"context"
	"log/slog"
	"slices"

	"github.com/poiesic/jobfeed/ai"
	"github.com/poiesic/jobfeed/core"
	"github.com/poiesic/jobfeed/storage"
)

// processor enriches stored candidates after they are written.
type processor interface {
	process(ctx context.Context, ids ...core.ID) error
}

// embeddingProcessor fills in vectors for stored candidates.
type embeddingProcessor struct {
	candidates storage.CandidateRepository
	encoder    ai.CandidateEncoder
	logger     *slog.Logger
}

var _ processor = (*embeddingProcessor)(nil)

func newEmbeddingProcessor(candidates storage.CandidateRepository, encoder ai.CandidateEncoder, logger *slog.Logger) (*embeddingProcessor, error) {
	if candidates == nil {
		return nil, ErrCandidateRepositoryRequired
	}
	if encoder == nil {
		return nil, ErrEncoderRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &embeddingProcessor{
		candidates: candidates,
		encoder:    encoder,
		logger:     logger.With("processor", "embeddings"),
	}, nil
}

// process embeds the candidates that still lack a vector.
func (ep *embeddingProcessor) process(ctx context.Context, ids ...core.ID) error {
	slices.SortFunc(ids, core.CompareIDs)

	stored, err := ep.candidates.GetCandidates(ctx, ids...)
	if err != nil {
		ep.logger.Error("error retrieving candidates", "err", err)
		return err
	}

	pending := make([]*core.Candidate, 0, len(stored))
	for _, c := range stored {
		if len(c.Vector) == 0 {
			pending = append(pending, c)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	ep.logger.Debug("embedding candidates", "candidates", len(pending))
	if err := ep.encoder.EncodeCandidates(ctx, pending); err != nil {
		ep.logger.Error("error generating embeddings", "err", err)
		return err
	}

	_, err = ep.candidates.UpdateCandidates(ctx, pending...)
	return err
}
