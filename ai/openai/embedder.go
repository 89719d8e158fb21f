package openai

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/poiesic/jobfeed/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder calls an OpenAI-compatible /embeddings endpoint. The first vector
// it sees fixes the dimension; any later vector of another length is an error,
// since mixed lengths cannot share a similarity index.
type Embedder struct {
	client embeddings.Embedder
	model  string
	dims   atomic.Int64
	logger *slog.Logger
}

var _ ai.Embedder = (*Embedder)(nil)

func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	llm, err := openai.New(
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken(config.APIToken),
		openai.WithEmbeddingModel(config.EmbeddingModel),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding client: %w", err)
	}
	client, err := embeddings.NewEmbedder(llm,
		embeddings.WithStripNewLines(true),
		embeddings.WithBatchSize(config.BatchSize),
	)
	if err != nil {
		return nil, err
	}

	return &Embedder{
		client: client,
		model:  config.EmbeddingModel,
		logger: slog.Default().With("component", "openai-embedder", "model", config.EmbeddingModel),
	}, nil
}

// NewEmbedder creates an embedder for the configured host and model.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

// Dimensions reports the vector length seen so far, or 0 before the first call.
func (e *Embedder) Dimensions() int {
	return int(e.dims.Load())
}

// EmbedText embeds one profile or candidate text.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vector, err := e.client.EmbedQuery(ctx, text)
	if err != nil {
		e.logger.Error("embedding request failed", "err", err)
		return nil, err
	}
	if err := e.check(vector); err != nil {
		return nil, err
	}
	return vector, nil
}

// EmbedTexts embeds texts in request-sized chunks and returns one vector per text.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	e.logger.Debug("embedding batch", "count", len(texts))

	vectors, err := e.client.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("embedding request failed", "count", len(texts), "err", err)
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d, got %d", ai.ErrEmbeddingCount, len(texts), len(vectors))
	}
	for _, v := range vectors {
		if err := e.check(v); err != nil {
			return nil, err
		}
	}
	return vectors, nil
}

func (e *Embedder) check(v []float32) error {
	if len(v) == 0 {
		return ai.ErrEmptyEmbedding
	}
	n := int64(len(v))
	if e.dims.CompareAndSwap(0, n) {
		return nil
	}
	if want := e.dims.Load(); want != n {
		return fmt.Errorf("%w: model %s returned %d, expected %d", ai.ErrDimensionMismatch, e.model, n, want)
	}
	return nil
}
