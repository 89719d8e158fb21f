package openai

import (
	"log/slog"

	"github.com/poiesic/jobfeed/ai"
)

// Provider serves embeddings from an OpenAI-compatible endpoint, either a
// hosted API or a local server such as Ollama.
type Provider struct {
	embedder *Embedder
	host     string
	logger   *slog.Logger
}

var _ ai.AIProvider = (*Provider)(nil)

// NewProvider validates config and creates the embedding client.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	embedder, err := newEmbedder(config)
	if err != nil {
		return nil, err
	}
	return &Provider{
		embedder: embedder,
		host:     config.EmbeddingHost,
		logger:   slog.Default().With("component", "openai-provider"),
	}, nil
}

// Embedder returns the shared embedder.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// Close releases nothing; the HTTP client is shared and idle connections time out.
func (p *Provider) Close() error {
	p.logger.Debug("closing provider", "host", p.host, "dims", p.embedder.Dimensions())
	return nil
}
