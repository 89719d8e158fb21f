package mock

import (
	"sync/atomic"

	"github.com/poiesic/jobfeed/ai"
)

// MockProvider is a test double for ai.AIProvider.
type MockProvider struct {
	embedder *MockEmbedder
	closed   atomic.Bool
}

var _ ai.AIProvider = (*MockProvider)(nil)

// NewMockProvider returns a provider around a fresh MockEmbedder. The engine
// uses it when no embedding service is configured.
func NewMockProvider() ai.AIProvider {
	return NewMockProviderWithEmbedder(NewMockEmbedder())
}

// NewMockProviderWithEmbedder returns a provider around embedder, so a test
// can inject failures and inspect the texts the engine embedded.
func NewMockProviderWithEmbedder(embedder *MockEmbedder) *MockProvider {
	return &MockProvider{embedder: embedder}
}

// Embedder returns the mock embedder.
func (p *MockProvider) Embedder() ai.Embedder {
	return p.embedder
}

// Close marks the provider closed.
func (p *MockProvider) Close() error {
	p.closed.Store(true)
	return nil
}

// Closed reports whether Close was called.
func (p *MockProvider) Closed() bool {
	return p.closed.Load()
}
