package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/jobfeed/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEmbedder_Deterministic(t *testing.T) {
	m := NewMockEmbedder()
	ctx := context.Background()

	a, err := m.EmbedText(ctx, "golang backend")
	require.NoError(t, err)
	b, err := m.EmbedText(ctx, "golang backend")
	require.NoError(t, err)
	c, err := m.EmbedText(ctx, "pastry chef")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, DefaultDimensions)
	assert.InDelta(t, 1.0, core.Norm(a), 1e-4)
	assert.Equal(t, 3, m.CallCount())
	assert.Equal(t, []string{"golang backend", "golang backend", "pastry chef"}, m.Texts())
}

func TestDeterministicVector_SharedTokensAreCloser(t *testing.T) {
	profile := DeterministicVector("Backend engineer | Skills: go, postgres", 256)
	related := DeterministicVector("Senior Go Engineer | Acme | go, postgres, kubernetes", 256)
	unrelated := DeterministicVector("Pastry Chef | Bakery | croissants, sourdough", 256)

	assert.Greater(t, core.Cosine(profile, related), core.Cosine(profile, unrelated))
}

func TestDeterministicVector_NoTokens(t *testing.T) {
	v := DeterministicVector("---", 16)
	assert.InDelta(t, 1.0, core.Norm(v), 1e-6)
}

func TestMockEmbedder_Batch(t *testing.T) {
	m := &MockEmbedder{Dimensions: 8}
	out, err := m.EmbedTexts(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Len(t, out[0], 8)
	assert.Equal(t, DeterministicVector("b", 8), out[1])

	m.Reset()
	assert.Equal(t, 0, m.CallCount())
	assert.Empty(t, m.Texts())
}

func TestMockEmbedder_InjectedFailure(t *testing.T) {
	boom := errors.New("boom")
	m := NewMockEmbedder()
	m.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return nil, boom
	}
	_, err := m.EmbedTexts(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, m.CallCount())
}

func TestMockProvider(t *testing.T) {
	embedder := NewMockEmbedder()
	p := NewMockProviderWithEmbedder(embedder)
	assert.Same(t, embedder, p.Embedder())
	assert.False(t, p.Closed())
	require.NoError(t, p.Close())
	assert.True(t, p.Closed())
}
