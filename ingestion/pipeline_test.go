package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/jobfeed/ai"
	"github.com/poiesic/jobfeed/ai/mock"
	"github.com/poiesic/jobfeed/core"
	"github.com/poiesic/jobfeed/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingEncoder implements ai.CandidateEncoder and always fails.
type failingEncoder struct {
	calls atomic.Int32
}

func (f *failingEncoder) EncodeCandidates(ctx context.Context, candidates []*core.Candidate) error {
	f.calls.Add(1)
	return errors.New("encoder down")
}

func setupRepositories(t *testing.T) *badger.Repositories {
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })
	return repos
}

func newCandidates(n int) []*core.Candidate {
	out := make([]*core.Candidate, n)
	for i := range out {
		out[i] = &core.Candidate{
			Title:       fmt.Sprintf("Engineer %d", i),
			Company:     "Acme",
			Description: "Build things",
			Tags:        []string{"go"},
			Active:      true,
		}
	}
	return out
}

func TestNewPipeline_Validation(t *testing.T) {
	repos := setupRepositories(t)
	encoder := ai.NewTextEncoder(mock.NewMockEmbedder())

	_, err := NewPipeline(nil, encoder)
	assert.ErrorIs(t, err, ErrCandidateRepositoryRequired)

	_, err = NewPipeline(repos.Candidates, nil)
	assert.ErrorIs(t, err, ErrEncoderRequired)
}

func TestPipeline_IngestEmbedsInBackground(t *testing.T) {
	repos := setupRepositories(t)
	embedder := mock.NewMockEmbedder()
	embedder.Dimensions = 8

	p, err := NewPipeline(repos.Candidates, ai.NewTextEncoder(embedder), WithPoolSize(2), WithBatchSize(4))
	require.NoError(t, err)
	defer p.Release()

	ts := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	ids, err := p.Ingest(context.Background(), newCandidates(10), &IngestOptions{Timestamp: ts})
	require.NoError(t, err)
	require.Len(t, ids, 10)
	p.Wait()

	// 10 candidates in batches of 4
	assert.Equal(t, 3, embedder.CallCount())

	stored, err := repos.Candidates.GetCandidates(context.Background(), ids...)
	require.NoError(t, err)
	require.Len(t, stored, 10)
	for _, c := range stored {
		assert.Len(t, c.Vector, 8)
		assert.InDelta(t, 1.0, core.Norm(c.Vector), 1e-5)
		assert.True(t, c.CreatedAt.Equal(ts))
	}
}

func TestPipeline_SkipsCandidatesWithVectors(t *testing.T) {
	repos := setupRepositories(t)
	embedder := mock.NewMockEmbedder()

	p, err := NewPipeline(repos.Candidates, ai.NewTextEncoder(embedder))
	require.NoError(t, err)
	defer p.Release()

	candidates := newCandidates(2)
	candidates[0].Vector = []float32{1, 0}
	candidates[1].Vector = []float32{0, 1}

	_, err = p.Ingest(context.Background(), candidates, nil)
	require.NoError(t, err)
	p.Wait()
	assert.Zero(t, embedder.CallCount())
}

func TestPipeline_EmbeddingFailureKeepsCandidate(t *testing.T) {
	repos := setupRepositories(t)
	encoder := &failingEncoder{}

	p, err := NewPipeline(repos.Candidates, encoder)
	require.NoError(t, err)
	defer p.Release()

	ids, err := p.Ingest(context.Background(), newCandidates(3), nil)
	require.NoError(t, err)
	p.Wait()
	assert.Equal(t, int32(1), encoder.calls.Load())

	stored, err := repos.Candidates.GetCandidates(context.Background(), ids...)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	for _, c := range stored {
		assert.Empty(t, c.Vector)
	}
}

func TestPipeline_IngestAfterRelease(t *testing.T) {
	repos := setupRepositories(t)
	p, err := NewPipeline(repos.Candidates, ai.NewTextEncoder(mock.NewMockEmbedder()))
	require.NoError(t, err)
	p.Release()

	_, err = p.Ingest(context.Background(), newCandidates(1), nil)
	assert.ErrorIs(t, err, ErrPipelineReleased)
}

func TestEmbeddingProcessor_Process(t *testing.T) {
	repos := setupRepositories(t)
	proc, err := newEmbeddingProcessor(repos.Candidates, ai.NewTextEncoder(mock.NewMockEmbedder()), nil)
	require.NoError(t, err)

	candidates := newCandidates(3)
	for _, c := range candidates {
		c.CreatedAt = time.Now().UTC()
	}
	added, err := repos.Candidates.AddCandidates(context.Background(), candidates...)
	require.NoError(t, err)

	ids := []core.ID{added[2].Id, added[0].Id, added[1].Id}
	require.NoError(t, proc.process(context.Background(), ids...))

	for _, id := range ids {
		c, err := repos.Candidates.GetCandidate(context.Background(), id)
		require.NoError(t, err)
		assert.Len(t, c.Vector, mock.DefaultDimensions)
	}
}
