package discovery

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/poiesic/jobfeed/adaptation"
	"github.com/poiesic/jobfeed/core"
	"github.com/poiesic/jobfeed/pagination"
	"github.com/poiesic/jobfeed/retrieval"
	"github.com/poiesic/jobfeed/scoring"
	"github.com/poiesic/jobfeed/storage"
	"github.com/poiesic/jobfeed/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	repos   *badger.Repositories
	service *Service
}

type brokenBackend struct{}

func (brokenBackend) Search(ctx context.Context, query []float32, filter storage.Filter, k int) ([]core.ID, error) {
	return nil, errors.New("index offline")
}

func (brokenBackend) OverfetchFactor() int { return 5 }

func newFixture(t *testing.T, backend retrieval.SimilarityBackend, updaterOpts ...adaptation.Option) *fixture {
	t.Helper()
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })

	if backend == nil {
		backend = repos.Candidates
	}
	retriever, err := retrieval.NewRetriever(backend, repos.Candidates)
	require.NoError(t, err)
	scorer, err := scoring.NewScorer()
	require.NoError(t, err)
	batch, err := scoring.NewBatchScorer(scorer)
	require.NoError(t, err)
	t.Cleanup(batch.Release)
	codec, err := pagination.NewCodec([]byte("discovery-test"))
	require.NoError(t, err)
	updater, err := adaptation.NewUpdater(repos.Profiles, repos.Interactions, nil, updaterOpts...)
	require.NoError(t, err)
	t.Cleanup(updater.Close)

	service, err := NewService(Deps{
		Profiles:     repos.Profiles,
		Candidates:   repos.Candidates,
		Interactions: repos.Interactions,
		Retriever:    retriever,
		Scorer:       batch,
		Paginator:    pagination.NewPaginator(codec),
		Updater:      updater,
	}, WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	return &fixture{repos: repos, service: service}
}

func (f *fixture) addCandidates(t *testing.T, candidates ...*core.Candidate) {
	t.Helper()
	_, err := f.repos.Candidates.AddCandidates(context.Background(), candidates...)
	require.NoError(t, err)
}

func (f *fixture) addProfile(t *testing.T, profile *core.Profile) {
	t.Helper()
	require.NoError(t, f.repos.Profiles.SaveProfiles(context.Background(), profile))
}

func scenario(t *testing.T, f *fixture) (*core.Profile, *core.Candidate, *core.Candidate) {
	profile := &core.Profile{
		Id:                 core.NewID(),
		Skills:             []string{"python", "fastapi"},
		Seniority:          "mid",
		PreferredLocations: []string{"remote"},
		Vector:             []float32{1, 0},
	}
	a := &core.Candidate{
		Id: core.NewID(), Title: "A", Tags: []string{"python", "fastapi"}, Seniority: "mid",
		Remote: true, Active: true, CreatedAt: now, Vector: []float32{1, 0},
	}
	b := &core.Candidate{
		Id: core.NewID(), Title: "B", Tags: []string{"java"}, Seniority: "junior", Location: "Berlin",
		Active: true, CreatedAt: now.Add(-720 * time.Hour), Vector: []float32{0, 1},
	}
	f.addProfile(t, profile)
	f.addCandidates(t, a, b)
	return profile, a, b
}

func TestDiscover_Scenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	profile, a, b := scenario(t, f)

	first, err := f.service.Discover(ctx, profile.Id, "", 1)
	require.NoError(t, err)
	require.Len(t, first.Items, 1)
	assert.Equal(t, a.Id, first.Items[0].CandidateId)
	assert.Equal(t, 100, first.Items[0].Percent)
	assert.True(t, first.HasMore)
	assert.NotEmpty(t, first.NextCursor)
	assert.Equal(t, "similarity", first.Mode)

	second, err := f.service.Discover(ctx, profile.Id, first.NextCursor, 1)
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Equal(t, b.Id, second.Items[0].CandidateId)
	assert.Less(t, second.Items[0].Percent, 10)
	assert.False(t, second.HasMore)
	assert.Empty(t, second.NextCursor)
}

func TestDiscover_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	profile, _, _ := scenario(t, f)

	_, err := f.service.Discover(ctx, profile.Id, "", 0)
	assert.ErrorIs(t, err, pagination.ErrInvalidLimit)
	assert.Equal(t, KindInvalidArgument, ErrorKind(err))

	_, err = f.service.Discover(ctx, profile.Id, "garbage", 10)
	assert.ErrorIs(t, err, pagination.ErrInvalidCursor)

	_, err = f.service.Discover(ctx, core.NewID(), "", 10)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Equal(t, KindNotFound, ErrorKind(err))

	page, err := f.service.Discover(ctx, profile.Id, "", 10_000)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
}

func TestDiscover_Completeness(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	profile := &core.Profile{Id: core.NewID(), Skills: []string{"go"}, Vector: []float32{1, 0}}
	f.addProfile(t, profile)

	var candidates []*core.Candidate
	for i := 0; i < 30; i++ {
		candidates = append(candidates, &core.Candidate{
			Id:        core.NewID(),
			Tags:      []string{"go"},
			Active:    true,
			CreatedAt: now.Add(-time.Duration(i%5) * time.Hour),
			// Several candidates share a vector, and so a score
			Vector: core.NormalizeVector([]float32{1, float32(i % 3)}),
		})
	}
	f.addCandidates(t, candidates...)

	seen := map[core.ID]bool{}
	var previous *Item
	cursor := ""
	for pages := 0; pages < 20; pages++ {
		page, err := f.service.Discover(ctx, profile.Id, cursor, 4)
		require.NoError(t, err)
		for i := range page.Items {
			item := page.Items[i]
			assert.False(t, seen[item.CandidateId], "duplicate")
			seen[item.CandidateId] = true
			if previous != nil {
				assert.GreaterOrEqual(t, previous.Score, item.Score)
			}
			previous = &item
		}
		if !page.HasMore {
			break
		}
		cursor = page.NextCursor
	}
	assert.Len(t, seen, 30)
}

// walk follows cursors until the last page and returns every served item.
func walk(t *testing.T, f *fixture, profileID core.ID, limit int) []Item {
	t.Helper()
	var items []Item
	cursor := ""
	for pages := 0; pages < 1000; pages++ {
		page, err := f.service.Discover(context.Background(), profileID, cursor, limit)
		require.NoError(t, err)
		items = append(items, page.Items...)
		if !page.HasMore {
			return items
		}
		cursor = page.NextCursor
	}
	t.Fatal("walk did not terminate")
	return nil
}

func TestDiscover_CompletenessBeyondFirstPool(t *testing.T) {
	f := newFixture(t, nil)
	profile := &core.Profile{Id: core.NewID(), Skills: []string{"go"}, Vector: []float32{1, 0}}
	f.addProfile(t, profile)

	// Similarity falls with the index; only a far candidate matches the
	// skill, which lifts it to the top score.
	const n = 60
	var target core.ID
	for i := 0; i < n; i++ {
		angle := float64(i) * 0.01
		c := &core.Candidate{
			Id:        core.NewID(),
			Tags:      []string{"rust"},
			Active:    true,
			CreatedAt: now,
			Vector:    []float32{float32(math.Cos(angle)), float32(math.Sin(angle))},
		}
		if i == 55 {
			c.Tags = []string{"go"}
			target = c.Id
		}
		f.addCandidates(t, c)
	}

	items := walk(t, f, profile.Id, 1)
	seen := map[core.ID]int{}
	for i, item := range items {
		seen[item.CandidateId]++
		if i > 0 {
			assert.GreaterOrEqual(t, items[i-1].Score, item.Score)
		}
	}
	assert.Len(t, items, n)
	assert.Len(t, seen, n)
	require.NotEmpty(t, items)
	assert.Equal(t, target, items[0].CandidateId)
}

func TestDiscover_ServesCandidatesAwaitingEmbedding(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	profile := &core.Profile{Id: core.NewID(), Skills: []string{"go"}, Vector: []float32{1, 0}}
	f.addProfile(t, profile)

	embedded := &core.Candidate{Id: core.NewID(), Active: true, CreatedAt: now, Vector: []float32{1, 0}}
	pending := &core.Candidate{Id: core.NewID(), Tags: []string{"go"}, Active: true, CreatedAt: now}
	f.addCandidates(t, embedded, pending)

	page, err := f.service.Discover(ctx, profile.Id, "", 10)
	require.NoError(t, err)
	assert.Equal(t, "similarity", page.Mode)
	assert.False(t, page.HasMore)
	require.Len(t, page.Items, 2)

	byID := map[core.ID]Item{}
	for _, item := range page.Items {
		byID[item.CandidateId] = item
	}
	require.Contains(t, byID, pending.Id)
	assert.Equal(t, scoring.DefaultMissingSimilarity, byID[pending.Id].Components.Similarity)
	assert.InDelta(t, 1.0, byID[embedded.Id].Components.Similarity, 1e-9)
}

func TestDiscover_RecencyWithoutVector(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	profile := &core.Profile{Id: core.NewID(), Skills: []string{"go"}}
	f.addProfile(t, profile)

	older := &core.Candidate{Id: core.NewID(), Active: true, CreatedAt: now.Add(-2 * time.Hour), Vector: []float32{1, 0}}
	newer := &core.Candidate{Id: core.NewID(), Active: true, CreatedAt: now.Add(-time.Hour)}
	inactive := &core.Candidate{Id: core.NewID(), CreatedAt: now}
	f.addCandidates(t, older, newer, inactive)

	page, err := f.service.Discover(ctx, profile.Id, "", 10)
	require.NoError(t, err)
	assert.Equal(t, "recency", page.Mode)
	assert.False(t, page.Degraded)
	require.Len(t, page.Items, 2)
	assert.Equal(t, newer.Id, page.Items[0].CandidateId)
	assert.Equal(t, older.Id, page.Items[1].CandidateId)
	for _, item := range page.Items {
		assert.Equal(t, scoring.DefaultBaselineSimilarity, item.Components.Similarity)
	}
}

func TestDiscover_FailsOverToRecency(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, brokenBackend{})
	profile, a, _ := scenario(t, f)

	page, err := f.service.Discover(ctx, profile.Id, "", 10)
	require.NoError(t, err)
	assert.Equal(t, "recency", page.Mode)
	assert.True(t, page.Degraded)
	require.Len(t, page.Items, 2)
	assert.Equal(t, a.Id, page.Items[0].CandidateId, "newest first")
}

func TestRecordPositiveInteraction(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, adaptation.WithTrigger(adaptation.Trigger{First: 1}))
	profile, a, b := scenario(t, f)

	result, err := f.service.RecordPositiveInteraction(ctx, profile.Id, a.Id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Count)
	assert.True(t, result.Recomputed)

	again, err := f.service.RecordPositiveInteraction(ctx, profile.Id, a.Id)
	require.NoError(t, err)
	assert.True(t, again.Duplicate)
	assert.Equal(t, int64(1), again.Count)

	page, err := f.service.Discover(ctx, profile.Id, "", 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1, "liked candidates are excluded")
	assert.Equal(t, b.Id, page.Items[0].CandidateId)

	_, err = f.service.RecordPositiveInteraction(ctx, profile.Id, core.NewID())
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = f.service.RecordPositiveInteraction(ctx, core.NewID(), a.Id)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestExplain_MatchesDiscover(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	profile, _, b := scenario(t, f)

	page, err := f.service.Discover(ctx, profile.Id, "", 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)

	explanation, err := f.service.Explain(ctx, profile.Id, b.Id)
	require.NoError(t, err)
	assert.Equal(t, page.Items[1].Score, explanation.Score)
	assert.Equal(t, scoring.BandWeak, explanation.Band)

	_, err = f.service.Explain(ctx, profile.Id, core.NewID())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestNewService_MissingDependency(t *testing.T) {
	_, err := NewService(Deps{})
	assert.ErrorIs(t, err, ErrMissingDependency)
}
