package adaptation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/jobfeed/ai"
	"github.com/poiesic/jobfeed/core"
	"github.com/poiesic/jobfeed/retry"
	"github.com/poiesic/jobfeed/storage"
	"github.com/poiesic/jobfeed/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testObserver struct {
	mu           sync.Mutex
	interactions int
	duplicates   int
	outcomes     []Outcome
}

func (o *testObserver) ObserveInteraction(duplicate bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.interactions++
	if duplicate {
		o.duplicates++
	}
}

func (o *testObserver) ObserveRecompute(outcome Outcome, elapsed time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func (o *testObserver) Outcomes() []Outcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Outcome(nil), o.outcomes...)
}

// flakyProfiles fails UpdateProfileVector with err the first failures times.
type flakyProfiles struct {
	*badger.ProfileRepository
	err      error
	failures int
	calls    int
}

func (f *flakyProfiles) UpdateProfileVector(ctx context.Context, id core.ID, vector []float32, milestone int64) (bool, error) {
	f.calls++
	if f.calls <= f.failures {
		return false, f.err
	}
	return f.ProfileRepository.UpdateProfileVector(ctx, id, vector, milestone)
}

type encoderFunc func(ctx context.Context, profile *core.Profile) ([]float32, error)

func (f encoderFunc) EncodeProfile(ctx context.Context, profile *core.Profile) ([]float32, error) {
	return f(ctx, profile)
}

func setup(t *testing.T, profile *core.Profile) *badger.Repositories {
	t.Helper()
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })
	require.NoError(t, repos.Profiles.SaveProfiles(context.Background(), profile))
	return repos
}

func liked(vector []float32) *core.Candidate {
	return &core.Candidate{Id: core.NewID(), Vector: vector}
}

func TestUpdater_FiresAtMilestones(t *testing.T) {
	ctx := context.Background()
	profile := &core.Profile{Id: core.NewID(), Vector: []float32{1, 0}}
	repos := setup(t, profile)
	observer := &testObserver{}

	updater, err := NewUpdater(repos.Profiles, repos.Interactions, nil, WithObserver(observer))
	require.NoError(t, err)

	var recomputed []int64
	for i := 0; i < 14; i++ {
		result, err := updater.OnPositiveInteraction(ctx, profile.Id, liked([]float32{0, 1}))
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), result.Count)
		assert.False(t, result.Scheduled)
		if result.Recomputed {
			recomputed = append(recomputed, result.Count)
		}
	}
	assert.Equal(t, []int64{5, 8, 11, 14}, recomputed)
	assert.Equal(t, []Outcome{OutcomeUpdated, OutcomeUpdated, OutcomeUpdated, OutcomeUpdated}, observer.Outcomes())

	stored, err := repos.Profiles.GetProfile(ctx, profile.Id)
	require.NoError(t, err)
	assert.Equal(t, int64(14), stored.AdaptedAt)
	assert.InDelta(t, 1.0, core.Norm(stored.Vector), 1e-5)
	assert.Greater(t, stored.Vector[1], stored.Vector[0], "vector moves towards liked candidates")
}

func TestUpdater_DuplicateCountsOnce(t *testing.T) {
	ctx := context.Background()
	profile := &core.Profile{Id: core.NewID(), Vector: []float32{1, 0}}
	repos := setup(t, profile)
	observer := &testObserver{}
	updater, err := NewUpdater(repos.Profiles, repos.Interactions, nil, WithObserver(observer))
	require.NoError(t, err)

	candidate := liked([]float32{0, 1})
	first, err := updater.OnPositiveInteraction(ctx, profile.Id, candidate)
	require.NoError(t, err)
	second, err := updater.OnPositiveInteraction(ctx, profile.Id, candidate)
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.Count)
	assert.False(t, first.Duplicate)
	assert.Equal(t, int64(1), second.Count)
	assert.True(t, second.Duplicate)
	assert.Equal(t, 1, observer.duplicates)
}

func TestUpdater_FailureKeepsPreviousVector(t *testing.T) {
	ctx := context.Background()
	profile := &core.Profile{Id: core.NewID(), Vector: []float32{1, 0}}
	repos := setup(t, profile)
	observer := &testObserver{}
	profiles := &flakyProfiles{ProfileRepository: repos.Profiles, err: errors.New("disk on fire"), failures: 100}

	updater, err := NewUpdater(profiles, repos.Interactions, nil,
		WithTrigger(Trigger{First: 2}), WithObserver(observer))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		result, err := updater.OnPositiveInteraction(ctx, profile.Id, liked([]float32{0, 1}))
		require.NoError(t, err, "interaction recording must succeed")
		assert.False(t, result.Recomputed)
	}
	assert.Equal(t, []Outcome{OutcomeFailed}, observer.Outcomes())
	assert.Equal(t, 1, profiles.calls, "non-conflict errors are not retried")

	stored, err := repos.Profiles.GetProfile(ctx, profile.Id)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, stored.Vector)
	assert.Zero(t, stored.AdaptedAt)

	_, err = updater.Recompute(ctx, profile.Id, 2)
	assert.ErrorIs(t, err, ErrEmbeddingUpdateFailed)
}

func TestUpdater_RetriesConflicts(t *testing.T) {
	ctx := context.Background()
	profile := &core.Profile{Id: core.NewID(), Vector: []float32{1, 0}}
	repos := setup(t, profile)
	profiles := &flakyProfiles{ProfileRepository: repos.Profiles, err: storage.ErrConflict, failures: 2}

	updater, err := NewUpdater(profiles, repos.Interactions, nil,
		WithTrigger(Trigger{First: 1}),
		WithRetryPolicy(retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}))
	require.NoError(t, err)

	result, err := updater.OnPositiveInteraction(ctx, profile.Id, liked([]float32{0, 1}))
	require.NoError(t, err)
	assert.True(t, result.Recomputed)
	assert.Equal(t, 3, profiles.calls)
}

func TestUpdater_MilestoneIsIdempotent(t *testing.T) {
	ctx := context.Background()
	profile := &core.Profile{Id: core.NewID(), Vector: []float32{1, 0}}
	repos := setup(t, profile)
	updater, err := NewUpdater(repos.Profiles, repos.Interactions, nil, WithTrigger(Trigger{First: 1}))
	require.NoError(t, err)

	result, err := updater.OnPositiveInteraction(ctx, profile.Id, liked([]float32{0, 1}))
	require.NoError(t, err)
	require.True(t, result.Recomputed)

	before, err := repos.Profiles.GetProfile(ctx, profile.Id)
	require.NoError(t, err)

	outcome, err := updater.Recompute(ctx, profile.Id, 1)
	require.NoError(t, err)
	assert.Equal(t, OutcomeStale, outcome)

	after, err := repos.Profiles.GetProfile(ctx, profile.Id)
	require.NoError(t, err)
	assert.Equal(t, before.Vector, after.Vector)
}

func TestUpdater_EmptyHistoryIsSkipped(t *testing.T) {
	ctx := context.Background()
	profile := &core.Profile{Id: core.NewID(), Vector: []float32{1, 0}}
	repos := setup(t, profile)
	observer := &testObserver{}
	updater, err := NewUpdater(repos.Profiles, repos.Interactions, nil,
		WithTrigger(Trigger{First: 1}), WithObserver(observer))
	require.NoError(t, err)

	result, err := updater.OnPositiveInteraction(ctx, profile.Id, liked(nil))
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Count, "counted without a vector")
	assert.False(t, result.Recomputed)
	assert.Equal(t, []Outcome{OutcomeEmptyHistory}, observer.Outcomes())
}

func TestUpdater_BaseVector(t *testing.T) {
	ctx := context.Background()

	t.Run("derived from declared attributes", func(t *testing.T) {
		profile := &core.Profile{Id: core.NewID(), Headline: "Go engineer"}
		repos := setup(t, profile)
		encoder := encoderFunc(func(ctx context.Context, p *core.Profile) ([]float32, error) {
			return []float32{1, 0}, nil
		})
		updater, err := NewUpdater(repos.Profiles, repos.Interactions, encoder, WithTrigger(Trigger{First: 1}))
		require.NoError(t, err)

		result, err := updater.OnPositiveInteraction(ctx, profile.Id, liked([]float32{0, 1}))
		require.NoError(t, err)
		require.True(t, result.Recomputed)

		stored, err := repos.Profiles.GetProfile(ctx, profile.Id)
		require.NoError(t, err)
		n := float32(1 / 0.7615773105863908)
		assert.InDeltaSlice(t, []float32{0.3 * n, 0.7 * n}, stored.Vector, 1e-5)
	})

	t.Run("history mean without attributes", func(t *testing.T) {
		profile := &core.Profile{Id: core.NewID()}
		repos := setup(t, profile)
		encoder := encoderFunc(func(ctx context.Context, p *core.Profile) ([]float32, error) {
			return nil, ai.ErrNothingToEncode
		})
		updater, err := NewUpdater(repos.Profiles, repos.Interactions, encoder, WithTrigger(Trigger{First: 1}))
		require.NoError(t, err)

		_, err = updater.OnPositiveInteraction(ctx, profile.Id, liked([]float32{0, 2}))
		require.NoError(t, err)

		stored, err := repos.Profiles.GetProfile(ctx, profile.Id)
		require.NoError(t, err)
		assert.InDeltaSlice(t, []float32{0, 1}, stored.Vector, 1e-6)
	})

	t.Run("encoder failure", func(t *testing.T) {
		profile := &core.Profile{Id: core.NewID(), Headline: "Go engineer"}
		repos := setup(t, profile)
		encoder := encoderFunc(func(ctx context.Context, p *core.Profile) ([]float32, error) {
			return nil, errors.New("embedding service down")
		})
		observer := &testObserver{}
		updater, err := NewUpdater(repos.Profiles, repos.Interactions, encoder,
			WithTrigger(Trigger{First: 1}), WithObserver(observer))
		require.NoError(t, err)

		result, err := updater.OnPositiveInteraction(ctx, profile.Id, liked([]float32{0, 1}))
		require.NoError(t, err)
		assert.False(t, result.Recomputed)
		assert.Equal(t, []Outcome{OutcomeFailed}, observer.Outcomes())

		stored, err := repos.Profiles.GetProfile(ctx, profile.Id)
		require.NoError(t, err)
		assert.Empty(t, stored.Vector)
	})
}

func TestUpdater_Async(t *testing.T) {
	ctx := context.Background()
	profile := &core.Profile{Id: core.NewID(), Vector: []float32{1, 0}}
	repos := setup(t, profile)
	updater, err := NewUpdater(repos.Profiles, repos.Interactions, nil, WithAsync(2))
	require.NoError(t, err)
	defer updater.Close()

	var scheduled []int64
	for i := 0; i < 8; i++ {
		result, err := updater.OnPositiveInteraction(ctx, profile.Id, liked([]float32{0, 1}))
		require.NoError(t, err)
		assert.False(t, result.Recomputed)
		if result.Scheduled {
			scheduled = append(scheduled, result.Count)
		}
	}
	updater.Wait()

	assert.Equal(t, []int64{5, 8}, scheduled)
	stored, err := repos.Profiles.GetProfile(ctx, profile.Id)
	require.NoError(t, err)
	assert.Equal(t, int64(8), stored.AdaptedAt)
	assert.InDelta(t, 1.0, core.Norm(stored.Vector), 1e-5)
}

func TestNewUpdater_InvalidAlpha(t *testing.T) {
	repos := setup(t, &core.Profile{Id: core.NewID()})
	_, err := NewUpdater(repos.Profiles, repos.Interactions, nil, WithAlpha(2))
	assert.ErrorIs(t, err, ErrInvalidAlpha)
}
