package adaptation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/jobfeed/ai"
	"github.com/poiesic/jobfeed/core"
	"github.com/poiesic/jobfeed/retry"
	"github.com/poiesic/jobfeed/storage"
)

const (
	// DefaultWindow is the number of history vectors kept per profile.
	DefaultWindow = 10

	// DefaultAsyncTimeout bounds a background recompute.
	DefaultAsyncTimeout = 30 * time.Second
)

// Outcome describes how a recompute ended.
type Outcome string

const (
	OutcomeUpdated      Outcome = "updated"
	OutcomeEmptyHistory Outcome = "empty_history"
	OutcomeStale        Outcome = "stale"
	OutcomeFailed       Outcome = "failed"
)

// Observer receives updater events. Implementations must be safe for concurrent use.
type Observer interface {
	ObserveInteraction(duplicate bool)
	ObserveRecompute(outcome Outcome, elapsed time.Duration)
}

// Result reports what recording an interaction did.
type Result struct {
	Count      int64 // Positive interactions recorded for the profile
	Duplicate  bool  // The candidate had already been recorded
	Recomputed bool  // The vector was recomputed inline and changed
	Scheduled  bool  // A recompute was handed to the worker pool
}

// Option configures an Updater.
type Option func(*Updater)

// WithTrigger sets the recompute milestones.
func WithTrigger(t Trigger) Option {
	return func(u *Updater) {
		u.trigger = t
	}
}

// WithWindow sets how many history vectors are kept and blended.
func WithWindow(w int) Option {
	return func(u *Updater) {
		if w > 0 {
			u.window = w
		}
	}
}

// WithAlpha sets the weight of the current vector in the blend.
func WithAlpha(alpha float64) Option {
	return func(u *Updater) {
		u.alpha = alpha
	}
}

// WithAsync runs recomputes on a worker pool of the given size.
func WithAsync(poolSize int) Option {
	return func(u *Updater) {
		u.async = true
		u.poolSize = poolSize
	}
}

// WithAsyncTimeout bounds each background recompute.
func WithAsyncTimeout(d time.Duration) Option {
	return func(u *Updater) {
		if d > 0 {
			u.asyncTimeout = d
		}
	}
}

// WithRetryPolicy sets how conflicting writes are retried.
func WithRetryPolicy(p retry.Policy) Option {
	return func(u *Updater) {
		u.retry = p
	}
}

// WithObserver attaches an event observer.
func WithObserver(o Observer) Option {
	return func(u *Updater) {
		u.observer = o
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(u *Updater) {
		u.logger = logger
	}
}

// Updater records positive interactions and recomputes profile vectors at
// milestones.
type Updater struct {
	profiles     storage.ProfileRepository
	interactions storage.InteractionRepository
	encoder      ai.ProfileEncoder

	trigger      Trigger
	window       int
	alpha        float64
	async        bool
	poolSize     int
	asyncTimeout time.Duration
	retry        retry.Policy
	observer     Observer
	logger       *slog.Logger

	pool *ants.Pool
	wg   sync.WaitGroup
}

// NewUpdater creates an updater. encoder may be nil, in which case profiles
// without a vector start from their history mean.
func NewUpdater(profiles storage.ProfileRepository, interactions storage.InteractionRepository, encoder ai.ProfileEncoder, opts ...Option) (*Updater, error) {
	u := &Updater{
		profiles:     profiles,
		interactions: interactions,
		encoder:      encoder,
		trigger:      DefaultTrigger(),
		window:       DefaultWindow,
		alpha:        DefaultAlpha,
		asyncTimeout: DefaultAsyncTimeout,
		retry:        retry.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(u)
	}
	if u.alpha < 0 || u.alpha > 1 {
		return nil, ErrInvalidAlpha
	}
	if u.retry.Retryable == nil {
		u.retry.Retryable = retry.On(storage.ErrConflict)
	}
	if u.logger == nil {
		u.logger = slog.Default()
	}
	u.logger = u.logger.With("component", "profile-updater")

	if u.async {
		size := u.poolSize
		if size <= 0 {
			size = 4
		}
		pool, err := ants.NewPool(size, ants.WithNonblocking(true))
		if err != nil {
			return nil, err
		}
		u.pool = pool
	}
	return u, nil
}

// OnPositiveInteraction records that the profile responded to candidate and
// recomputes the profile vector when the new count is a milestone. The
// returned error covers recording only; recompute failures are logged.
func (u *Updater) OnPositiveInteraction(ctx context.Context, profileID core.ID, candidate *core.Candidate) (*Result, error) {
	interaction := &core.Interaction{
		ProfileId:   profileID,
		CandidateId: candidate.Id,
		Vector:      candidate.Vector,
		At:          time.Now().UTC(),
	}

	var recorded core.RecordResult
	err := u.retry.Do(ctx, func() error {
		var err error
		recorded, err = u.interactions.RecordInteraction(ctx, interaction, u.window)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("record interaction: %w", err)
	}
	if u.observer != nil {
		u.observer.ObserveInteraction(recorded.Duplicate)
	}

	result := &Result{Count: recorded.Count, Duplicate: recorded.Duplicate}
	if recorded.Duplicate || !u.trigger.Fires(recorded.Count) {
		return result, nil
	}

	if u.async && u.schedule(profileID, recorded.Count) {
		result.Scheduled = true
		return result, nil
	}

	outcome, _ := u.Recompute(ctx, profileID, recorded.Count)
	result.Recomputed = outcome == OutcomeUpdated
	return result, nil
}

func (u *Updater) schedule(profileID core.ID, milestone int64) bool {
	u.wg.Add(1)
	err := u.pool.Submit(func() {
		defer u.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), u.asyncTimeout)
		defer cancel()
		u.Recompute(ctx, profileID, milestone)
	})
	if err != nil {
		u.wg.Done()
		u.logger.Warn("worker pool rejected recompute, running inline", "profile", profileID, "err", err)
		return false
	}
	return true
}

// Recompute blends the profile's current vector with its recent history and
// stores the result for milestone. It reads the profile and history at call
// time. A milestone at or below the profile's last adapted milestone is a
// no-op. Errors are wrapped in ErrEmbeddingUpdateFailed, logged and counted.
func (u *Updater) Recompute(ctx context.Context, profileID core.ID, milestone int64) (Outcome, error) {
	start := time.Now()
	outcome, err := u.recompute(ctx, profileID, milestone)
	if err != nil {
		outcome = OutcomeFailed
		err = fmt.Errorf("%w: %w", ErrEmbeddingUpdateFailed, err)
		u.logger.Warn("profile vector recompute failed, keeping previous vector",
			"profile", profileID, "milestone", milestone, "err", err)
	} else {
		u.logger.Debug("profile vector recompute", "profile", profileID, "milestone", milestone, "outcome", outcome)
	}
	if u.observer != nil {
		u.observer.ObserveRecompute(outcome, time.Since(start))
	}
	return outcome, err
}

func (u *Updater) recompute(ctx context.Context, profileID core.ID, milestone int64) (Outcome, error) {
	var outcome Outcome
	err := u.retry.Do(ctx, func() error {
		profile, err := u.profiles.GetProfile(ctx, profileID)
		if err != nil {
			return err
		}
		if profile.AdaptedAt >= milestone {
			outcome = OutcomeStale
			return nil
		}

		history, err := u.interactions.RecentVectors(ctx, profileID, u.window)
		if err != nil {
			return err
		}
		if len(history) == 0 {
			outcome = OutcomeEmptyHistory
			return nil
		}

		base, err := u.base(ctx, profile, history)
		if err != nil {
			return err
		}
		vector, err := Blend(base, history, u.alpha)
		if err != nil {
			return err
		}

		updated, err := u.profiles.UpdateProfileVector(ctx, profileID, vector, milestone)
		if err != nil {
			return err
		}
		if updated {
			outcome = OutcomeUpdated
		} else {
			outcome = OutcomeStale
		}
		return nil
	})
	return outcome, err
}

// base returns the vector the history is blended into: the current vector,
// or one derived from the declared attributes, or the history mean.
func (u *Updater) base(ctx context.Context, profile *core.Profile, history [][]float32) ([]float32, error) {
	if len(profile.Vector) > 0 {
		return profile.Vector, nil
	}
	if u.encoder != nil {
		vector, err := u.encoder.EncodeProfile(ctx, profile)
		if err == nil {
			return vector, nil
		}
		if !errors.Is(err, ai.ErrNothingToEncode) {
			return nil, fmt.Errorf("derive base vector: %w", err)
		}
	}
	return core.MeanVector(history)
}

// Wait blocks until scheduled recomputes have finished.
func (u *Updater) Wait() {
	u.wg.Wait()
}

// Close waits for scheduled recomputes and releases the worker pool.
func (u *Updater) Close() {
	u.Wait()
	if u.pool != nil {
		u.pool.Release()
	}
}
