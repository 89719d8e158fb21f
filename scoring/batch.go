package scoring

import (
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/jobfeed/core"
)

// defaultChunkSize is how many candidates one pool task scores.
const defaultChunkSize = 64

// BatchScorer scores whole candidate pools on a worker pool.
type BatchScorer struct {
	scorer    *Scorer
	pool      *ants.Pool
	chunkSize int
	logger    *slog.Logger
}

// BatchOption configures a BatchScorer.
type BatchOption func(*BatchScorer) error

// WithPoolSize sets the worker pool size.
// Default is runtime.NumCPU().
func WithPoolSize(size int) BatchOption {
	return func(b *BatchScorer) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if b.pool != nil {
			b.pool.Release()
		}
		b.pool = pool
		return nil
	}
}

// WithChunkSize sets how many candidates each task scores.
func WithChunkSize(n int) BatchOption {
	return func(b *BatchScorer) error {
		if n > 0 {
			b.chunkSize = n
		}
		return nil
	}
}

// WithBatchLogger sets a custom logger.
// Default is slog.Default().
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchScorer) error {
		if logger == nil {
			logger = slog.Default()
		}
		b.logger = logger
		return nil
	}
}

// NewBatchScorer creates a batch scorer around scorer.
func NewBatchScorer(scorer *Scorer, opts ...BatchOption) (*BatchScorer, error) {
	pool, err := ants.NewPool(runtime.NumCPU())
	if err != nil {
		return nil, err
	}

	b := &BatchScorer{
		scorer:    scorer,
		pool:      pool,
		chunkSize: defaultChunkSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if optErr := opt(b); optErr != nil {
			b.Release()
			return nil, optErr
		}
	}
	return b, nil
}

// Scorer returns the underlying scorer.
func (b *BatchScorer) Scorer() *Scorer {
	return b.scorer
}

// ScoreAll scores every candidate against profile. Ranked pools use the full
// similarity signal, unranked pools the flat baseline. The result keeps the
// input order.
func (b *BatchScorer) ScoreAll(profile *core.Profile, candidates []*core.Candidate, ranked bool, now time.Time) []core.ScoredCandidate {
	results := make([]core.ScoredCandidate, len(candidates))
	scoreRange := func(start, end int) {
		for i := start; i < end; i++ {
			if ranked {
				results[i] = b.scorer.Score(profile, candidates[i], now)
			} else {
				results[i] = b.scorer.ScoreBaseline(profile, candidates[i], now)
			}
		}
	}

	if len(candidates) <= b.chunkSize {
		scoreRange(0, len(candidates))
		return results
	}

	var wg sync.WaitGroup
	for start := 0; start < len(candidates); start += b.chunkSize {
		end := min(start+b.chunkSize, len(candidates))
		wg.Add(1)
		if err := b.pool.Submit(func() {
			defer wg.Done()
			scoreRange(start, end)
		}); err != nil {
			// Pool closed or saturated, score on the caller's goroutine
			b.logger.Debug("scoring inline", "err", err)
			wg.Done()
			scoreRange(start, end)
		}
	}
	wg.Wait()
	return results
}

// Release releases the worker pool.
func (b *BatchScorer) Release() {
	if b.pool != nil {
		b.pool.Release()
	}
}
