package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/jobfeed/core"
	"github.com/poiesic/jobfeed/storage"
)

const (
	// DefaultMaxPool caps the number of candidates fetched for re-scoring.
	DefaultMaxPool = 500
	// DefaultTimeout bounds a similarity search before falling back.
	DefaultTimeout = 2 * time.Second
)

// SimilarityBackend finds candidates near a query vector.
// Brute-force scans and approximate indexes both satisfy it.
type SimilarityBackend interface {
	// Search returns up to k candidate IDs allowed by filter, most similar first.
	Search(ctx context.Context, query []float32, filter storage.Filter, k int) ([]core.ID, error)

	// OverfetchFactor is the multiplier applied to the page size to size the pool.
	OverfetchFactor() int
}

// CandidateSource reads candidate attributes.
type CandidateSource interface {
	GetCandidates(ctx context.Context, ids ...core.ID) ([]*core.Candidate, error)
	RecentCandidates(ctx context.Context, filter storage.Filter, limit int) ([]*core.Candidate, error)
}

// Mode records which path produced a pool.
type Mode int

const (
	// ModeSimilarity pools were ranked by the similarity backend.
	ModeSimilarity Mode = iota
	// ModeRecency pools are newest first and carry no similarity signal.
	ModeRecency
)

// String returns the mode name.
func (m Mode) String() string {
	if m == ModeRecency {
		return "recency"
	}
	return "similarity"
}

// Pool is an ordered candidate pool.
type Pool struct {
	Candidates []*core.Candidate
	Mode       Mode
	// Degraded is set when the recency path served a request that had a query vector.
	Degraded bool
}

// Observer receives retrieval events. Implemented by metrics.Metrics.
type Observer interface {
	ObserveRetrieval(mode string, degraded bool, size int)
	ObserveFallback(reason string)
}

// Retriever implements candidate retrieval with recency failover.
type Retriever struct {
	backend  SimilarityBackend
	source   CandidateSource
	maxPool  int
	timeout  time.Duration
	observer Observer
	logger   *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithMaxPool caps the pool size.
func WithMaxPool(n int) Option {
	return func(r *Retriever) {
		if n > 0 {
			r.maxPool = n
		}
	}
}

// WithTimeout bounds each similarity search. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(r *Retriever) {
		if d >= 0 {
			r.timeout = d
		}
	}
}

// WithObserver registers a retrieval event observer.
func WithObserver(o Observer) Option {
	return func(r *Retriever) {
		r.observer = o
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
	}
}

// NewRetriever creates a retriever over a similarity backend and an attribute source.
func NewRetriever(backend SimilarityBackend, source CandidateSource, opts ...Option) (*Retriever, error) {
	if backend == nil {
		return nil, ErrBackendRequired
	}
	if source == nil {
		return nil, ErrSourceRequired
	}

	r := &Retriever{
		backend: backend,
		source:  source,
		maxPool: DefaultMaxPool,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "retriever")
	return r, nil
}

// PoolSize returns min(MaxPool, limit*OverfetchFactor()).
func (r *Retriever) PoolSize(limit int) int {
	factor := r.backend.OverfetchFactor()
	if factor < 1 {
		factor = 1
	}
	size := limit * factor
	if size > r.maxPool || size < 0 {
		size = r.maxPool
	}
	return size
}

// EpochLimit returns the retrieval limit a paginated walk should pass on
// every page. With a query it is the smallest limit whose pool reaches
// MaxPool, otherwise MaxPool itself. Retrieving the same pool on each page
// keeps a later page from pulling in a candidate that outranks the cursor.
func (r *Retriever) EpochLimit(query []float32) int {
	if len(query) == 0 {
		return r.maxPool
	}
	factor := max(r.backend.OverfetchFactor(), 1)
	return (r.maxPool + factor - 1) / factor
}

// Retrieve returns the candidate pool for a query. A nil or empty query
// takes the recency path directly. limit is the number of ranked items the
// caller needs; the similarity path over-fetches beyond it.
func (r *Retriever) Retrieve(ctx context.Context, query []float32, filter storage.Filter, limit int) (*Pool, error) {
	if limit <= 0 {
		return &Pool{Mode: ModeRecency}, nil
	}

	if len(query) == 0 {
		return r.recent(ctx, filter, limit, false)
	}

	candidates, err := r.similar(ctx, query, filter, r.PoolSize(limit))
	if err == nil {
		r.observe(ModeSimilarity, false, len(candidates))
		return &Pool{Candidates: candidates, Mode: ModeSimilarity}, nil
	}
	// A cancelled request is not a backend failure.
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	reason := "error"
	if errors.Is(err, context.DeadlineExceeded) {
		reason = "timeout"
	}
	r.logger.Warn("similarity search failed, falling back to recency", "reason", reason, "err", err)
	if r.observer != nil {
		r.observer.ObserveFallback(reason)
	}

	// Fill the pool the similarity path would have returned
	pool, recentErr := r.recent(ctx, filter, r.PoolSize(limit), true)
	if recentErr != nil {
		return nil, fmt.Errorf("%w: similarity: %w; recency: %w", ErrRetrievalUnavailable, err, recentErr)
	}
	return pool, nil
}

func (r *Retriever) similar(ctx context.Context, query []float32, filter storage.Filter, k int) ([]*core.Candidate, error) {
	searchCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	ids, err := r.backend.Search(searchCtx, query, filter, k)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	loaded, err := r.source.GetCandidates(searchCtx, ids...)
	if err != nil {
		return nil, err
	}

	// Attributes may have changed since the index was built
	candidates := loaded[:0]
	for _, c := range loaded {
		if filter.Allows(c) {
			candidates = append(candidates, c)
		}
	}
	return candidates, nil
}

func (r *Retriever) recent(ctx context.Context, filter storage.Filter, limit int, degraded bool) (*Pool, error) {
	candidates, err := r.source.RecentCandidates(ctx, filter, limit)
	if err != nil {
		if !degraded {
			return nil, fmt.Errorf("%w: %w", ErrRetrievalUnavailable, err)
		}
		return nil, err
	}
	r.observe(ModeRecency, degraded, len(candidates))
	return &Pool{Candidates: candidates, Mode: ModeRecency, Degraded: degraded}, nil
}

func (r *Retriever) observe(mode Mode, degraded bool, size int) {
	if r.observer != nil {
		r.observer.ObserveRetrieval(mode.String(), degraded, size)
	}
}
