package ingestion

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/jobfeed/ai"
	"github.com/poiesic/jobfeed/core"
	"github.com/poiesic/jobfeed/storage"
)

// DefaultBatchSize is the number of candidates embedded per encoder call.
const DefaultBatchSize = 32

// Pipeline stores candidates and embeds them in the background.
type Pipeline struct {
	candidates    storage.CandidateRepository
	embeddingPool *ants.Pool
	embeddingProc processor
	batchSize     int
	pending       sync.WaitGroup
	logger        *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent embedding.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if p.embeddingPool != nil {
			p.embeddingPool.Release()
		}
		p.embeddingPool = pool
		return nil
	}
}

// WithBatchSize sets how many candidates go to the encoder at once.
func WithBatchSize(n int) Option {
	return func(p *Pipeline) error {
		if n > 0 {
			p.batchSize = n
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(candidates storage.CandidateRepository, encoder ai.CandidateEncoder, opts ...Option) (*Pipeline, error) {
	if candidates == nil {
		return nil, ErrCandidateRepositoryRequired
	}
	if encoder == nil {
		return nil, ErrEncoderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		candidates:    candidates,
		embeddingPool: pool,
		batchSize:     DefaultBatchSize,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	// Created after options so the processor gets the final logger
	proc, err := newEmbeddingProcessor(candidates, encoder, p.logger)
	if err != nil {
		p.Release()
		return nil, err
	}
	p.embeddingProc = proc
	return p, nil
}

// IngestOptions holds optional parameters for ingestion.
type IngestOptions struct {
	Timestamp time.Time // Creation time for candidates that carry none; now if zero
}

// Ingest stores candidates and schedules embedding for the ones without a
// vector. Returns the stored IDs. Embedding errors are logged, not returned.
func (p *Pipeline) Ingest(ctx context.Context, candidates []*core.Candidate, opts *IngestOptions) ([]core.ID, error) {
	if opts == nil {
		opts = &IngestOptions{}
	}
	timestamp := opts.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}
	for _, c := range candidates {
		if c.CreatedAt.IsZero() {
			c.CreatedAt = timestamp
		}
	}

	added, err := p.candidates.AddCandidates(ctx, candidates...)
	if err != nil {
		return nil, err
	}

	ids := make([]core.ID, len(added))
	var unembedded []core.ID
	for i, c := range added {
		ids[i] = c.Id
		if len(c.Vector) == 0 {
			unembedded = append(unembedded, c.Id)
		}
	}

	for start := 0; start < len(unembedded); start += p.batchSize {
		end := min(start+p.batchSize, len(unembedded))
		if err := p.submit(unembedded[start:end]); err != nil {
			return ids, err
		}
	}
	return ids, nil
}

func (p *Pipeline) submit(batch []core.ID) error {
	p.pending.Add(1)
	err := p.embeddingPool.Submit(func() {
		defer p.pending.Done()
		if err := p.embeddingProc.process(context.Background(), batch...); err != nil {
			p.logger.Error("error processing embeddings", "candidates", len(batch), "err", err)
		}
	})
	if err != nil {
		p.pending.Done()
		if err == ants.ErrPoolClosed {
			return ErrPipelineReleased
		}
		return err
	}
	return nil
}

// Wait blocks until all scheduled embedding work has finished.
func (p *Pipeline) Wait() {
	p.pending.Wait()
}

// Release waits for scheduled work and releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	p.pending.Wait()
	if p.embeddingPool != nil {
		p.embeddingPool.Release()
	}
}
