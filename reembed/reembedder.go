// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package reembed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/jobfeed/ai"
	"github.com/poiesic/jobfeed/core"
	"github.com/poiesic/jobfeed/retry"
	"github.com/poiesic/jobfeed/storage"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of candidates embedded per encoder call
	BatchSize int

	// ReportInterval is how often to report progress (number of candidates)
	ReportInterval int

	// MaxAttempts is the number of encoder attempts per batch
	MaxAttempts int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// OnlyMissing skips candidates that already have a vector
	OnlyMissing bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxAttempts:    3,
		RetryDelay:     1 * time.Second,
	}
}

// Stats summarizes a run.
type Stats struct {
	Total    int
	Embedded int
	Skipped  int
	Elapsed  time.Duration
}

// Reembedder re-embeds every stored candidate.
type Reembedder struct {
	repo      storage.CandidateRepository
	config    *Config
	progress  io.Writer
	processor *BatchProcessor
	logger    *slog.Logger
}

// NewReembedder creates a new reembedder.
// progress receives human-readable output, typically os.Stderr.
func NewReembedder(repo storage.CandidateRepository, encoder ai.CandidateEncoder, config *Config, progress io.Writer) *Reembedder {
	if config == nil {
		config = DefaultConfig()
	}
	policy := retry.Policy{MaxAttempts: config.MaxAttempts, BaseDelay: config.RetryDelay}

	return &Reembedder{
		repo:      repo,
		config:    config,
		progress:  progress,
		processor: NewBatchProcessor(repo, encoder, policy),
		logger:    slog.Default().With("component", "reembed"),
	}
}

// Run embeds all candidates, or only those without a vector when
// Config.OnlyMissing is set. A failed batch stops the run; batches already
// written keep their new vectors.
func (r *Reembedder) Run(ctx context.Context) (*Stats, error) {
	total, err := r.repo.CountCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count candidates: %w", err)
	}

	stats := &Stats{Total: total}
	if total == 0 {
		fmt.Fprintf(r.progress, "No candidates found (0 candidates)\n")
		return stats, nil
	}

	fmt.Fprintf(r.progress, "Starting reembedding of %d candidates (batch size: %d)\n",
		total, r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	for batch, err := range Batches(ctx, r.repo, r.config.BatchSize) {
		if err != nil {
			stats.Elapsed = tracker.Elapsed()
			return stats, err
		}
		pending := batch
		if r.config.OnlyMissing {
			pending = make([]*core.Candidate, 0, len(batch))
			for _, c := range batch {
				if len(c.Vector) == 0 {
					pending = append(pending, c)
				}
			}
		}

		if err := r.processor.Process(ctx, pending); err != nil {
			r.logger.Error("batch failed", "first", batch[0].Id, "size", len(pending), "err", err)
			stats.Elapsed = tracker.Elapsed()
			return stats, fmt.Errorf("failed to process batch: %w", err)
		}
		stats.Embedded += len(pending)
		stats.Skipped += len(batch) - len(pending)
		tracker.Record(len(pending), len(batch)-len(pending))
	}
	tracker.Finish()
	stats.Elapsed = tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reembedding complete. Embedded %d, skipped %d in %v\n",
		stats.Embedded, stats.Skipped, stats.Elapsed.Round(time.Millisecond))
	return stats, nil
}
