package reembed

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker writes a single self-overwriting progress line counting
// embedded and skipped candidates.
type ProgressTracker struct {
	mu sync.Mutex

	writer   io.Writer
	total    int
	every    int
	embedded int
	skipped  int
	reported int
	start    time.Time
	started  bool
}

// NewProgressTracker creates a tracker that reports every `every` candidates.
func NewProgressTracker(writer io.Writer, total, every int) *ProgressTracker {
	return &ProgressTracker{
		writer: writer,
		total:  total,
		every:  max(every, 1),
	}
}

// Start resets the counters and the clock.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.start = time.Now()
	p.started = true
	p.embedded, p.skipped, p.reported = 0, 0, 0
}

// Record adds a finished batch. Nothing is written before Start.
func (p *ProgressTracker) Record(embedded, skipped int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}
	p.embedded += embedded
	p.skipped += skipped
	if done := p.done(); done-p.reported >= p.every {
		p.report(done)
		p.reported = done
	}
}

// Finish writes the final line and a newline.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}
	p.report(p.done())
	fmt.Fprintln(p.writer)
}

// Elapsed returns the time since Start, or 0 before it.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}
	return time.Since(p.start)
}

// done is capped at total; the store can grow during a run.
func (p *ProgressTracker) done() int {
	return min(p.embedded+p.skipped, p.total)
}

func (p *ProgressTracker) report(done int) {
	rate := 0.0
	if secs := time.Since(p.start).Seconds(); secs > 0 {
		rate = float64(done) / secs
	}
	pct := 100.0
	if p.total > 0 {
		pct = float64(done) / float64(p.total) * 100
	}
	fmt.Fprintf(p.writer, "\rProgress: %d/%d (%.1f%%) embedded %d, skipped %d - %.1f candidates/s",
		done, p.total, pct, p.embedded, p.skipped, rate)
}
