package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/poiesic/jobfeed/core"
	"github.com/poiesic/jobfeed/storage"
)

const (
	// cancelCheckInterval is how many keys a scan visits between context checks.
	cancelCheckInterval = 256
)

// Backend wraps a BadgerDB instance and provides low-level operations.
type Backend struct {
	db     *badger.DB
	logger *slog.Logger
}

// slogAdapter routes badger's printf-style logging into slog.
type slogAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = slogAdapter{}

func (a slogAdapter) log(level slog.Level, format string, args ...any) {
	a.logger.Log(context.Background(), level, strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (a slogAdapter) Errorf(format string, args ...any)   { a.log(slog.LevelError, format, args...) }
func (a slogAdapter) Warningf(format string, args ...any) { a.log(slog.LevelWarn, format, args...) }
func (a slogAdapter) Infof(format string, args ...any)    { a.log(slog.LevelInfo, format, args...) }
func (a slogAdapter) Debugf(format string, args ...any)   { a.log(slog.LevelDebug, format, args...) }

// OpenBackend opens the candidate store under dir, creating the directory
// when missing. With inMemory set dir is ignored.
func OpenBackend(dir string, inMemory bool) (*Backend, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	if !inMemory {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		opts = badger.DefaultOptions(dir)
	}

	logger := slog.Default().With("component", "badger")
	opts.Logger = slogAdapter{logger: logger}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Backend{
		db:     db,
		logger: logger,
	}, nil
}

// Close closes the BadgerDB database.
func (b *Backend) Close() error {
	return b.db.Close()
}

// IsClosed returns true if the database is closed.
func (b *Backend) IsClosed() bool {
	return b.db.IsClosed()
}

// WithTx executes a function within a BadgerDB transaction.
// If isWrite is true, creates a read-write transaction.
// The transaction is automatically discarded if fn returns an error.
// Commit conflicts are reported as storage.ErrConflict.
func (b *Backend) WithTx(fn func(tx *badger.Txn) error, isWrite bool) error {
	if b.db.IsClosed() {
		return storage.ErrStorageClosed
	}
	tx := b.db.NewTransaction(isWrite)
	defer tx.Discard()
	if err := fn(tx); err != nil {
		if errors.Is(err, badger.ErrConflict) {
			return fmt.Errorf("%w: %w", storage.ErrConflict, err)
		}
		return err
	}
	return nil
}

// FindSimilar returns the IDs of up to limit candidates allowed by filter,
// ordered by cosine similarity to vector (highest first, ties by ID descending).
// Candidates still waiting for a vector follow the ranked ones, newest first.
// Every stored candidate is scanned.
func (b *Backend) FindSimilar(ctx context.Context, vector []float32, filter storage.Filter, limit int) ([]core.ID, error) {
	if limit <= 0 {
		return nil, nil
	}

	type hit struct {
		id        core.ID
		score     float64
		createdAt time.Time
	}
	var hits, unranked []hit

	err := b.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(candidatePrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		scanned := 0
		for iter.Rewind(); iter.Valid(); iter.Next() {
			// Honour deadlines on large scans
			scanned++
			if scanned%cancelCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}

			var candidate *core.Candidate
			err := iter.Item().Value(func(val []byte) error {
				var err error
				candidate, err = storage.UnmarshalCandidate(val)
				return err
			})
			if err != nil {
				return err
			}

			if !filter.Allows(candidate) {
				continue
			}
			if len(candidate.Vector) == 0 {
				unranked = append(unranked, hit{id: candidate.Id, createdAt: candidate.CreatedAt})
				continue
			}

			hits = append(hits, hit{id: candidate.Id, score: core.Cosine(vector, candidate.Vector)})
		}

		return ctx.Err()
	}, false)

	if err != nil {
		return nil, err
	}

	slices.SortFunc(hits, func(a, b hit) int {
		if a.score > b.score {
			return -1
		}
		if a.score < b.score {
			return 1
		}
		return core.CompareIDs(b.id, a.id)
	})
	if len(hits) < limit {
		slices.SortFunc(unranked, func(a, b hit) int {
			if c := b.createdAt.Compare(a.createdAt); c != 0 {
				return c
			}
			return core.CompareIDs(b.id, a.id)
		})
		hits = append(hits, unranked...)
	}

	if len(hits) > limit {
		hits = hits[:limit]
	}

	ids := make([]core.ID, len(hits))
	for i, h := range hits {
		ids[i] = h.id
	}
	return ids, nil
}
