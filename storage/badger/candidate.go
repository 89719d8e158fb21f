package badger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/jobfeed/core"
	"github.com/poiesic/jobfeed/storage"
)

// DefaultOverfetchFactor is the pool multiplier for the brute-force scan.
// A linear scan ranks exactly, but the multiplier stays large so exact
// re-scoring has room to reorder by the other signals.
const DefaultOverfetchFactor = 25

// CandidateRepository implements storage.CandidateRepository for BadgerDB.
// It is also a similarity backend that scans every stored vector.
type CandidateRepository struct {
	backend         *Backend
	overfetchFactor int
}

var _ storage.CandidateRepository = (*CandidateRepository)(nil)

// NewCandidateRepository creates a new CandidateRepository.
func NewCandidateRepository(backend *Backend) *CandidateRepository {
	return &CandidateRepository{
		backend:         backend,
		overfetchFactor: DefaultOverfetchFactor,
	}
}

// WithOverfetchFactor overrides the pool multiplier reported to the retriever.
func (r *CandidateRepository) WithOverfetchFactor(factor int) *CandidateRepository {
	if factor > 0 {
		r.overfetchFactor = factor
	}
	return r
}

// Close is a no-op; the backend is closed by its owner.
func (r *CandidateRepository) Close() error {
	return nil
}

// Search returns up to k candidate IDs ordered by similarity to query.
func (r *CandidateRepository) Search(ctx context.Context, query []float32, filter storage.Filter, k int) ([]core.ID, error) {
	return r.backend.FindSimilar(ctx, query, filter, k)
}

// OverfetchFactor reports the pool multiplier for this backend.
func (r *CandidateRepository) OverfetchFactor() int {
	return r.overfetchFactor
}

// AddCandidates stores candidates, replacing any with the same ID.
func (r *CandidateRepository) AddCandidates(ctx context.Context, candidates ...*core.Candidate) ([]*core.Candidate, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, candidate := range candidates {
			if candidate.Id == core.NilID {
				candidate.Id = core.IDFromContent(candidate.Title + "\x00" + candidate.Company + "\x00" + candidate.Description)
			}
			if err := core.ValidateCandidate(candidate); err != nil {
				return err
			}

			old, err := r.readCandidate(tx, makeCandidateKey(candidate.Id))
			if err != nil {
				return err
			}
			if err := r.writeCandidate(tx, old, candidate); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return candidates, nil
}

// UpdateCandidates replaces existing candidates.
func (r *CandidateRepository) UpdateCandidates(ctx context.Context, candidates ...*core.Candidate) ([]*core.Candidate, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, candidate := range candidates {
			if err := core.ValidateCandidate(candidate); err != nil {
				return err
			}

			// Read old record to keep the recency index in step
			old, err := r.readCandidate(tx, makeCandidateKey(candidate.Id))
			if err != nil {
				return err
			}
			if old == nil {
				return storage.ErrNotFound
			}
			if err := r.writeCandidate(tx, old, candidate); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return candidates, nil
}

// GetCandidate retrieves a single candidate by ID.
func (r *CandidateRepository) GetCandidate(ctx context.Context, id core.ID) (*core.Candidate, error) {
	var result *core.Candidate
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = r.readCandidate(tx, makeCandidateKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetCandidates retrieves multiple candidates in the order of ids.
func (r *CandidateRepository) GetCandidates(ctx context.Context, ids ...core.ID) ([]*core.Candidate, error) {
	result := make([]*core.Candidate, 0, len(ids))
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			candidate, err := r.readCandidate(tx, makeCandidateKey(id))
			if err != nil {
				return err
			}
			if candidate != nil {
				result = append(result, candidate)
			}
		}
		return nil
	}, false)
	return result, err
}

// RecentCandidates walks the recency index newest first.
func (r *CandidateRepository) RecentCandidates(ctx context.Context, filter storage.Filter, limit int) ([]*core.Candidate, error) {
	if limit <= 0 {
		return nil, nil
	}

	var results []*core.Candidate
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		// Use reverse iterator to get most recent candidates first
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false

		iter := tx.NewIterator(opts)
		defer iter.Close()

		prefix := []byte(candidateTimePrefix)
		// Seek past the last possible key with this prefix
		seekKey := append(append([]byte{}, prefix...), 0xff)

		for iter.Seek(seekKey); iter.ValidForPrefix(prefix) && len(results) < limit; iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			id := candidateIDFromTimeKey(iter.Item().Key())
			if filter.Excludes(id) {
				continue
			}
			candidate, err := r.readCandidate(tx, makeCandidateKey(id))
			if err != nil {
				return err
			}
			if filter.Allows(candidate) {
				results = append(results, candidate)
			}
		}
		return nil
	}, false)

	return results, err
}

// ListCandidates returns candidates in ID order after the given ID.
func (r *CandidateRepository) ListCandidates(ctx context.Context, after core.ID, limit int) ([]*core.Candidate, error) {
	if limit <= 0 {
		return nil, nil
	}

	var results []*core.Candidate
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(candidatePrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		startKey := makeCandidateKey(after)
		for iter.Seek(startKey); iter.Valid() && len(results) < limit; iter.Next() {
			item := iter.Item()
			var candidate *core.Candidate
			err := item.Value(func(val []byte) error {
				var err error
				candidate, err = storage.UnmarshalCandidate(val)
				return err
			})
			if err != nil {
				return err
			}
			// Seek is inclusive
			if candidate.Id == after {
				continue
			}
			results = append(results, candidate)
		}
		return nil
	}, false)

	return results, err
}

// CountCandidates counts candidate keys without reading values.
func (r *CandidateRepository) CountCandidates(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(candidatePrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// Helper methods

// readCandidate reads a candidate from the transaction. Returns nil if absent.
func (r *CandidateRepository) readCandidate(tx *badger.Txn, key []byte) (*core.Candidate, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var candidate *core.Candidate
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		candidate, unmarshalErr = storage.UnmarshalCandidate(val)
		return unmarshalErr
	})
	return candidate, err
}

// writeCandidate stores the candidate and moves its recency index entry if needed.
func (r *CandidateRepository) writeCandidate(tx *badger.Txn, old, candidate *core.Candidate) error {
	value, err := storage.MarshalCandidate(candidate)
	if err != nil {
		return err
	}
	if err := tx.Set(makeCandidateKey(candidate.Id), value); err != nil {
		return err
	}

	if old != nil && !old.CreatedAt.Equal(candidate.CreatedAt) {
		if err := tx.Delete(makeCandidateTimeKey(old.CreatedAt, old.Id)); err != nil {
			return err
		}
	}
	return tx.Set(makeCandidateTimeKey(candidate.CreatedAt, candidate.Id), []byte{})
}
