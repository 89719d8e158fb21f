package badger

import (
	"context"
	"encoding/binary"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/jobfeed/core"
	"github.com/poiesic/jobfeed/storage"
)

// InteractionRepository implements storage.InteractionRepository for BadgerDB.
// Each profile has a counter key, a bounded history value holding the most
// recent vectors first, and one marker key per recorded candidate.
type InteractionRepository struct {
	backend *Backend
}

var _ storage.InteractionRepository = (*InteractionRepository)(nil)

// NewInteractionRepository creates a new InteractionRepository.
func NewInteractionRepository(backend *Backend) *InteractionRepository {
	return &InteractionRepository{backend: backend}
}

// Close is a no-op; the backend is closed by its owner.
func (r *InteractionRepository) Close() error {
	return nil
}

// RecordInteraction appends, trims and counts in a single transaction.
func (r *InteractionRepository) RecordInteraction(ctx context.Context, interaction *core.Interaction, window int) (core.RecordResult, error) {
	var result core.RecordResult
	if window < 1 {
		return result, storage.ErrInvalidQuery
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		count, err := r.readCount(tx, interaction.ProfileId)
		if err != nil {
			return err
		}

		seenKey := makeInteractionSeenKey(interaction.ProfileId, interaction.CandidateId)
		if _, err := tx.Get(seenKey); err == nil {
			result = core.RecordResult{Count: count, Duplicate: true}
			return nil
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if len(interaction.Vector) > 0 {
			history, err := r.readHistory(tx, interaction.ProfileId)
			if err != nil {
				return err
			}
			history = append([][]float32{interaction.Vector}, history...)
			if len(history) > window {
				history = history[:window]
			}
			value, err := storage.Marshal(history)
			if err != nil {
				return err
			}
			if err := tx.Set(makeInteractionHistoryKey(interaction.ProfileId), value); err != nil {
				return err
			}
		}

		count++
		countBuf := make([]byte, 8)
		binary.BigEndian.PutUint64(countBuf, uint64(count))
		if err := tx.Set(makeInteractionCountKey(interaction.ProfileId), countBuf); err != nil {
			return err
		}
		if err := tx.Set(seenKey, []byte{}); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		result = core.RecordResult{Count: count}
		return nil
	}, true)

	return result, err
}

// RecentVectors returns up to n history vectors, most recent first.
func (r *InteractionRepository) RecentVectors(ctx context.Context, profileID core.ID, n int) ([][]float32, error) {
	var history [][]float32
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		history, err = r.readHistory(tx, profileID)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if n >= 0 && len(history) > n {
		history = history[:n]
	}
	return history, nil
}

// InteractedCandidates scans the profile's marker keys.
func (r *InteractionRepository) InteractedCandidates(ctx context.Context, profileID core.ID) ([]core.ID, error) {
	var ids []core.ID
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialInteractionSeenKey(profileID)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			var id core.ID
			copy(id[:], key[len(key)-idSize:])
			ids = append(ids, id)
		}
		return nil
	}, false)
	return ids, err
}

// InteractionCount returns the profile's positive-interaction counter.
func (r *InteractionRepository) InteractionCount(ctx context.Context, profileID core.ID) (int64, error) {
	var count int64
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		count, err = r.readCount(tx, profileID)
		return err
	}, false)
	return count, err
}

func (r *InteractionRepository) readCount(tx *badger.Txn, profileID core.ID) (int64, error) {
	item, err := tx.Get(makeInteractionCountKey(profileID))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	var count int64
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return storage.ErrSerializationFailed
		}
		count = int64(binary.BigEndian.Uint64(val))
		return nil
	})
	return count, err
}

func (r *InteractionRepository) readHistory(tx *badger.Txn, profileID core.ID) ([][]float32, error) {
	item, err := tx.Get(makeInteractionHistoryKey(profileID))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var history [][]float32
	err = item.Value(func(val []byte) error {
		return storage.Unmarshal(val, &history)
	})
	return history, err
}
