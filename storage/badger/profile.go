package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/jobfeed/core"
	"github.com/poiesic/jobfeed/storage"
)

// ProfileRepository implements storage.ProfileRepository for BadgerDB.
type ProfileRepository struct {
	backend *Backend
}

var _ storage.ProfileRepository = (*ProfileRepository)(nil)

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(backend *Backend) *ProfileRepository {
	return &ProfileRepository{backend: backend}
}

// Close is a no-op; the backend is closed by its owner.
func (r *ProfileRepository) Close() error {
	return nil
}

// SaveProfiles stores profiles, replacing any with the same ID.
func (r *ProfileRepository) SaveProfiles(ctx context.Context, profiles ...*core.Profile) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, profile := range profiles {
			if err := core.ValidateProfile(profile); err != nil {
				return err
			}
			profile.UpdatedAt = time.Now().UTC()
			if err := r.writeProfile(tx, profile); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetProfile retrieves a profile by ID.
func (r *ProfileRepository) GetProfile(ctx context.Context, id core.ID) (*core.Profile, error) {
	var result *core.Profile
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = r.readProfile(tx, id)
		return err
	}, false)
	return result, err
}

// UpdateProfileVector swaps the adaptive vector inside one transaction.
// A concurrent writer makes the commit fail with badger.ErrConflict; callers retry.
func (r *ProfileRepository) UpdateProfileVector(ctx context.Context, id core.ID, vector []float32, milestone int64) (bool, error) {
	updated := false
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		profile, err := r.readProfile(tx, id)
		if err != nil {
			return err
		}
		if profile.AdaptedAt >= milestone {
			return nil
		}

		profile.Vector = vector
		profile.AdaptedAt = milestone
		profile.UpdatedAt = time.Now().UTC()
		if err := core.ValidateProfile(profile); err != nil {
			return err
		}
		if err := r.writeProfile(tx, profile); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		updated = true
		return nil
	}, true)
	return updated, err
}

func (r *ProfileRepository) readProfile(tx *badger.Txn, id core.ID) (*core.Profile, error) {
	item, err := tx.Get(makeProfileKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	var profile *core.Profile
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		profile, unmarshalErr = storage.UnmarshalProfile(val)
		return unmarshalErr
	})
	return profile, err
}

func (r *ProfileRepository) writeProfile(tx *badger.Txn, profile *core.Profile) error {
	value, err := storage.MarshalProfile(profile)
	if err != nil {
		return err
	}
	return tx.Set(makeProfileKey(profile.Id), value)
}
