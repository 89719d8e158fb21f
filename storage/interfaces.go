package storage

import (
	"context"

	"github.com/poiesic/jobfeed/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// Close releases resources held by the repository.
	Close() error
}

// CandidateRepository provides access to candidate attributes and vectors.
// In production the data is owned by an external store; the write methods
// serve loading and re-embedding tools.
type CandidateRepository interface {
	Repository

	// AddCandidates stores candidates, replacing any with the same ID.
	// Candidates with the nil ID are assigned a content-derived ID.
	AddCandidates(ctx context.Context, candidates ...*core.Candidate) ([]*core.Candidate, error)

	// UpdateCandidates replaces existing candidates.
	// Returns ErrNotFound if any candidate doesn't exist.
	UpdateCandidates(ctx context.Context, candidates ...*core.Candidate) ([]*core.Candidate, error)

	// GetCandidate retrieves a single candidate by ID.
	// Returns ErrNotFound if the candidate doesn't exist.
	GetCandidate(ctx context.Context, id core.ID) (*core.Candidate, error)

	// GetCandidates retrieves candidates in the order of ids.
	// Missing IDs are skipped.
	GetCandidates(ctx context.Context, ids ...core.ID) ([]*core.Candidate, error)

	// RecentCandidates returns up to limit candidates allowed by filter,
	// newest first with ties broken by ID descending.
	RecentCandidates(ctx context.Context, filter Filter, limit int) ([]*core.Candidate, error)

	// ListCandidates returns up to limit candidates with IDs greater than after,
	// in ID order. Pass core.NilID to start from the beginning.
	ListCandidates(ctx context.Context, after core.ID, limit int) ([]*core.Candidate, error)

	// CountCandidates returns the number of stored candidates.
	CountCandidates(ctx context.Context) (int, error)
}

// ProfileRepository provides access to profiles.
type ProfileRepository interface {
	Repository

	// SaveProfiles stores profiles, replacing any with the same ID.
	SaveProfiles(ctx context.Context, profiles ...*core.Profile) error

	// GetProfile retrieves a profile by ID.
	// Returns ErrNotFound if the profile doesn't exist.
	GetProfile(ctx context.Context, id core.ID) (*core.Profile, error)

	// UpdateProfileVector replaces the adaptive vector of a profile in a single write,
	// provided milestone is greater than the one the stored vector was computed for.
	// Returns false without writing when the stored milestone is already at or past it.
	UpdateProfileVector(ctx context.Context, id core.ID, vector []float32, milestone int64) (bool, error)
}

// InteractionRepository stores positive-interaction history per profile.
type InteractionRepository interface {
	Repository

	// RecordInteraction appends the interaction's vector to the profile's history,
	// trims the history to window entries and increments the interaction counter.
	// Recording a candidate already recorded for the profile changes nothing and
	// reports Duplicate.
	RecordInteraction(ctx context.Context, interaction *core.Interaction, window int) (core.RecordResult, error)

	// RecentVectors returns up to n history vectors, most recent first.
	RecentVectors(ctx context.Context, profileID core.ID, n int) ([][]float32, error)

	// InteractedCandidates returns the IDs of every candidate recorded for the profile.
	InteractedCandidates(ctx context.Context, profileID core.ID) ([]core.ID, error)

	// InteractionCount returns the profile's positive-interaction counter.
	InteractionCount(ctx context.Context, profileID core.ID) (int64, error)
}
