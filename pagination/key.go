package pagination

import (
	"slices"
	"time"

	"github.com/poiesic/jobfeed/core"
)

// Key is the sort key of one item.
type Key struct {
	Score     float64
	HasScore  bool
	CreatedAt time.Time
	ID        core.ID
}

// KeyOf returns the sort key of a scored candidate. Unranked candidates
// have no score component.
func KeyOf(sc core.ScoredCandidate) Key {
	k := Key{CreatedAt: sc.Candidate.CreatedAt, ID: sc.Candidate.Id}
	if sc.Ranked {
		k.Score = sc.Score
		k.HasScore = true
	}
	return k
}

// Equal reports whether two keys denote the same position.
func (k Key) Equal(other Key) bool {
	if k.HasScore != other.HasScore || k.ID != other.ID || !k.CreatedAt.Equal(other.CreatedAt) {
		return false
	}
	return !k.HasScore || k.Score == other.Score
}

// Compare returns a negative number when a sorts before b, positive when it
// sorts after and zero for the same key. The score is compared only when
// both keys carry one.
func Compare(a, b Key) int {
	if a.HasScore && b.HasScore && a.Score != b.Score {
		if a.Score > b.Score {
			return -1
		}
		return 1
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	}
	return -core.CompareIDs(a.ID, b.ID)
}

// Sort orders scored candidates in place.
func Sort(items []core.ScoredCandidate) {
	slices.SortFunc(items, func(a, b core.ScoredCandidate) int {
		return Compare(KeyOf(a), KeyOf(b))
	})
}

// after reports whether an item lies strictly past the cursor key.
func after(item core.ScoredCandidate, cursor Key) bool {
	return Compare(KeyOf(item), cursor) > 0
}
