package badger

import (
	"encoding/binary"
	"time"

	"github.com/poiesic/jobfeed/core"
)

// Key prefixes for different data types
const (
	candidatePrefix     = "cand:"
	candidateTimePrefix = "candt:"
	profilePrefix       = "prof:"
	interactionCount    = "ixc:"
	interactionHistory  = "ixh:"
	interactionSeen     = "ixs:"
)

const idSize = len(core.ID{})

// makeCandidateKey generates a key for a candidate by ID.
// Format: prefix + id bytes, so keys iterate in ID order.
func makeCandidateKey(id core.ID) []byte {
	return makeIDKey(candidatePrefix, id)
}

// makeCandidateTimeKey generates a composite key for the recency index.
// Format: prefix:timestamp:id
// Iterating in reverse yields creation time descending, then ID descending.
func makeCandidateTimeKey(createdAt time.Time, id core.ID) []byte {
	prefixBytes := []byte(candidateTimePrefix)
	buf := make([]byte, len(prefixBytes)+8+idSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(createdAt.UnixNano()))
	offset += 8
	copy(buf[offset:], id[:])
	return buf
}

// candidateIDFromTimeKey extracts the candidate ID from a recency index key.
func candidateIDFromTimeKey(key []byte) core.ID {
	var id core.ID
	copy(id[:], key[len(key)-idSize:])
	return id
}

// makeProfileKey generates a key for a profile by ID.
func makeProfileKey(id core.ID) []byte {
	return makeIDKey(profilePrefix, id)
}

// makeInteractionCountKey generates the key of a profile's interaction counter.
func makeInteractionCountKey(profileID core.ID) []byte {
	return makeIDKey(interactionCount, profileID)
}

// makeInteractionHistoryKey generates the key of a profile's bounded vector history.
func makeInteractionHistoryKey(profileID core.ID) []byte {
	return makeIDKey(interactionHistory, profileID)
}

// makeInteractionSeenKey generates a composite key marking a recorded candidate.
// Format: prefix + profile id + candidate id
func makeInteractionSeenKey(profileID, candidateID core.ID) []byte {
	buf := makeIDKey(interactionSeen, profileID)
	return append(buf, candidateID[:]...)
}

// makePartialInteractionSeenKey generates the prefix of all seen keys for a profile.
func makePartialInteractionSeenKey(profileID core.ID) []byte {
	return makeIDKey(interactionSeen, profileID)
}

func makeIDKey(prefix string, id core.ID) []byte {
	buf := make([]byte, len(prefix), len(prefix)+idSize+idSize)
	copy(buf, prefix)
	return append(buf, id[:]...)
}
