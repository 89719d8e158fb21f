package core

import (
	"bytes"
	"math"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
	"github.com/google/uuid"
)

// ID is a unique identifier for candidates and profiles.
type ID = uuid.UUID

// NilID is the zero identifier.
var NilID = uuid.Nil

// NewID returns a random identifier.
func NewID() ID {
	return uuid.New()
}

// ParseID parses the canonical string form of an ID.
func ParseID(s string) (ID, error) {
	return uuid.Parse(s)
}

// CompareIDs orders IDs by their raw bytes.
func CompareIDs(a, b ID) int {
	return bytes.Compare(a[:], b[:])
}

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// Identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(16, nil) // 16 bytes = 128 bits
	h.Write([]byte(text))
	var id ID
	copy(id[:], h.Sum(nil))
	// Stamp version/variant bits so the value renders as a name-based UUID.
	id[6] = (id[6] & 0x0f) | 0x50
	id[8] = (id[8] & 0x3f) | 0x80
	return id
}

// Candidate is a job posting that can be ranked against a profile.
// Attributes are owned by an external store and read-only here.
type Candidate struct {
	Id          ID
	Title       string
	Company     string
	Description string
	Tags        []string
	Seniority   string
	Location    string
	Remote      bool
	Active      bool
	CreatedAt   time.Time
	Vector      []float32 // Optional embedding
}

// Text returns the text representation used to embed a candidate:
// title, company, tags and the start of the description.
func (c *Candidate) Text() string {
	parts := make([]string, 0, 4)
	if c.Title != "" {
		parts = append(parts, c.Title)
	}
	if c.Company != "" {
		parts = append(parts, c.Company)
	}
	if len(c.Tags) > 0 {
		parts = append(parts, strings.Join(c.Tags, ", "))
	}
	if c.Description != "" {
		desc := c.Description
		if len(desc) > maxDescriptionChars {
			desc = desc[:maxDescriptionChars]
		}
		parts = append(parts, desc)
	}
	return strings.Join(parts, " | ")
}

const maxDescriptionChars = 500

// Profile is a job seeker. Vector is the adaptive embedding and the only
// field this module writes.
type Profile struct {
	Id                 ID
	Headline           string
	Skills             []string
	Seniority          string
	PreferredLocations []string
	Vector             []float32 // Unit norm when present
	AdaptedAt          int64     // Interaction milestone the vector was last recomputed for
	UpdatedAt          time.Time
}

// Text returns the declared attributes as a single string for base vector derivation.
// Empty when the profile declares nothing.
func (p *Profile) Text() string {
	parts := make([]string, 0, 4)
	if p.Headline != "" {
		parts = append(parts, p.Headline)
	}
	if len(p.Skills) > 0 {
		parts = append(parts, "Skills: "+strings.Join(p.Skills, ", "))
	}
	if p.Seniority != "" {
		parts = append(parts, "Seniority: "+p.Seniority)
	}
	if len(p.PreferredLocations) > 0 {
		parts = append(parts, "Locations: "+strings.Join(p.PreferredLocations, ", "))
	}
	return strings.Join(parts, " | ")
}

// Components is the per-signal breakdown of a score. Every field is in [0,1].
type Components struct {
	Similarity   float64 `json:"similarity"`
	SkillOverlap float64 `json:"skill_overlap"`
	Seniority    float64 `json:"seniority"`
	Recency      float64 `json:"recency"`
	Location     float64 `json:"location"`
}

// Weights holds the contribution of each component to the final score.
type Weights struct {
	Similarity   float64 `json:"similarity"`
	SkillOverlap float64 `json:"skill_overlap"`
	Seniority    float64 `json:"seniority"`
	Recency      float64 `json:"recency"`
	Location     float64 `json:"location"`
}

// DefaultWeights returns the fixed production weighting.
func DefaultWeights() Weights {
	return Weights{
		Similarity:   0.55,
		SkillOverlap: 0.20,
		Seniority:    0.10,
		Recency:      0.10,
		Location:     0.05,
	}
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.Similarity + w.SkillOverlap + w.Seniority + w.Recency + w.Location
}

// Apply returns the weighted sum of the components.
func (w Weights) Apply(c Components) float64 {
	return w.Similarity*c.Similarity +
		w.SkillOverlap*c.SkillOverlap +
		w.Seniority*c.Seniority +
		w.Recency*c.Recency +
		w.Location*c.Location
}

// ScoredCandidate is a request-scoped ranking result. It is never persisted
// or cached because recency depends on the time it was scored.
type ScoredCandidate struct {
	Candidate  *Candidate
	Score      float64
	Components Components
	Weights    Weights
	// Ranked is false when the candidate came from the recency fallback.
	// Unranked results order by creation time and ID only.
	Ranked bool
}

// Percent converts the score to an integer percentage for presentation.
func (s *ScoredCandidate) Percent() int {
	return int(math.Round(s.Score * 100))
}

// Interaction is a recorded positive interaction between a profile and a candidate.
type Interaction struct {
	ProfileId   ID
	CandidateId ID
	Vector      []float32 // Candidate vector at record time, may be empty
	At          time.Time
}

// RecordResult describes the state of a profile's interaction history after a record.
type RecordResult struct {
	Count     int64 // Positive interactions counted so far
	Duplicate bool  // The candidate had already been recorded for this profile
}
