package scoring

import (
	"fmt"
	"math"
	"time"

	"github.com/poiesic/jobfeed/core"
)

const (
	// DefaultMissingSimilarity is used when a ranked candidate has no vector.
	DefaultMissingSimilarity = 0.60
	// DefaultBaselineSimilarity is used for every candidate of a recency pool.
	DefaultBaselineSimilarity = 0.65

	weightTolerance = 1e-9
)

// Scorer computes hybrid scores. It holds no mutable state and is safe for
// concurrent use.
type Scorer struct {
	weights            core.Weights
	missingSimilarity  float64
	baselineSimilarity float64
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithWeights replaces the default weights.
func WithWeights(w core.Weights) Option {
	return func(s *Scorer) {
		s.weights = w
	}
}

// WithMissingSimilarity sets the similarity used when a vector is missing.
func WithMissingSimilarity(v float64) Option {
	return func(s *Scorer) {
		s.missingSimilarity = v
	}
}

// WithBaselineSimilarity sets the flat similarity of recency pools.
func WithBaselineSimilarity(v float64) Option {
	return func(s *Scorer) {
		s.baselineSimilarity = v
	}
}

// NewScorer creates a scorer with the default weights and fallbacks.
func NewScorer(opts ...Option) (*Scorer, error) {
	s := &Scorer{
		weights:            core.DefaultWeights(),
		missingSimilarity:  DefaultMissingSimilarity,
		baselineSimilarity: DefaultBaselineSimilarity,
	}
	for _, opt := range opts {
		opt(s)
	}

	w := s.weights
	for _, v := range []float64{w.Similarity, w.SkillOverlap, w.Seniority, w.Recency, w.Location} {
		if v < 0 {
			return nil, ErrInvalidWeights
		}
	}
	if math.Abs(w.Sum()-1) > weightTolerance {
		return nil, fmt.Errorf("%w: sum is %v", ErrInvalidWeights, w.Sum())
	}
	for _, v := range []float64{s.missingSimilarity, s.baselineSimilarity} {
		if v < 0 || v > 1 {
			return nil, ErrInvalidFallback
		}
	}
	return s, nil
}

// Weights returns the weights in use.
func (s *Scorer) Weights() core.Weights {
	return s.weights
}

// Score ranks a candidate by all five signals.
func (s *Scorer) Score(profile *core.Profile, candidate *core.Candidate, now time.Time) core.ScoredCandidate {
	similarity := Similarity(profile.Vector, candidate.Vector, s.missingSimilarity)
	return s.score(profile, candidate, similarity, now, true)
}

// ScoreBaseline scores a candidate from a recency pool with the flat
// baseline similarity. The result is unranked.
func (s *Scorer) ScoreBaseline(profile *core.Profile, candidate *core.Candidate, now time.Time) core.ScoredCandidate {
	return s.score(profile, candidate, s.baselineSimilarity, now, false)
}

func (s *Scorer) score(profile *core.Profile, candidate *core.Candidate, similarity float64, now time.Time, ranked bool) core.ScoredCandidate {
	components := core.Components{
		Similarity:   clamp(similarity),
		SkillOverlap: SkillOverlap(profile.Skills, candidate.Tags),
		Seniority:    SeniorityMatch(profile.Seniority, candidate.Seniority),
		Recency:      RecencyDecay(candidate.CreatedAt, now),
		Location:     LocationMatch(profile.PreferredLocations, candidate.Location, candidate.Remote),
	}
	return core.ScoredCandidate{
		Candidate:  candidate,
		Score:      clamp(s.weights.Apply(components)),
		Components: components,
		Weights:    s.weights,
		Ranked:     ranked,
	}
}
