package scoring

import (
	"math/rand"
	"testing"
	"time"

	"github.com/poiesic/jobfeed/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func scenarioProfile() *core.Profile {
	return &core.Profile{
		Id:                 core.NewID(),
		Skills:             []string{"python", "fastapi"},
		Seniority:          "mid",
		PreferredLocations: []string{"remote"},
		Vector:             []float32{1, 0},
	}
}

func TestNewScorer_Validation(t *testing.T) {
	_, err := NewScorer()
	require.NoError(t, err)

	_, err = NewScorer(WithWeights(core.Weights{Similarity: 0.5}))
	assert.ErrorIs(t, err, ErrInvalidWeights)

	_, err = NewScorer(WithWeights(core.Weights{Similarity: 1.2, SkillOverlap: -0.2}))
	assert.ErrorIs(t, err, ErrInvalidWeights)

	_, err = NewScorer(WithMissingSimilarity(1.5))
	assert.ErrorIs(t, err, ErrInvalidFallback)
}

func TestScore_Scenario(t *testing.T) {
	scorer, err := NewScorer()
	require.NoError(t, err)
	profile := scenarioProfile()

	a := &core.Candidate{
		Id:        core.NewID(),
		Tags:      []string{"python", "fastapi"},
		Seniority: "mid",
		Remote:    true,
		CreatedAt: now,
		Vector:    []float32{1, 0},
	}
	b := &core.Candidate{
		Id:        core.NewID(),
		Tags:      []string{"java"},
		Seniority: "junior",
		Location:  "Berlin",
		CreatedAt: now.Add(-720 * time.Hour),
		Vector:    []float32{0, 1},
	}

	scoredA := scorer.Score(profile, a, now)
	assert.InDelta(t, 1.0, scoredA.Score, 1e-9)
	assert.Equal(t, 100, scoredA.Percent())
	assert.True(t, scoredA.Ranked)
	assert.Equal(t, core.DefaultWeights(), scoredA.Weights)

	scoredB := scorer.Score(profile, b, now)
	assert.Less(t, scoredB.Percent(), 10)
	assert.GreaterOrEqual(t, scoredB.Percent(), 1)
	assert.Equal(t, 0.5, scoredB.Components.Seniority)
	assert.Equal(t, 0.0, scoredB.Components.Location)
}

func TestScore_MissingInputsUseDefaults(t *testing.T) {
	scorer, err := NewScorer()
	require.NoError(t, err)

	scored := scorer.Score(&core.Profile{}, &core.Candidate{CreatedAt: now}, now)
	assert.Equal(t, core.Components{
		Similarity:   DefaultMissingSimilarity,
		SkillOverlap: 0,
		Seniority:    Neutral,
		Recency:      1,
		Location:     Neutral,
	}, scored.Components)
	assert.InDelta(t, 0.55*0.6+0.1*0.5+0.1+0.05*0.5, scored.Score, 1e-9)
}

func TestScoreBaseline(t *testing.T) {
	scorer, err := NewScorer()
	require.NoError(t, err)

	c := &core.Candidate{CreatedAt: now, Vector: []float32{0, 1}}
	scored := scorer.ScoreBaseline(scenarioProfile(), c, now)
	assert.False(t, scored.Ranked)
	assert.Equal(t, DefaultBaselineSimilarity, scored.Components.Similarity)
}

func TestScore_ComponentsInRange(t *testing.T) {
	scorer, err := NewScorer()
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(7))

	levels := []string{"", "junior", "mid", "senior", "lead", "staff", "principal", "unknown"}
	words := []string{"go", "python", "java", "rust", "sql", "remote", "berlin", "london"}
	pick := func() []string {
		var out []string
		for _, w := range words {
			if rng.Intn(3) == 0 {
				out = append(out, w)
			}
		}
		return out
	}
	vector := func() []float32 {
		if rng.Intn(4) == 0 {
			return nil
		}
		v := make([]float32, 4)
		for i := range v {
			v[i] = rng.Float32()*2 - 1
		}
		return v
	}

	for i := 0; i < 500; i++ {
		profile := &core.Profile{
			Skills:             pick(),
			Seniority:          levels[rng.Intn(len(levels))],
			PreferredLocations: pick(),
			Vector:             vector(),
		}
		candidate := &core.Candidate{
			Tags:      pick(),
			Seniority: levels[rng.Intn(len(levels))],
			Location:  words[rng.Intn(len(words))],
			Remote:    rng.Intn(2) == 0,
			CreatedAt: now.Add(time.Duration(rng.Intn(2000)-100) * time.Hour),
			Vector:    vector(),
		}

		scored := scorer.Score(profile, candidate, now)
		c := scored.Components
		for _, v := range []float64{c.Similarity, c.SkillOverlap, c.Seniority, c.Recency, c.Location, scored.Score} {
			require.GreaterOrEqual(t, v, 0.0)
			require.LessOrEqual(t, v, 1.0)
		}
	}
}

func TestScore_Deterministic(t *testing.T) {
	scorer, err := NewScorer()
	require.NoError(t, err)
	profile := scenarioProfile()
	c := &core.Candidate{Tags: []string{"python"}, CreatedAt: now.Add(-5 * time.Hour), Vector: []float32{0.3, 0.7}}

	assert.Equal(t, scorer.Score(profile, c, now), scorer.Score(profile, c, now))
}
