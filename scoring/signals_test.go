package scoring

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 0}, b: []float32{1, 0}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "negative clamped", a: []float32{1, 0}, b: []float32{-1, 0}, want: 0},
		{name: "profile missing", a: nil, b: []float32{1, 0}, want: 0.6},
		{name: "candidate missing", a: []float32{1, 0}, b: nil, want: 0.6},
		{name: "dimension mismatch", a: []float32{1, 0}, b: []float32{1}, want: 0.6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Similarity(tt.a, tt.b, 0.6), 1e-9)
		})
	}
}

func TestSkillOverlap(t *testing.T) {
	tests := []struct {
		name   string
		skills []string
		tags   []string
		want   float64
	}{
		{name: "subset is full match", skills: []string{"python", "fastapi", "sql"}, tags: []string{"Python", "FastAPI"}, want: 1},
		{name: "half", skills: []string{"go"}, tags: []string{"go", "rust"}, want: 0.5},
		{name: "none", skills: []string{"java"}, tags: []string{"go"}, want: 0},
		{name: "no skills", skills: nil, tags: []string{"go"}, want: 0},
		{name: "no tags", skills: []string{"go"}, tags: nil, want: 0},
		{name: "duplicate tags counted once", skills: []string{"go"}, tags: []string{"go", "Go", "rust"}, want: 0.5},
		{name: "blank entries ignored", skills: []string{" go ", ""}, tags: []string{"go", " "}, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, SkillOverlap(tt.skills, tt.tags), 1e-9)
		})
	}
}

func TestSeniorityMatch(t *testing.T) {
	tests := []struct {
		profile, candidate string
		want               float64
	}{
		{"mid", "mid", 1},
		{"mid", "senior", 0.5},
		{"senior", "mid", 0.5},
		{"junior", "senior", 0},
		{"junior", "principal", 0},
		{"staff", "lead", 0.5},
		{"", "mid", 0.5},
		{"mid", "", 0.5},
		{"", "", 0.5},
		{"Senior", "SENIOR", 1},
		// Unrecognised levels sit at mid
		{"wizard", "mid", 1},
	}
	for _, tt := range tests {
		t.Run(tt.profile+"/"+tt.candidate, func(t *testing.T) {
			assert.Equal(t, tt.want, SeniorityMatch(tt.profile, tt.candidate))
		})
	}
}

func TestRecencyDecay(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 1.0, RecencyDecay(now, now))
	assert.InDelta(t, math.Exp(-1), RecencyDecay(now.Add(-72*time.Hour), now), 1e-12)
	assert.InDelta(t, 0.368, RecencyDecay(now.Add(-72*time.Hour), now), 1e-3)
	assert.Equal(t, 1.0, RecencyDecay(now.Add(time.Hour), now), "future postings cap at 1")

	prev := RecencyDecay(now, now)
	for h := 1; h <= 1000; h += 7 {
		v := RecencyDecay(now.Add(-time.Duration(h)*time.Hour), now)
		assert.Less(t, v, prev, "age %dh", h)
		assert.GreaterOrEqual(t, v, 0.0)
		prev = v
	}
}

func TestLocationMatch(t *testing.T) {
	tests := []struct {
		name     string
		prefs    []string
		location string
		remote   bool
		want     float64
	}{
		{name: "remote ignores mismatch", prefs: []string{"Berlin"}, location: "Tokyo", remote: true, want: 1},
		{name: "remote without prefs", prefs: nil, location: "", remote: true, want: 1},
		{name: "substring of location", prefs: []string{"london"}, location: "London, UK", want: 1},
		{name: "location inside preference", prefs: []string{"Greater London Area"}, location: "london", want: 1},
		{name: "mismatch", prefs: []string{"remote"}, location: "Berlin", want: 0},
		{name: "no prefs", prefs: nil, location: "Berlin", want: 0.5},
		{name: "no location", prefs: []string{"Berlin"}, location: "", want: 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LocationMatch(tt.prefs, tt.location, tt.remote))
		})
	}
}
