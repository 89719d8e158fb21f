package scoring

import (
	"math"
	"strings"
	"time"

	"github.com/poiesic/jobfeed/core"
)

// RecencyHorizon is the decay constant of the recency signal.
const RecencyHorizon = 72 * time.Hour

// Neutral is the value of a signal whose inputs are missing.
const Neutral = 0.5

// Similarity returns the cosine of a and b clamped to [0,1], or fallback
// when either vector is missing.
func Similarity(a, b []float32, fallback float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return fallback
	}
	return clamp(core.Cosine(a, b))
}

// SkillOverlap returns |skills ∩ tags| / |tags|, case-insensitive.
// Returns 0 when either side is empty.
func SkillOverlap(skills, tags []string) float64 {
	matched, total := matchSkills(skills, tags)
	if total == 0 || len(matched) == 0 {
		return 0
	}
	return clamp(float64(len(matched)) / float64(total))
}

// matchSkills returns the tags (original spelling, deduplicated) the profile
// declares and the number of distinct tags.
func matchSkills(skills, tags []string) ([]string, int) {
	declared := normalizedSet(skills)
	if len(declared) == 0 {
		return nil, 0
	}

	seen := make(map[string]struct{}, len(tags))
	var matched []string
	for _, tag := range tags {
		key := normalize(tag)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if _, ok := declared[key]; ok {
			matched = append(matched, strings.TrimSpace(tag))
		}
	}
	return matched, len(seen)
}

// SeniorityMatch compares two level names on the ladder.
func SeniorityMatch(profileLevel, candidateLevel string) float64 {
	p := core.ParseSeniority(profileLevel)
	c := core.ParseSeniority(candidateLevel)
	if p == core.SeniorityUnknown || c == core.SeniorityUnknown {
		return Neutral
	}
	switch p.Distance(c) {
	case 0:
		return 1
	case 1:
		return 0.5
	default:
		return 0
	}
}

// RecencyDecay returns exp(-age/72h), capped at 1 for future creation times.
func RecencyDecay(createdAt, now time.Time) float64 {
	ageHours := now.Sub(createdAt).Hours()
	if ageHours <= 0 {
		return 1
	}
	return clamp(math.Exp(-ageHours / RecencyHorizon.Hours()))
}

// LocationMatch scores a candidate location against preferred locations.
// Remote candidates always match. A preference matches when either string
// contains the other, ignoring case.
func LocationMatch(preferred []string, location string, remote bool) float64 {
	if remote {
		return 1
	}
	loc := normalize(location)
	prefs := normalizedSet(preferred)
	if loc == "" || len(prefs) == 0 {
		return Neutral
	}
	for pref := range prefs {
		if strings.Contains(loc, pref) || strings.Contains(pref, loc) {
			return 1
		}
	}
	return 0
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func normalizedSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if key := normalize(v); key != "" {
			set[key] = struct{}{}
		}
	}
	return set
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
