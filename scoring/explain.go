package scoring

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/poiesic/jobfeed/core"
)

// Band classifies an overall score.
type Band string

const (
	BandExcellent Band = "excellent"
	BandGood      Band = "good"
	BandFair      Band = "fair"
	BandWeak      Band = "weak"
)

// BandFor returns the band of a score in [0,1].
func BandFor(score float64) Band {
	switch {
	case score >= 0.80:
		return BandExcellent
	case score >= 0.60:
		return BandGood
	case score >= 0.40:
		return BandFair
	default:
		return BandWeak
	}
}

// Factor explains one signal.
type Factor struct {
	Name         string  `json:"name"`
	Score        float64 `json:"score"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"`
	Detail       string  `json:"detail"`
}

// Explanation is a human-readable breakdown of a score.
type Explanation struct {
	CandidateId   core.ID  `json:"candidate_id"`
	Score         float64  `json:"score"`
	Percent       int      `json:"percent"`
	Band          Band     `json:"band"`
	Factors       []Factor `json:"factors"`
	MatchedSkills []string `json:"matched_skills"`
	MissingSkills []string `json:"missing_skills"`
	Summary       string   `json:"summary"`
}

// Explain scores a candidate and describes each signal. The numbers are the
// ones Score produces, so an explanation always agrees with the ranking.
func (s *Scorer) Explain(profile *core.Profile, candidate *core.Candidate, now time.Time) *Explanation {
	scored := s.Score(profile, candidate, now)
	c, w := scored.Components, scored.Weights

	matched, _ := matchSkills(profile.Skills, candidate.Tags)
	missing := missingSkills(profile.Skills, candidate.Tags)

	factors := []Factor{
		{Name: "similarity", Score: c.Similarity, Weight: w.Similarity, Detail: similarityDetail(profile, candidate, c.Similarity)},
		{Name: "skills", Score: c.SkillOverlap, Weight: w.SkillOverlap, Detail: skillDetail(profile, candidate, matched)},
		{Name: "seniority", Score: c.Seniority, Weight: w.Seniority, Detail: seniorityDetail(profile, candidate)},
		{Name: "recency", Score: c.Recency, Weight: w.Recency, Detail: recencyDetail(candidate, now)},
		{Name: "location", Score: c.Location, Weight: w.Location, Detail: locationDetail(profile, candidate, c.Location)},
	}
	for i := range factors {
		factors[i].Contribution = factors[i].Score * factors[i].Weight
	}

	band := BandFor(scored.Score)
	return &Explanation{
		CandidateId:   candidate.Id,
		Score:         scored.Score,
		Percent:       scored.Percent(),
		Band:          band,
		Factors:       factors,
		MatchedSkills: matched,
		MissingSkills: missing,
		Summary:       summary(candidate, band, scored.Percent()),
	}
}

func missingSkills(skills, tags []string) []string {
	declared := normalizedSet(skills)
	var missing []string
	seen := map[string]struct{}{}
	for _, tag := range tags {
		key := normalize(tag)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if _, ok := declared[key]; !ok {
			missing = append(missing, strings.TrimSpace(tag))
		}
	}
	return missing
}

func similarityDetail(profile *core.Profile, candidate *core.Candidate, score float64) string {
	if len(profile.Vector) == 0 || len(candidate.Vector) == 0 {
		return fmt.Sprintf("Profile similarity unavailable, using baseline %d%%", percent(score))
	}
	return fmt.Sprintf("Profile similarity %d%%", percent(score))
}

func skillDetail(profile *core.Profile, candidate *core.Candidate, matched []string) string {
	if len(profile.Skills) == 0 || len(candidate.Tags) == 0 {
		return "Missing skill information"
	}
	if len(matched) == 0 {
		return "No declared skills match the role's tags"
	}
	return "Matching skills: " + strings.Join(matched, ", ")
}

func seniorityDetail(profile *core.Profile, candidate *core.Candidate) string {
	if strings.TrimSpace(profile.Seniority) == "" || strings.TrimSpace(candidate.Seniority) == "" {
		return "Missing seniority information"
	}
	return fmt.Sprintf("You: %s, role: %s", core.ParseSeniority(profile.Seniority), core.ParseSeniority(candidate.Seniority))
}

func recencyDetail(candidate *core.Candidate, now time.Time) string {
	days := int(math.Floor(now.Sub(candidate.CreatedAt).Hours() / 24))
	switch {
	case days <= 0:
		return "Posted today"
	case days == 1:
		return "Posted yesterday"
	default:
		return fmt.Sprintf("Posted %d days ago", days)
	}
}

func locationDetail(profile *core.Profile, candidate *core.Candidate, score float64) string {
	switch {
	case candidate.Remote:
		return "Remote position"
	case strings.TrimSpace(candidate.Location) == "":
		return "Location not specified"
	case len(profile.PreferredLocations) == 0:
		return "Location: " + candidate.Location
	case score == 1:
		return "Match: " + candidate.Location
	default:
		return fmt.Sprintf("Role: %s, you prefer: %s", candidate.Location, strings.Join(profile.PreferredLocations, ", "))
	}
}

func summary(candidate *core.Candidate, band Band, pct int) string {
	role := candidate.Title
	if role == "" {
		role = "this role"
	}
	if candidate.Company != "" {
		role += " at " + candidate.Company
	}
	return fmt.Sprintf("%s match (%d%%) for %s", strings.ToUpper(string(band[:1]))+string(band[1:]), pct, role)
}

func percent(v float64) int {
	return int(math.Round(v * 100))
}
