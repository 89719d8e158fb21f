package discovery

import (
	"time"

	"github.com/poiesic/jobfeed/core"
)

// Item is one ranked candidate on a page.
type Item struct {
	CandidateId core.ID         `json:"candidate_id"`
	Title       string          `json:"title,omitempty"`
	Company     string          `json:"company,omitempty"`
	Score       float64         `json:"score"`
	Percent     int             `json:"percent"`
	Components  core.Components `json:"components"`
	Weights     core.Weights    `json:"weights"`
}

// Page is the result of a discover request.
type Page struct {
	Items      []Item    `json:"items"`
	NextCursor string    `json:"next_cursor,omitempty"`
	HasMore    bool      `json:"has_more"`
	Mode       string    `json:"mode"`
	Degraded   bool      `json:"degraded,omitempty"`
	ScoredAt   time.Time `json:"scored_at"`
}

// InteractionResult reports the effect of a positive interaction.
type InteractionResult struct {
	Count      int64 `json:"count"`
	Duplicate  bool  `json:"duplicate"`
	Recomputed bool  `json:"recomputed"`
	Scheduled  bool  `json:"scheduled"`
}

func newItem(sc core.ScoredCandidate) Item {
	return Item{
		CandidateId: sc.Candidate.Id,
		Title:       sc.Candidate.Title,
		Company:     sc.Candidate.Company,
		Score:       sc.Score,
		Percent:     sc.Percent(),
		Components:  sc.Components,
		Weights:     sc.Weights,
	}
}
