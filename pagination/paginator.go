package pagination

import (
	"time"

	"github.com/poiesic/jobfeed/core"
)

const (
	// DefaultMaxLimit caps the page size.
	DefaultMaxLimit = 50

	// DefaultEpochTTL is how long later pages keep scoring with the first page's time.
	DefaultEpochTTL = 15 * time.Minute
)

// Page is one page of results.
type Page struct {
	Items   []core.ScoredCandidate
	Next    *Cursor // nil on the last page
	HasMore bool
}

// Paginate sorts scored, drops everything up to and including the cursor
// key, and returns the first limit items. It inspects limit+1 items to set
// HasMore. scoredAt is the time the items were scored with and is carried
// in the next cursor.
func Paginate(scored []core.ScoredCandidate, cursor *Cursor, limit int, scoredAt time.Time) (*Page, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	items := make([]core.ScoredCandidate, 0, len(scored))
	for _, sc := range scored {
		if cursor != nil && !after(sc, cursor.Key) {
			continue
		}
		items = append(items, sc)
	}
	Sort(items)

	page := &Page{}
	if len(items) > limit {
		page.HasMore = true
		items = items[:limit]
	}
	page.Items = items

	if page.HasMore {
		served := len(items)
		if cursor != nil {
			served += cursor.Served
		}
		page.Next = &Cursor{
			Key:      KeyOf(items[len(items)-1]),
			ScoredAt: scoredAt,
			Served:   served,
		}
	}
	return page, nil
}

// Option configures a Paginator.
type Option func(*Paginator)

// WithMaxLimit sets the page size cap.
func WithMaxLimit(n int) Option {
	return func(p *Paginator) {
		if n > 0 {
			p.maxLimit = n
		}
	}
}

// WithEpochTTL sets the scoring epoch length. Zero disables epoch reuse.
func WithEpochTTL(ttl time.Duration) Option {
	return func(p *Paginator) {
		if ttl >= 0 {
			p.epochTTL = ttl
		}
	}
}

// Paginator holds the request-independent pagination settings.
type Paginator struct {
	codec    *Codec
	maxLimit int
	epochTTL time.Duration
}

// NewPaginator creates a paginator issuing tokens with codec.
func NewPaginator(codec *Codec, opts ...Option) *Paginator {
	p := &Paginator{
		codec:    codec,
		maxLimit: DefaultMaxLimit,
		epochTTL: DefaultEpochTTL,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Limit validates a requested page size and clamps it to the cap.
func (p *Paginator) Limit(requested int) (int, error) {
	if requested <= 0 {
		return 0, ErrInvalidLimit
	}
	return min(requested, p.maxLimit), nil
}

// Decode parses a token. The empty token means the first page.
func (p *Paginator) Decode(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}
	return p.codec.Decode(token)
}

// Encode returns the token for cursor, or "" for nil.
func (p *Paginator) Encode(cursor *Cursor) (string, error) {
	if cursor == nil {
		return "", nil
	}
	return p.codec.Encode(cursor)
}

// ScoringTime returns the time a page should be scored with. Within the
// epoch it is the cursor's scoring time, otherwise now.
func (p *Paginator) ScoringTime(cursor *Cursor, now time.Time) time.Time {
	if cursor == nil {
		return now
	}
	age := now.Sub(cursor.ScoredAt)
	if age >= 0 && age <= p.epochTTL {
		return cursor.ScoredAt
	}
	return now
}
