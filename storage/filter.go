package storage

import "github.com/poiesic/jobfeed/core"

// Filter restricts which candidates may be returned. Inactive candidates
// are always rejected.
type Filter struct {
	exclude map[core.ID]struct{}
}

// NewFilter creates a filter excluding the given IDs.
func NewFilter(exclude ...core.ID) Filter {
	f := Filter{exclude: make(map[core.ID]struct{}, len(exclude))}
	for _, id := range exclude {
		f.exclude[id] = struct{}{}
	}
	return f
}

// Excludes reports whether id is in the exclusion set.
func (f Filter) Excludes(id core.ID) bool {
	_, ok := f.exclude[id]
	return ok
}

// Allows reports whether c is active and not excluded.
func (f Filter) Allows(c *core.Candidate) bool {
	return c != nil && c.Active && !f.Excludes(c.Id)
}

// Excluded returns the exclusion set as a slice in no particular order.
func (f Filter) Excluded() []core.ID {
	ids := make([]core.ID, 0, len(f.exclude))
	for id := range f.exclude {
		ids = append(ids, id)
	}
	return ids
}
