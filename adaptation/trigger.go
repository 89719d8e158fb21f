package adaptation

// Trigger decides at which interaction counts the vector is recomputed.
type Trigger struct {
	// First is the first milestone.
	First int64

	// Every is the interval after First. Zero or less fires only at First.
	Every int64
}

// DefaultTrigger fires at 5, 8, 11, 14, ...
func DefaultTrigger() Trigger {
	return Trigger{First: 5, Every: 3}
}

// Fires reports whether count is a milestone.
func (t Trigger) Fires(count int64) bool {
	if t.First <= 0 || count < t.First {
		return false
	}
	if count == t.First {
		return true
	}
	return t.Every > 0 && (count-t.First)%t.Every == 0
}
