package core

import "strings"

// Seniority is a rung on the experience ladder.
type Seniority int

const (
	SeniorityUnknown Seniority = iota
	SeniorityJunior
	SeniorityMid
	SenioritySenior
	SeniorityLead
	SeniorityStaff
	SeniorityPrincipal
)

var seniorityNames = map[string]Seniority{
	"junior":    SeniorityJunior,
	"mid":       SeniorityMid,
	"senior":    SenioritySenior,
	"lead":      SeniorityLead,
	"staff":     SeniorityStaff,
	"principal": SeniorityPrincipal,
}

// ParseSeniority maps a level name onto the ladder.
// Empty input is unknown; unrecognised names are treated as mid.
func ParseSeniority(s string) Seniority {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return SeniorityUnknown
	}
	if level, ok := seniorityNames[s]; ok {
		return level
	}
	return SeniorityMid
}

// String returns the level name.
func (s Seniority) String() string {
	for name, level := range seniorityNames {
		if level == s {
			return name
		}
	}
	return "unknown"
}

// Distance returns the number of rungs between two known levels.
func (s Seniority) Distance(other Seniority) int {
	d := int(s) - int(other)
	if d < 0 {
		return -d
	}
	return d
}
