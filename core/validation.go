// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"fmt"
	"math"
)

// unitTolerance bounds how far a stored profile vector may drift from length 1.
const unitTolerance = 1e-4

// ValidateCandidate validates a Candidate according to domain rules.
//
// Validation rules:
//   - Id must not be nil
//   - CreatedAt must be set
//
// NOT validated:
//   - Vector (optional, absence is scored with a fallback)
//   - Tags, Seniority, Location (optional signals)
func ValidateCandidate(c *Candidate) error {
	if c == nil {
		return fmt.Errorf("%w: candidate is nil", ErrInvalidCandidate)
	}
	if c.Id == NilID {
		return fmt.Errorf("%w: %w", ErrInvalidCandidate, ErrMissingID)
	}
	if c.CreatedAt.IsZero() {
		return fmt.Errorf("%w: %w", ErrInvalidCandidate, ErrMissingCreatedAt)
	}
	return nil
}

// ValidateProfile validates a Profile according to domain rules.
// A present vector must have unit norm.
func ValidateProfile(p *Profile) error {
	if p == nil {
		return fmt.Errorf("%w: profile is nil", ErrInvalidProfile)
	}
	if p.Id == NilID {
		return fmt.Errorf("%w: %w", ErrInvalidProfile, ErrMissingID)
	}
	if len(p.Vector) > 0 && math.Abs(Norm(p.Vector)-1) > unitTolerance {
		return fmt.Errorf("%w: %w", ErrInvalidProfile, ErrNotUnitVector)
	}
	return nil
}
