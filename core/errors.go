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

import "errors"

// Domain validation errors
var (
	// ErrInvalidCandidate indicates a Candidate failed validation.
	ErrInvalidCandidate = errors.New("invalid candidate")

	// ErrInvalidProfile indicates a Profile failed validation.
	ErrInvalidProfile = errors.New("invalid profile")

	// ErrMissingID indicates an entity has the nil ID.
	ErrMissingID = errors.New("id cannot be nil")

	// ErrMissingCreatedAt indicates a candidate has no creation time.
	ErrMissingCreatedAt = errors.New("creation time cannot be zero")

	// ErrNotUnitVector indicates a profile vector is not unit length.
	ErrNotUnitVector = errors.New("vector must have unit norm")
)

// Vector errors
var (
	// ErrEmptyVectorSet indicates an aggregate was requested over no vectors.
	ErrEmptyVectorSet = errors.New("no vectors")

	// ErrDimensionMismatch indicates vectors of different lengths were combined.
	ErrDimensionMismatch = errors.New("vector dimensions do not match")
)
