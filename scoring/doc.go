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


// Package scoring computes the hybrid match score of a candidate for a profile.
//
// Five signals are combined with fixed weights:
//   - Embedding similarity (0.55): cosine of the two vectors, negative values clamped to 0
//   - Skill overlap (0.20): share of the candidate's tags the profile declares
//   - Seniority (0.10): 1 for the same rung, 0.5 for adjacent, 0 otherwise
//   - Recency (0.10): exp(-age_hours/72)
//   - Location (0.05): 1 for remote or a matching preference, 0 otherwise
//
// Missing inputs never fail; each signal has a numeric default. Scores stay
// float64 end to end. Convert with core.ScoredCandidate.Percent only when
// presenting a result.
package scoring
