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


// Package pagination turns a freshly scored candidate sequence into stable
// pages with opaque continuation tokens.
//
// Items are totally ordered by score descending, then creation time
// descending, then ID descending. Unranked items (recency pools, which all
// carry the same baseline score) skip the score field. A cursor records the
// key of the last item served and resumes strictly after it, so a frozen
// candidate set scored at a fixed time is paginated without skips or
// duplicates.
//
// Scores depend on the time they are computed at. The cursor carries that
// time, and within the scoring epoch later pages reuse it. Once the epoch has
// expired pages are scored against the current time and marginal candidates
// may drift across page boundaries.
package pagination
