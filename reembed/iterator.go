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


package reembed

import (
	"context"
	"iter"

	"github.com/poiesic/jobfeed/core"
	"github.com/poiesic/jobfeed/storage"
)

// DefaultBatchSize is the page size used when none is given.
const DefaultBatchSize = 100

// Batches yields every stored candidate in ID order, size at a time.
// Each page starts after the last ID of the previous one, so candidates
// added mid-walk with higher IDs are still visited. A failed fetch or a
// cancelled context yields the error once and ends the sequence.
func Batches(ctx context.Context, repo storage.CandidateRepository, size int) iter.Seq2[[]*core.Candidate, error] {
	if size <= 0 {
		size = DefaultBatchSize
	}
	return func(yield func([]*core.Candidate, error) bool) {
		cursor := core.NilID
		for {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			page, err := repo.ListCandidates(ctx, cursor, size)
			if err != nil {
				yield(nil, err)
				return
			}
			if len(page) == 0 || !yield(page, nil) || len(page) < size {
				return
			}
			cursor = page[len(page)-1].Id
		}
	}
}
