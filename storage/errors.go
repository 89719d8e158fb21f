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


package storage

import "errors"

// Errors shared by every backend. Backends wrap driver errors with these so
// callers can branch with errors.Is regardless of the store in use.
var (
	ErrNotFound            = errors.New("storage: not found")
	ErrStorageClosed       = errors.New("storage: closed")
	ErrInvalidQuery        = errors.New("storage: invalid query")
	ErrSerializationFailed = errors.New("storage: bad encoding")

	// ErrConflict reports a lost optimistic write. The operation may be retried.
	ErrConflict = errors.New("storage: write conflict")
)
