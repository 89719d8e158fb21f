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


// Package storage provides the storage abstraction layer for jobfeed.
//
// Repository interfaces decouple candidate, profile and interaction storage
// from the ranking logic so backends can be swapped:
//
//   - storage/badger: embedded store, also a brute-force similarity backend
//   - storage/pgvector: Postgres with an approximate nearest neighbour index
//   - storage/redis: interaction history
//
// Values are encoded as CBOR (see Marshal). Times keep nanosecond precision.
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
