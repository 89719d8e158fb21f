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


package badger

// Repositories groups the candidate, profile and interaction stores that
// share one Backend.
type Repositories struct {
	Backend      *Backend
	Candidates   *CandidateRepository
	Profiles     *ProfileRepository
	Interactions *InteractionRepository
}

// NewRepositories wires every repository to backend.
func NewRepositories(backend *Backend) *Repositories {
	return &Repositories{
		Backend:      backend,
		Candidates:   NewCandidateRepository(backend),
		Profiles:     NewProfileRepository(backend),
		Interactions: NewInteractionRepository(backend),
	}
}

// Open opens a backend at path and wires the repositories on top of it.
// A positive overfetch replaces DefaultOverfetchFactor.
func Open(path string, inMemory bool, overfetch int) (*Repositories, error) {
	backend, err := OpenBackend(path, inMemory)
	if err != nil {
		return nil, err
	}
	repos := NewRepositories(backend)
	repos.Candidates.WithOverfetchFactor(overfetch)
	return repos, nil
}

// NewMemoryRepositories is Open for tests. Callers close the result.
func NewMemoryRepositories() (*Repositories, error) {
	return Open("", true, 0)
}

// Close closes the shared backend.
func (r *Repositories) Close() error {
	return r.Backend.Close()
}
