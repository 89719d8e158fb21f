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


// Package adaptation keeps a profile's vector in step with the candidates
// the profile responds to.
//
// Every positive interaction appends the candidate's vector to a bounded
// history and bumps a counter. At milestone counts the profile vector is
// recomputed as a blend of its current vector and the history mean. The
// recompute is best effort: failures leave the previous vector in place and
// never fail the interaction.
package adaptation
