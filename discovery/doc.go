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


// Package discovery is the caller-facing API of the ranking engine.
//
// A discover request loads the profile and the candidates it has already
// responded to, retrieves a candidate pool, scores every candidate and cuts
// one page out of the result. Recording a positive interaction excludes the
// candidate from later pages and feeds the profile vector updater.
package discovery
