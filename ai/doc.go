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


// Package ai provides abstractions for the embedding service used by jobfeed.
//
// The package defines the Embedder interface and two encoders built on it:
//
//   - ProfileEncoder: derives a profile's base vector from its declared attributes
//   - CandidateEncoder: embeds candidates during ingestion and reembedding
//
// # Implementation Packages
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// Public constructors (openai.NewProvider, openai.NewEmbedder) return
// interface types. Test constructors (mock.NewMockEmbedder) return concrete
// types so tests can inject behavior and inspect call counts.
//
// # Usage Example
//
//	provider, err := openai.NewProvider(ai.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	encoder := ai.NewTextEncoder(provider.Embedder())
//	vector, err := encoder.EncodeProfile(ctx, profile)
package ai
