// Package mock provides test double implementations of AI service interfaces.
//
// # Usage in Tests
//
//	mockEmbedder := mock.NewMockEmbedder()
//	mockEmbedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
//	    return []float32{1, 0}, nil
//	}
//	count := mockEmbedder.CallCount()
//
// The default MockEmbedder feature-hashes word tokens into unit vectors, so
// a profile and the candidates sharing its skills rank as similar. It is also
// the engine's embedder when embedding.provider is "mock".
package mock
