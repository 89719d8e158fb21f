package mock

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"

	"github.com/poiesic/jobfeed/core"
)

// DefaultDimensions is the size of the vectors produced by default.
const DefaultDimensions = 384

// MockEmbedder is a test double for ai.Embedder. Without injected behaviour it
// hashes word tokens into buckets, so texts sharing skills or titles land
// close together and unrelated texts do not.
type MockEmbedder struct {
	// EmbedTextFunc replaces EmbedText when set.
	EmbedTextFunc func(ctx context.Context, text string) ([]float32, error)

	// EmbedTextsFunc replaces EmbedTexts when set.
	EmbedTextsFunc func(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions overrides DefaultDimensions when positive.
	Dimensions int

	mu    sync.Mutex
	calls int
	texts []string
}

// NewMockEmbedder creates a mock embedder with default deterministic behavior.
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{}
}

// EmbedText returns DeterministicVector(text) unless EmbedTextFunc is set.
func (m *MockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	m.record(text)
	if m.EmbedTextFunc != nil {
		return m.EmbedTextFunc(ctx, text)
	}
	return DeterministicVector(text, m.dims()), nil
}

// EmbedTexts embeds each text unless EmbedTextsFunc is set.
func (m *MockEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	m.record(texts...)
	if m.EmbedTextsFunc != nil {
		return m.EmbedTextsFunc(ctx, texts)
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = DeterministicVector(text, m.dims())
	}
	return out, nil
}

func (m *MockEmbedder) record(texts ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.texts = append(m.texts, texts...)
}

// CallCount returns the number of EmbedText and EmbedTexts calls.
func (m *MockEmbedder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Texts returns every text embedded so far, in call order.
func (m *MockEmbedder) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

// Reset clears recorded calls and injected behavior.
func (m *MockEmbedder) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = 0
	m.texts = nil
	m.EmbedTextFunc = nil
	m.EmbedTextsFunc = nil
}

func (m *MockEmbedder) dims() int {
	if m.Dimensions > 0 {
		return m.Dimensions
	}
	return DefaultDimensions
}

// DeterministicVector maps text to a unit vector by feature hashing its
// lower-cased word tokens. Equal texts give equal vectors; the cosine of two
// vectors grows with the tokens their texts share. Text without tokens still
// gets a fixed non-zero vector.
func DeterministicVector(text string, dim int) []float32 {
	vector := make([]float32, dim)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	})
	if len(tokens) == 0 {
		tokens = []string{text}
	}

	for _, token := range tokens {
		h := fnv.New64a()
		h.Write([]byte(token))
		sum := h.Sum64()
		bucket := int(sum % uint64(dim))
		if sum>>63 == 1 {
			vector[bucket] -= 1
		} else {
			vector[bucket] += 1
		}
	}
	// A single colliding pair can cancel out
	if core.Norm(vector) == 0 {
		vector[0] = 1
	}
	return core.NormalizeVector(vector)
}
