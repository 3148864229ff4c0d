package embedclient

import (
	"context"
	"hash/fnv"
)

// MockClient is a deterministic Client for tests: the same text always
// embeds to the same vector, without any network call.
type MockClient struct {
	dimension int
}

func NewMockClient(dimension int) *MockClient {
	if dimension <= 0 {
		dimension = 8
	}
	return &MockClient{dimension: dimension}
}

func (m *MockClient) Dimension() int { return m.dimension }

func (m *MockClient) Close() error { return nil }

func (m *MockClient) Embed(_ context.Context, text string) ([]float32, error) {
	return normalize(deterministicVector(text, m.dimension)), nil
}

func (m *MockClient) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = normalize(deterministicVector(t, m.dimension))
	}
	return out, nil
}

func deterministicVector(text string, dim int) []float32 {
	v := make([]float32, dim)
	h := fnv.New64a()
	for i := 0; i < dim; i++ {
		h.Write([]byte{byte(i)})
		h.Write([]byte(text))
		sum := h.Sum64()
		v[i] = float32(sum%1000)/1000.0 - 0.5
	}
	return v
}
