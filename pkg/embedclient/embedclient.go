// Package embedclient provides the embedding-provider contract used to
// store and retrieve vectors across the episodic, semantic, and
// procedural memory tiers.
package embedclient

import (
	"context"
	"math"
)

// Client embeds text into a fixed-dimension vector, used to populate
// and query the vector store.
type Client interface {
	// Embed returns a unit-length vector for text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch embeds multiple texts, preserving input order in the
	// result. The OpenAI client sends one request per BatchSize chunk.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the fixed vector size this client produces.
	Dimension() int

	Close() error
}

func normalize(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return v
	}
	norm := math.Sqrt(sumSq)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
