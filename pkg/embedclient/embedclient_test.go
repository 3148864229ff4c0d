package embedclient

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockClient_EmbedIsDeterministic(t *testing.T) {
	ctx := context.Background()
	c := NewMockClient(16)

	v1, err := c.Embed(ctx, "quantum computing survey")
	require.NoError(t, err)
	v2, err := c.Embed(ctx, "quantum computing survey")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Len(t, v1, 16)
}

func TestMockClient_EmbedIsUnitLength(t *testing.T) {
	c := NewMockClient(8)
	v, err := c.Embed(context.Background(), "anything")
	require.NoError(t, err)

	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sumSq), 1e-5)
}

func TestMockClient_EmbedBatchPreservesOrder(t *testing.T) {
	ctx := context.Background()
	c := NewMockClient(4)

	texts := []string{"a", "b", "c"}
	batch, err := c.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.Len(t, batch, 3)

	for i, text := range texts {
		single, err := c.Embed(ctx, text)
		require.NoError(t, err)
		assert.Equal(t, single, batch[i])
	}
}

func TestMockClient_DistinctTextsYieldDistinctVectors(t *testing.T) {
	ctx := context.Background()
	c := NewMockClient(8)

	v1, _ := c.Embed(ctx, "topic one")
	v2, _ := c.Embed(ctx, "topic two")
	assert.NotEqual(t, v1, v2)
}
