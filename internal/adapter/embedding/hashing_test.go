package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestHashingEmbedderIsDeterministicAndNormalized(t *testing.T) {
	h := NewHashingEmbedder(64)
	ctx := context.Background()

	a, err := EmbedOne(ctx, h, "Infinity pool with skyline views")
	require.NoError(t, err)
	b, err := EmbedOne(ctx, h, "infinity POOL with skyline views!")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.InDelta(t, 1.0, cosine(a, a), 1e-6)
}

func TestHashingEmbedderRanksOverlap(t *testing.T) {
	h := NewHashingEmbedder(256)
	ctx := context.Background()

	query, _ := EmbedOne(ctx, h, "pool amenities")
	near, _ := EmbedOne(ctx, h, "the pool and other amenities for families")
	far, _ := EmbedOne(ctx, h, "metro station commute times")
	assert.Greater(t, cosine(query, near), cosine(query, far))
}

func TestHashingEmbedderEmptyText(t *testing.T) {
	vectors, err := NewHashingEmbedder(8).EmbedStrings(context.Background(), []string{""})
	require.NoError(t, err)
	assert.Equal(t, make([]float64, 8), vectors[0])
}
