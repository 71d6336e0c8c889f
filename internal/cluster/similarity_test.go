package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineSelfSimilarity(t *testing.T) {
	v := []float32{0.3, -0.4, 0.5}
	assert.InDelta(t, 1.0, Cosine(v, v), 1e-9)
}

func TestCosineZeroVector(t *testing.T) {
	v := []float32{1, 2, 3}
	zero := []float32{0, 0, 0}

	assert.Equal(t, 0.0, Cosine(v, zero))
	assert.Equal(t, 0.0, Cosine(zero, v))
	assert.Equal(t, 0.0, Cosine(zero, zero))
}

func TestCosineSymmetry(t *testing.T) {
	a := []float32{0.1, 0.9, -0.2, 0.4}
	b := []float32{-0.5, 0.3, 0.8, 0.1}

	assert.Equal(t, Cosine(a, b), Cosine(b, a))
}

func TestCosineOrthogonalAndOpposite(t *testing.T) {
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-1, 0}), 1e-9)
}

func TestCosineMismatchedLengths(t *testing.T) {
	assert.Equal(t, 0.0, Cosine([]float32{1, 2}, []float32{1, 2, 3}))
	assert.Equal(t, 0.0, Cosine(nil, []float32{1}))
}
