package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineIdenticalVectors(t *testing.T) {
	v := []float64{0.5, 0.3, 0.2}
	assert.InDelta(t, 1.0, Cosine(v, v), 1e-9)
}

func TestCosineOppositeVectors(t *testing.T) {
	a := []float64{1, 0}
	b := []float64{-1, 0}
	assert.InDelta(t, -1.0, Cosine(a, b), 1e-9)
}

func TestCosineOrthogonalVectors(t *testing.T) {
	a := []float64{1, 0}
	b := []float64{0, 1}
	assert.InDelta(t, 0.0, Cosine(a, b), 1e-9)
}

func TestCosineZeroNormGuard(t *testing.T) {
	// 模为零的向量不产生除零，相似度按0处理
	a := []float64{0, 0, 0}
	b := []float64{1, 2, 3}
	assert.Equal(t, 0.0, Cosine(a, b))
	assert.Equal(t, 0.0, Cosine(b, a))
	assert.Equal(t, 0.0, Cosine(a, a))
}

func TestCosineDegenerateInputs(t *testing.T) {
	assert.Equal(t, 0.0, Cosine(nil, []float64{1}))
	assert.Equal(t, 0.0, Cosine([]float64{1}, nil))
	assert.Equal(t, 0.0, Cosine([]float64{1, 2}, []float64{1}))
}
