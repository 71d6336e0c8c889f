package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClusterEmptyInput(t *testing.T) {
	labels, centroids := Cluster(nil)

	assert.Empty(t, labels)
	assert.Empty(t, centroids)
}

func TestClusterSingleVector(t *testing.T) {
	v := []float32{0.1, 0.2, 0.3}
	labels, centroids := Cluster([][]float32{v})

	assert.Equal(t, []int{0}, labels)
	require.Len(t, centroids, 1)
	assert.Equal(t, v, centroids[0])
}

func TestClusterTwoSimilarVectorsMerge(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{0.9, 0.1, 0}
	labels, centroids := Cluster([][]float32{a, b})

	assert.Equal(t, []int{0, 0}, labels)
	require.Len(t, centroids, 1)
	assert.InDelta(t, 0.95, centroids[0][0], 1e-6)
	assert.InDelta(t, 0.05, centroids[0][1], 1e-6)
}

func TestClusterTwoDissimilarVectorsSplit(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{0, 1, 0}
	labels, centroids := Cluster([][]float32{a, b})

	assert.Equal(t, []int{0, 1}, labels)
	require.Len(t, centroids, 2)
	assert.Equal(t, a, centroids[0])
	assert.Equal(t, b, centroids[1])
}

func TestClusterGreedyGroupingSmallSet(t *testing.T) {
	// 两个主题方向，每个方向两个向量
	vectors := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0.95, 0.05, 0},
		{0.05, 0.95, 0},
	}
	labels, centroids := Cluster(vectors)

	require.Len(t, labels, 4)
	assert.Equal(t, labels[0], labels[2])
	assert.Equal(t, labels[1], labels[3])
	assert.NotEqual(t, labels[0], labels[1])
	assert.Len(t, centroids, 2)
}

func TestClusterGreedyIsSeedOrderDependent(t *testing.T) {
	// 第二个点与种子不相似时自成一簇，即便它与后面的点相似
	vectors := [][]float32{
		{1, 0},
		{0, 1},
		{0.1, 0.99},
	}
	labels, _ := Cluster(vectors)

	assert.Equal(t, 0, labels[0])
	assert.Equal(t, 1, labels[1])
	assert.Equal(t, 1, labels[2])
}

func TestClusterDensityPathNeverPanics(t *testing.T) {
	// 全部相同
	identical := make([][]float32, 8)
	for i := range identical {
		identical[i] = []float32{0.5, 0.5, 0.5, 0.5}
	}
	labels, centroids := Cluster(identical)
	require.Len(t, labels, 8)
	assert.NotEmpty(t, centroids)

	// 全部正交
	orthogonal := make([][]float32, 6)
	for i := range orthogonal {
		v := make([]float32, 6)
		v[i] = 1
		orthogonal[i] = v
	}
	labels, centroids = Cluster(orthogonal)
	require.Len(t, labels, 6)
	assert.NotEmpty(t, centroids)

	// 含零向量
	withZero := [][]float32{
		{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 1, 0}, {0, 1, 1},
	}
	labels, centroids = Cluster(withZero)
	require.Len(t, labels, 6)
	assert.NotEmpty(t, centroids)
}

func TestClusterLabelsAlignedAndCentroidsComplete(t *testing.T) {
	vectors := [][]float32{
		{1, 0, 0}, {0.98, 0.01, 0}, {0.97, 0.02, 0},
		{0, 1, 0}, {0, 0.99, 0.01}, {0, 0.97, 0.02},
		{0, 0, 1},
	}
	labels, centroids := Cluster(vectors)

	require.Len(t, labels, len(vectors))
	// 每个出现过的标签都必须有质心，且没有噪声标签残留
	for _, l := range labels {
		assert.NotEqual(t, NoiseLabel, l)
		assert.Contains(t, centroids, l)
	}
}

func TestAssignPicksBestCentroidAboveThreshold(t *testing.T) {
	centroids := map[int][]float32{
		0: {1, 0, 0},
		1: {0, 1, 0},
	}

	label, ok := Assign([]float32{0.9, 0.1, 0}, centroids)
	require.True(t, ok)
	assert.Equal(t, 0, label)

	label, ok = Assign([]float32{0.05, 0.95, 0}, centroids)
	require.True(t, ok)
	assert.Equal(t, 1, label)
}

func TestAssignRejectsBelowThreshold(t *testing.T) {
	centroids := map[int][]float32{0: {1, 0, 0}}

	// 与质心正交 → 相似度 0，低于阈值
	_, ok := Assign([]float32{0, 1, 0}, centroids)
	assert.False(t, ok)

	// 相似度为负同样不归属
	_, ok = Assign([]float32{-1, 0, 0}, centroids)
	assert.False(t, ok)
}

func TestAssignEmptyCentroids(t *testing.T) {
	_, ok := Assign([]float32{1, 0}, nil)
	assert.False(t, ok)

	_, ok = Assign([]float32{1, 0}, map[int][]float32{})
	assert.False(t, ok)
}
