// Package cluster 实现分块向量的主题聚类与质心归属判定。
package cluster

import "math"

// Cosine 计算两个向量的余弦相似度，结果落在 [-1, 1]。
// 任一向量模为零（或长度不一致）时返回 0.0，而不是报错。
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
