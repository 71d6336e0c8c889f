package cluster

import (
	"sort"

	"gonum.org/v1/gonum/floats"
)

// densityScan 在降维后的点集上做基于密度的聚类，返回与输入对齐的标签，
// 噪声点标为 NoiseLabel。
//
// 邻域半径从数据本身估计：取每个点到第 nNeighbors 近邻的欧氏距离的
// 中位数。半径图中连通分量的成员数达到 minClusterSize 的成为一个簇，
// 不足的整体视为噪声。无随机性，结果对相同输入确定。
func densityScan(points [][]float64, nNeighbors, minClusterSize int) []int {
	n := len(points)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = NoiseLabel
	}
	if n == 0 {
		return labels
	}

	// 全量距离矩阵
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := floats.Distance(points[i], points[j], 2)
			dist[i][j] = d
			dist[j][i] = d
		}
	}

	eps := estimateEps(dist, nNeighbors)

	// 按 eps 邻接关系做连通分量展开
	currentLabel := 0
	for i := 0; i < n; i++ {
		if labels[i] != NoiseLabel {
			continue
		}

		component := []int{i}
		visited := map[int]bool{i: true}
		queue := []int{i}
		for len(queue) > 0 {
			p := queue[0]
			queue = queue[1:]
			for q := 0; q < n; q++ {
				if q == p || visited[q] || labels[q] != NoiseLabel {
					continue
				}
				if dist[p][q] <= eps {
					visited[q] = true
					component = append(component, q)
					queue = append(queue, q)
				}
			}
		}

		if len(component) < minClusterSize {
			continue // 孤立点保持噪声标签
		}
		for _, idx := range component {
			labels[idx] = currentLabel
		}
		currentLabel++
	}

	return labels
}

// estimateEps 取每个点到第 k 近邻距离的中位数作为邻域半径。
func estimateEps(dist [][]float64, k int) float64 {
	n := len(dist)
	if k > n-1 {
		k = n - 1
	}
	if k < 1 {
		k = 1
	}

	kth := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		row := make([]float64, 0, n-1)
		for j := 0; j < n; j++ {
			if j != i {
				row = append(row, dist[i][j])
			}
		}
		sort.Float64s(row)
		kth = append(kth, row[k-1])
	}

	sort.Float64s(kth)
	return kth[len(kth)/2]
}
