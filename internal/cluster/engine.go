package cluster

import (
	"fmt"
	"sort"

	"memobase-go/pkg/log"
)

// 聚类策略的分支阈值与相似度常量。
const (
	// MergeThreshold 是贪心分组与两点合并的相似度阈值。
	MergeThreshold = 0.5
	// AssignThreshold 是把新分块归属到既有质心的最低相似度（严格大于）。
	AssignThreshold = 0.3
	// NoiseLabel 是密度聚类给无法归簇的点打的标签。
	NoiseLabel = -1
	// densityMinPoints 是走降维+密度聚类路径的最小样本数。
	densityMinPoints = 5
)

// Cluster 将一组分块向量划分为主题簇，返回与输入顺序对齐的标签序列
// 和 标签→质心 的映射。标签只在本次调用内有意义。
//
// 策略按样本数 n 分派：
//   - n = 0 / 1：空结果 / 单簇
//   - n = 2：相似度 > MergeThreshold 时合并，否则各自成簇
//   - 3 <= n < 5：单遍贪心分组（只与簇的种子点比较，顺序相关）
//   - n >= 5：降维后做密度聚类；全部为噪声或内部出错时
//     回退到对原始向量的贪心分组
//
// 本函数对任何有限输入都不返回错误。
func Cluster(vectors [][]float32) ([]int, map[int][]float32) {
	n := len(vectors)

	switch {
	case n == 0:
		return []int{}, map[int][]float32{}
	case n == 1:
		return []int{0}, map[int][]float32{0: vectors[0]}
	case n == 2:
		if Cosine(vectors[0], vectors[1]) > MergeThreshold {
			return []int{0, 0}, map[int][]float32{0: meanVector(vectors)}
		}
		return []int{0, 1}, map[int][]float32{0: vectors[0], 1: vectors[1]}
	case n < densityMinPoints:
		return greedyGrouping(vectors)
	}

	labels, centroids, err := densityClusterize(vectors)
	if err != nil {
		log.Warnf("[Cluster] 密度聚类失败, 回退到贪心分组: %v", err)
		return greedyGrouping(vectors)
	}
	return labels, centroids
}

// densityClusterize 执行 n>=5 的降维+密度聚类路径。
// 内部 panic 一律转换为 error，由调用方回退处理。
func densityClusterize(vectors [][]float32) (labels []int, centroids map[int][]float32, err error) {
	defer func() {
		if r := recover(); r != nil {
			labels, centroids = nil, nil
			err = fmt.Errorf("密度聚类内部异常: %v", r)
		}
	}()

	n := len(vectors)
	nNeighbors := min(15, max(2, n/2))
	nComponents := min(10, n-1)

	reduced, err := reduceDimensions(vectors, nComponents)
	if err != nil {
		return nil, nil, err
	}

	// 与原实现一致：该表达式实际恒为 2
	minClusterSize := min(2, max(2, n/3))
	raw := densityScan(reduced, nNeighbors, minClusterSize)

	// 全部为噪声 → 让调用方回退到贪心分组
	allNoise := true
	for _, l := range raw {
		if l != NoiseLabel {
			allNoise = false
			break
		}
	}
	if allNoise {
		return nil, nil, fmt.Errorf("密度聚类将全部 %d 个点判为噪声", n)
	}

	// 非噪声簇的质心取原始向量（而非降维向量）的均值
	centroids = make(map[int][]float32)
	members := make(map[int][][]float32)
	for i, l := range raw {
		if l == NoiseLabel {
			continue
		}
		members[l] = append(members[l], vectors[i])
	}
	maxLabel := NoiseLabel
	for l, vecs := range members {
		centroids[l] = meanVector(vecs)
		if l > maxLabel {
			maxLabel = l
		}
	}

	// 每个噪声点提升为独立的新簇，质心即其自身向量
	nextLabel := maxLabel + 1
	labels = make([]int, n)
	copy(labels, raw)
	for i, l := range raw {
		if l != NoiseLabel {
			continue
		}
		labels[i] = nextLabel
		centroids[nextLabel] = vectors[i]
		nextLabel++
	}

	return labels, centroids, nil
}

// greedyGrouping 对向量做单遍贪心分组：未分配的点开启新簇，
// 并吸收其后所有与该种子点相似度超过 MergeThreshold 的未分配点。
// 只与种子比较，不与簇内其他成员比较，因此结果依赖输入顺序。
func greedyGrouping(vectors [][]float32) ([]int, map[int][]float32) {
	n := len(vectors)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = NoiseLabel
	}
	centroids := make(map[int][]float32)

	currentLabel := 0
	for i := 0; i < n; i++ {
		if labels[i] != NoiseLabel {
			continue
		}
		labels[i] = currentLabel
		members := [][]float32{vectors[i]}

		for j := i + 1; j < n; j++ {
			if labels[j] == NoiseLabel && Cosine(vectors[i], vectors[j]) > MergeThreshold {
				labels[j] = currentLabel
				members = append(members, vectors[j])
			}
		}

		centroids[currentLabel] = meanVector(members)
		currentLabel++
	}

	return labels, centroids
}

// Assign 在用户既有的 标签→质心 映射中为一个新分块向量选择归属：
// 取余弦相似度最高的质心，且相似度必须严格大于 AssignThreshold，
// 否则视为不归属任何簇。该操作不会重算质心。
// 为保证相同输入的确定性，按标签升序遍历。
func Assign(vector []float32, centroids map[int][]float32) (int, bool) {
	if len(centroids) == 0 {
		return NoiseLabel, false
	}

	labels := make([]int, 0, len(centroids))
	for l := range centroids {
		labels = append(labels, l)
	}
	sort.Ints(labels)

	bestLabel := NoiseLabel
	bestSim := AssignThreshold
	for _, l := range labels {
		if sim := Cosine(vector, centroids[l]); sim > bestSim {
			bestSim = sim
			bestLabel = l
		}
	}
	return bestLabel, bestLabel != NoiseLabel
}

// meanVector 计算一组等长向量的均值向量。
func meanVector(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	dim := len(vectors[0])
	acc := make([]float64, dim)
	for _, v := range vectors {
		for i := range v {
			acc[i] += float64(v[i])
		}
	}
	mean := make([]float32, dim)
	for i := range acc {
		mean[i] = float32(acc[i] / float64(len(vectors)))
	}
	return mean
}
