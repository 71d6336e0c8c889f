package cluster

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// reduceDimensions 把高维分块向量投影到 nComponents 维的低维空间，
// 供密度聚类使用。先对每行做 L2 归一化（归一化后的欧氏距离与余弦
// 距离单调等价），再做主成分投影。结果是确定性的。
func reduceDimensions(vectors [][]float32, nComponents int) ([][]float64, error) {
	n := len(vectors)
	if n == 0 {
		return nil, errors.New("降维输入为空")
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil, errors.New("降维输入向量维度为零")
	}

	data := make([]float64, 0, n*dim)
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("向量维度不一致: 第 %d 个为 %d, 期望 %d", i, len(v), dim)
		}
		norm := 0.0
		for _, x := range v {
			norm += float64(x) * float64(x)
		}
		scale := 1.0
		if norm > 0 {
			scale = 1.0 / math.Sqrt(norm)
		}
		for _, x := range v {
			data = append(data, float64(x)*scale)
		}
	}
	x := mat.NewDense(n, dim, data)

	var pc stat.PC
	if ok := pc.PrincipalComponents(x, nil); !ok {
		return nil, errors.New("主成分分解失败")
	}
	var components mat.Dense
	pc.VectorsTo(&components)

	_, available := components.Dims()
	k := nComponents
	if k > available {
		k = available
	}
	if k < 1 {
		k = 1
	}

	// 按列均值中心化后投影到前 k 个主成分
	means := make([]float64, dim)
	for j := 0; j < dim; j++ {
		col := mat.Col(nil, j, x)
		means[j] = stat.Mean(col, nil)
	}
	centered := mat.NewDense(n, dim, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < dim; j++ {
			centered.Set(i, j, x.At(i, j)-means[j])
		}
	}

	var projected mat.Dense
	projected.Mul(centered, components.Slice(0, dim, 0, k))

	reduced := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, k)
		mat.Row(row, i, &projected)
		reduced[i] = row
	}
	return reduced, nil
}
