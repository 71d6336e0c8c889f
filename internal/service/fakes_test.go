package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"memobase-go/internal/cluster"
	"memobase-go/internal/model"
	"memobase-go/pkg/embedding"
	"memobase-go/pkg/es"
)

// stubAxes 把文本按关键词映射到固定的向量轴上，让测试里的
// 向量化和召回结果完全可预测。
var stubAxes = [][]string{
	{"возврат", "вернуть"},
	{"оплат", "плат"},
	{"гарант"},
}

func stubVector(text string) []float32 {
	v := make([]float32, len(stubAxes)+1)
	t := strings.ToLower(text)
	hit := false
	for i, stems := range stubAxes {
		for _, stem := range stems {
			if strings.Contains(t, stem) {
				v[i] = 1
				hit = true
				break
			}
		}
	}
	if !hit {
		v[len(stubAxes)] = 1
	}
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range v {
		v[i] *= inv
	}
	return v
}

// stubEmbedder 是 embedding.Client 的确定性测试实现。
type stubEmbedder struct {
	lastMode embedding.Mode
	calls    int
	err      error
}

func (e *stubEmbedder) CreateEmbeddings(_ context.Context, texts []string, mode embedding.Mode) ([][]float32, error) {
	e.lastMode = mode
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	if len(texts) == 0 {
		return nil, fmt.Errorf("embedding input must not be empty")
	}
	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		vectors[i] = stubVector(t)
	}
	return vectors, nil
}

// stubReranker 默认用 stub 向量的余弦相似度当精排分；
// scores 非空时按顺序返回固定分数。
type stubReranker struct {
	scores []float64
	calls  int
	err    error
}

func (r *stubReranker) Score(_ context.Context, query string, documents []string) ([]float64, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	if r.scores != nil {
		out := make([]float64, len(documents))
		copy(out, r.scores)
		return out, nil
	}
	qv := stubVector(query)
	out := make([]float64, len(documents))
	for i, d := range documents {
		out[i] = cluster.Cosine(qv, stubVector(d))
	}
	return out, nil
}

// stubDescriber 是 llm.Client 的测试实现。
type stubDescriber struct {
	topic string
	calls int
}

func (d *stubDescriber) DescribeTopic(_ context.Context, _ []string) string {
	d.calls++
	return d.topic
}

// fakeDocumentRepo 是 repository.DocumentRepository 的内存实现。
type fakeDocumentRepo struct {
	docs      []model.Document
	createErr error
}

func (r *fakeDocumentRepo) Create(doc *model.Document) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.docs = append(r.docs, *doc)
	return nil
}

func (r *fakeDocumentRepo) FindByUserAndHash(userID uint, contentHash string) (*model.Document, error) {
	for i := range r.docs {
		if r.docs[i].UserID == userID && r.docs[i].ContentHash == contentHash {
			doc := r.docs[i]
			return &doc, nil
		}
	}
	return nil, nil
}

func (r *fakeDocumentRepo) FindByContentIDs(userID uint, contentIDs []int64) ([]model.Document, error) {
	wanted := make(map[int64]bool, len(contentIDs))
	for _, id := range contentIDs {
		wanted[id] = true
	}
	var out []model.Document
	for _, d := range r.docs {
		if d.UserID == userID && wanted[d.ContentID] {
			out = append(out, d)
		}
	}
	return out, nil
}

// fakeCentroidRepo 是 repository.CentroidRepository 的内存实现。
type fakeCentroidRepo struct {
	byUser     map[uint][]model.Centroid
	replaceErr error
}

func newFakeCentroidRepo() *fakeCentroidRepo {
	return &fakeCentroidRepo{byUser: make(map[uint][]model.Centroid)}
}

func (r *fakeCentroidRepo) GetByUser(_ context.Context, userID uint) ([]model.Centroid, error) {
	return r.byUser[userID], nil
}

func (r *fakeCentroidRepo) ReplaceForUser(_ context.Context, userID uint, centroids []model.Centroid) error {
	if r.replaceErr != nil {
		return r.replaceErr
	}
	r.byUser[userID] = centroids
	return nil
}

// fakeChunkIndex 是 repository.ChunkIndexRepository 的内存实现，
// SearchByVector 用余弦相似度模拟 knn。
type fakeChunkIndex struct {
	chunks   []model.EsChunk
	indexErr error
}

func (f *fakeChunkIndex) IndexChunks(_ context.Context, chunks []model.EsChunk) error {
	if f.indexErr != nil {
		return f.indexErr
	}
	f.chunks = append(f.chunks, chunks...)
	return nil
}

func (f *fakeChunkIndex) SearchByVector(_ context.Context, vector []float32, userID uint, clusterLabel *int, limit int) ([]es.ScoredChunk, error) {
	var out []es.ScoredChunk
	for _, c := range f.chunks {
		if c.UserID != userID {
			continue
		}
		if clusterLabel != nil && (c.ClusterLabel == nil || *c.ClusterLabel != *clusterLabel) {
			continue
		}
		out = append(out, es.ScoredChunk{Chunk: c, Score: cluster.Cosine(vector, c.Vector)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeChunkIndex) FetchUserChunks(_ context.Context, userID uint) ([]model.EsChunk, error) {
	var out []model.EsChunk
	for _, c := range f.chunks {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeChunkIndex) UpdateClusterLabels(_ context.Context, patches []es.ChunkLabelPatch) error {
	byID := make(map[string]es.ChunkLabelPatch, len(patches))
	for _, p := range patches {
		byID[p.ChunkID] = p
	}
	for i := range f.chunks {
		if p, ok := byID[f.chunks[i].ChunkID]; ok {
			label := p.Label
			f.chunks[i].ClusterLabel = &label
			f.chunks[i].ClusterDescription = p.Description
		}
	}
	return nil
}
