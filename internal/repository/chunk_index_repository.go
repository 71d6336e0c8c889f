// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"context"

	"memobase-go/internal/model"
	"memobase-go/pkg/es"
)

// ChunkIndexRepository 接口定义了分块向量索引的读写操作。
// 服务层通过它访问 Elasticsearch，测试时用内存实现替换。
type ChunkIndexRepository interface {
	IndexChunks(ctx context.Context, chunks []model.EsChunk) error
	SearchByVector(ctx context.Context, vector []float32, userID uint, clusterLabel *int, limit int) ([]es.ScoredChunk, error)
	FetchUserChunks(ctx context.Context, userID uint) ([]model.EsChunk, error)
	UpdateClusterLabels(ctx context.Context, patches []es.ChunkLabelPatch) error
}

// chunkIndexRepository 是 ChunkIndexRepository 接口的 Elasticsearch 实现。
type chunkIndexRepository struct {
	indexName string
}

// NewChunkIndexRepository 创建一个新的 ChunkIndexRepository 实例。
func NewChunkIndexRepository(indexName string) ChunkIndexRepository {
	return &chunkIndexRepository{indexName: indexName}
}

// IndexChunks 批量写入分块文档。
func (r *chunkIndexRepository) IndexChunks(ctx context.Context, chunks []model.EsChunk) error {
	return es.BulkIndexChunks(ctx, r.indexName, chunks)
}

// SearchByVector 在用户范围内做 knn 检索，clusterLabel 非空时额外按聚类过滤。
func (r *chunkIndexRepository) SearchByVector(ctx context.Context, vector []float32, userID uint, clusterLabel *int, limit int) ([]es.ScoredChunk, error) {
	return es.SearchByVector(ctx, r.indexName, vector, userID, clusterLabel, limit)
}

// FetchUserChunks 拉取用户的全部分块，供重聚类使用。
func (r *chunkIndexRepository) FetchUserChunks(ctx context.Context, userID uint) ([]model.EsChunk, error) {
	scored, err := es.FetchUserChunks(ctx, r.indexName, userID)
	if err != nil {
		return nil, err
	}
	chunks := make([]model.EsChunk, len(scored))
	for i, s := range scored {
		chunks[i] = s.Chunk
	}
	return chunks, nil
}

// UpdateClusterLabels 批量回写分块的聚类标签和描述。
func (r *chunkIndexRepository) UpdateClusterLabels(ctx context.Context, patches []es.ChunkLabelPatch) error {
	return es.BulkUpdateClusterLabels(ctx, r.indexName, patches)
}
