// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"fmt"
	"sort"

	"memobase-go/internal/model"
	"memobase-go/internal/repository"
	"memobase-go/pkg/embedding"
	"memobase-go/pkg/log"
	"memobase-go/pkg/rerank"
)

// 两阶段检索参数：召回上限与精排分数门槛（严格大于才保留）。
const (
	retrieveCandidateLimit = 1000
	rerankScoreThreshold   = 0.15
	defaultSearchLimit     = 10
)

// SearchService 接口定义了两阶段检索操作。
type SearchService interface {
	Search(ctx context.Context, req model.SearchRequest) ([]model.SearchResponseDTO, error)
}

type searchService struct {
	docRepo         repository.DocumentRepository
	chunkIndex      repository.ChunkIndexRepository
	embeddingClient embedding.Client
	rerankClient    rerank.Client
}

// NewSearchService 创建一个新的 SearchService 实例。
func NewSearchService(
	docRepo repository.DocumentRepository,
	chunkIndex repository.ChunkIndexRepository,
	embeddingClient embedding.Client,
	rerankClient rerank.Client,
) SearchService {
	return &searchService{
		docRepo:         docRepo,
		chunkIndex:      chunkIndex,
		embeddingClient: embeddingClient,
		rerankClient:    rerankClient,
	}
}

// Search 执行两阶段检索：向量召回一批分块，交叉编码器精排后按文档聚合。
// 最终分数是文档内所有分块精排分的最大值，低于门槛的分块直接丢弃。
func (s *searchService) Search(ctx context.Context, req model.SearchRequest) ([]model.SearchResponseDTO, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	log.Infof("[SearchService] 开始两阶段检索, UserID=%d, query='%s', limit=%d", req.UserID, req.Query, limit)

	// 1. 向量化查询
	vectors, err := s.embeddingClient.CreateEmbeddings(ctx, []string{req.Query}, embedding.ModeQuery)
	if err != nil {
		return nil, fmt.Errorf("查询向量化失败: %w", err)
	}
	queryVector := vectors[0]

	// 2. 向量召回，可选按聚类标签过滤
	scored, err := s.chunkIndex.SearchByVector(ctx, queryVector, req.UserID, req.ClusterLabel, retrieveCandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("向量召回失败: %w", err)
	}
	if len(scored) == 0 {
		log.Infof("[SearchService] 召回结果为空, UserID=%d", req.UserID)
		return []model.SearchResponseDTO{}, nil
	}
	log.Infof("[SearchService] 召回 %d 个候选分块", len(scored))

	// 3. 精排
	documents := make([]string, len(scored))
	for i, sc := range scored {
		documents[i] = sc.Chunk.TextContent
	}
	rerankScores, err := s.rerankClient.Score(ctx, req.Query, documents)
	if err != nil {
		return nil, fmt.Errorf("精排失败: %w", err)
	}
	if len(rerankScores) != len(scored) {
		return nil, fmt.Errorf("精排结果数量不匹配: 期望 %d, 实际 %d", len(scored), len(rerankScores))
	}

	// 4. 过门槛的分块按 content_id 聚合取最大分
	bestByContent := make(map[int64]float64)
	for i, sc := range scored {
		score := rerankScores[i]
		if score > rerankScoreThreshold {
			if prev, ok := bestByContent[sc.Chunk.ContentID]; !ok || score > prev {
				bestByContent[sc.Chunk.ContentID] = score
			}
		}
	}
	if len(bestByContent) == 0 {
		log.Infof("[SearchService] 所有候选分块均未过精排门槛 %.2f", rerankScoreThreshold)
		return []model.SearchResponseDTO{}, nil
	}

	// 5. 回源文档正文
	contentIDs := make([]int64, 0, len(bestByContent))
	for id := range bestByContent {
		contentIDs = append(contentIDs, id)
	}
	docs, err := s.docRepo.FindByContentIDs(req.UserID, contentIDs)
	if err != nil {
		return nil, fmt.Errorf("回源文档失败: %w", err)
	}

	results := make([]model.SearchResponseDTO, 0, len(docs))
	for _, doc := range docs {
		results = append(results, model.SearchResponseDTO{
			ContentID:   doc.ContentID,
			DocumentID:  doc.DocumentID,
			URL:         doc.URL,
			Header:      doc.Header,
			ContentText: doc.ContentText,
			RerankScore: bestByContent[doc.ContentID],
		})
	}

	// 6. 按精排分降序，截断到 limit
	sort.Slice(results, func(i, j int) bool {
		return results[i].RerankScore > results[j].RerankScore
	})
	if len(results) > limit {
		results = results[:limit]
	}
	log.Infof("[SearchService] 检索完成, 返回 %d 个文档", len(results))
	return results, nil
}
