// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"fmt"
	"sort"

	"memobase-go/internal/cluster"
	"memobase-go/internal/model"
	"memobase-go/internal/repository"
	"memobase-go/pkg/es"
	"memobase-go/pkg/llm"
	"memobase-go/pkg/log"
)

// 每个聚类取前几个分块作为代表文本去生成描述。
const descriptionSampleCount = 3

// ClusterService 接口定义了聚类相关的业务操作。
type ClusterService interface {
	// Clusterize 对用户的全部分块做一次全量重聚类，替换旧的聚类结果。
	Clusterize(ctx context.Context, userID uint) (*model.ClusterizeResult, error)
	// ListClusters 返回用户当前的聚类标签和描述。
	ListClusters(ctx context.Context, userID uint) ([]model.ClusterInfo, error)
}

type clusterService struct {
	centroidRepo repository.CentroidRepository
	chunkIndex   repository.ChunkIndexRepository
	llmClient    llm.Client
}

// NewClusterService 创建一个新的 ClusterService 实例。
func NewClusterService(
	centroidRepo repository.CentroidRepository,
	chunkIndex repository.ChunkIndexRepository,
	llmClient llm.Client,
) ClusterService {
	return &clusterService{
		centroidRepo: centroidRepo,
		chunkIndex:   chunkIndex,
		llmClient:    llmClient,
	}
}

// Clusterize 全量重建用户的聚类：拉取所有分块、聚类、生成描述、
// 整组替换质心并回写分块标签。
// 与入库管道并发时可能漏掉正在写入的分块，下一次重聚类会补上。
func (s *clusterService) Clusterize(ctx context.Context, userID uint) (*model.ClusterizeResult, error) {
	log.Infof("[ClusterService] 开始全量重聚类: UserID=%d", userID)

	chunks, err := s.chunkIndex.FetchUserChunks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("拉取用户分块失败: %w", err)
	}
	if len(chunks) == 0 {
		// 没有分块时清掉残留质心，避免入库路径继续向旧聚类分配
		if err := s.centroidRepo.ReplaceForUser(ctx, userID, nil); err != nil {
			return nil, fmt.Errorf("清理质心失败: %w", err)
		}
		log.Infof("[ClusterService] 用户没有分块, 聚类结果已清空: UserID=%d", userID)
		return &model.ClusterizeResult{Status: "ok"}, nil
	}

	vectors := make([][]float32, len(chunks))
	for i, c := range chunks {
		vectors[i] = c.Vector
	}
	labels, centroidVectors := cluster.Cluster(vectors)

	// 每个聚类取前几个分块作为代表文本，让 LLM 起一个主题短语
	samplesByLabel := make(map[int][]string)
	for i, label := range labels {
		if len(samplesByLabel[label]) < descriptionSampleCount {
			samplesByLabel[label] = append(samplesByLabel[label], chunks[i].TextContent)
		}
	}
	descriptions := make(map[int]string, len(centroidVectors))
	for label := range centroidVectors {
		desc := s.llmClient.DescribeTopic(ctx, samplesByLabel[label])
		if desc == "" {
			desc = fmt.Sprintf("Cluster %d", label)
		}
		descriptions[label] = desc
	}

	centroids := make([]model.Centroid, 0, len(centroidVectors))
	for label, vec := range centroidVectors {
		centroids = append(centroids, model.Centroid{
			Label:       label,
			Vector:      vec,
			Description: descriptions[label],
		})
	}
	sort.Slice(centroids, func(i, j int) bool { return centroids[i].Label < centroids[j].Label })

	if err := s.centroidRepo.ReplaceForUser(ctx, userID, centroids); err != nil {
		return nil, fmt.Errorf("替换质心失败: %w", err)
	}

	patches := make([]es.ChunkLabelPatch, len(chunks))
	for i, c := range chunks {
		patches[i] = es.ChunkLabelPatch{
			ChunkID:     c.ChunkID,
			Label:       labels[i],
			Description: descriptions[labels[i]],
		}
	}
	if err := s.chunkIndex.UpdateClusterLabels(ctx, patches); err != nil {
		return nil, fmt.Errorf("回写分块标签失败: %w", err)
	}

	log.Infof("[ClusterService] 重聚类完成: UserID=%d, 聚类数=%d, 分块数=%d",
		userID, len(centroids), len(chunks))
	return &model.ClusterizeResult{
		Status:        "ok",
		ClustersFound: len(centroids),
		ChunksTotal:   len(chunks),
	}, nil
}

// ListClusters 返回用户当前全部聚类的标签和描述，按标签升序。
func (s *clusterService) ListClusters(ctx context.Context, userID uint) ([]model.ClusterInfo, error) {
	centroids, err := s.centroidRepo.GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("读取质心失败: %w", err)
	}
	infos := make([]model.ClusterInfo, len(centroids))
	for i, c := range centroids {
		infos[i] = model.ClusterInfo{Label: c.Label, Description: c.Description}
	}
	return infos, nil
}
