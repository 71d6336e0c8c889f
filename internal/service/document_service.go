// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
	"memobase-go/internal/cluster"
	"memobase-go/internal/config"
	"memobase-go/internal/model"
	"memobase-go/internal/repository"
	"memobase-go/internal/segment"
	"memobase-go/pkg/embedding"
	"memobase-go/pkg/log"
	"memobase-go/pkg/tasks"
)

// content_id 的取值范围：uuid 的整数值对 10^16 取模，保证落在 BIGINT 内。
var contentIDMod = new(big.Int).Exp(big.NewInt(10), big.NewInt(16), nil)

// EnqueueFunc 把重聚类任务投递到后台队列。生产环境接 Kafka，测试时替换。
type EnqueueFunc func(task tasks.ReclusterTask) error

// DocumentService 接口定义了文本入库与向量化相关的业务操作。
type DocumentService interface {
	Embed(ctx context.Context, req model.EmbedRequest) (*model.EmbedResponse, error)
	ChunkEmbed(ctx context.Context, req model.ChunkEmbedRequest) (*model.ChunkEmbedResponse, error)
	Ingest(ctx context.Context, req model.SaveContentRequest) (*model.IngestResult, error)
}

type documentService struct {
	docRepo         repository.DocumentRepository
	centroidRepo    repository.CentroidRepository
	chunkIndex      repository.ChunkIndexRepository
	embeddingClient embedding.Client
	chunkingCfg     config.ChunkingConfig
	enqueue         EnqueueFunc
}

// NewDocumentService 创建一个新的 DocumentService 实例。
func NewDocumentService(
	docRepo repository.DocumentRepository,
	centroidRepo repository.CentroidRepository,
	chunkIndex repository.ChunkIndexRepository,
	embeddingClient embedding.Client,
	chunkingCfg config.ChunkingConfig,
	enqueue EnqueueFunc,
) DocumentService {
	return &documentService{
		docRepo:         docRepo,
		centroidRepo:    centroidRepo,
		chunkIndex:      chunkIndex,
		embeddingClient: embeddingClient,
		chunkingCfg:     chunkingCfg,
		enqueue:         enqueue,
	}
}

// Embed 对一批文本做向量化，type 缺省按 query 处理。
func (s *documentService) Embed(ctx context.Context, req model.EmbedRequest) (*model.EmbedResponse, error) {
	mode := embedding.Mode(req.Type)
	vectors, err := s.embeddingClient.CreateEmbeddings(ctx, req.Texts, mode)
	if err != nil {
		return nil, fmt.Errorf("向量化失败: %w", err)
	}
	dim := 0
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}
	return &model.EmbedResponse{
		Embeddings: vectors,
		Dim:        dim,
		Type:       string(normalizeMode(mode)),
	}, nil
}

// ChunkEmbed 切块并向量化一段文本，不落库，供调用方自行处理结果。
func (s *documentService) ChunkEmbed(ctx context.Context, req model.ChunkEmbedRequest) (*model.ChunkEmbedResponse, error) {
	chunkSize, overlap := s.resolveChunkParams(req.ChunkSize, req.Overlap)
	chunks := segment.Segment(req.Text, chunkSize, overlap)
	if len(chunks) == 0 {
		return &model.ChunkEmbedResponse{
			Chunks:     []string{},
			Embeddings: [][]float32{},
			Positions:  [][2]int{},
		}, nil
	}

	texts := make([]string, len(chunks))
	positions := make([][2]int, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
		positions[i] = [2]int{c.Start, c.End}
	}

	vectors, err := s.embeddingClient.CreateEmbeddings(ctx, texts, embedding.Mode(req.EmbType))
	if err != nil {
		return nil, fmt.Errorf("分块向量化失败: %w", err)
	}
	return &model.ChunkEmbedResponse{
		Chunks:     texts,
		Embeddings: vectors,
		Positions:  positions,
		Dim:        len(vectors[0]),
	}, nil
}

// Ingest 执行完整的入库管道：去重、落库、切块、向量化、就近分配聚类、写索引。
// 文档先于分块落库，分块索引失败时文档保留，由后台重聚类兜底。
func (s *documentService) Ingest(ctx context.Context, req model.SaveContentRequest) (*model.IngestResult, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, fmt.Errorf("文本内容为空")
	}

	hashBytes := sha256.Sum256([]byte(text))
	contentHash := hex.EncodeToString(hashBytes[:])

	// 1. 去重：同一用户同一内容只入库一次
	existing, err := s.docRepo.FindByUserAndHash(req.UserID, contentHash)
	if err != nil {
		return nil, fmt.Errorf("去重查询失败: %w", err)
	}
	if existing != nil {
		log.Infof("[DocumentService] 内容命中去重, 跳过入库: UserID=%d, ContentID=%d", req.UserID, existing.ContentID)
		return &model.IngestResult{
			Status:     model.IngestStatusDuplicate,
			ContentID:  existing.ContentID,
			DocumentID: existing.DocumentID,
			UserID:     req.UserID,
			URL:        existing.URL,
			Header:     existing.Header,
		}, nil
	}

	contentID := newContentID()
	documentID := buildDocumentID(req.UserID, contentHash, req.Header, req.URL)

	// 2. 先保存原文，失败则整个入库中止
	doc := &model.Document{
		ContentID:   contentID,
		UserID:      req.UserID,
		ContentText: text,
		ContentHash: contentHash,
		URL:         req.URL,
		Header:      req.Header,
		DocumentID:  documentID,
	}
	if err := s.docRepo.Create(doc); err != nil {
		return nil, fmt.Errorf("保存文档失败: %w", err)
	}

	// 3. 切块并向量化
	chunkSize, overlap := s.resolveChunkParams(req.ChunkSize, req.Overlap)
	chunks := segment.Segment(text, chunkSize, overlap)
	if len(chunks) == 0 {
		log.Warnf("[DocumentService] 文本切块结果为空: ContentID=%d", contentID)
		return &model.IngestResult{
			Status:     model.IngestStatusCreated,
			ContentID:  contentID,
			DocumentID: documentID,
			UserID:     req.UserID,
			URL:        req.URL,
			Header:     req.Header,
		}, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := s.embeddingClient.CreateEmbeddings(ctx, texts, embedding.ModePassage)
	if err != nil {
		return nil, fmt.Errorf("分块向量化失败: %w", err)
	}

	// 4. 就近分配：有质心时给每个分块一个临时标签，等后台重聚类修正
	centroids, err := s.centroidRepo.GetByUser(ctx, req.UserID)
	if err != nil {
		log.Warnf("[DocumentService] 读取质心失败, 分块暂不分配聚类: %v", err)
		centroids = nil
	}
	centroidVectors := make(map[int][]float32, len(centroids))
	descriptions := make(map[int]string, len(centroids))
	for _, c := range centroids {
		centroidVectors[c.Label] = c.Vector
		descriptions[c.Label] = c.Description
	}

	esChunks := make([]model.EsChunk, len(chunks))
	for i, c := range chunks {
		esChunk := model.EsChunk{
			ChunkID:     fmt.Sprintf("%d_%d", contentID, i),
			ContentID:   contentID,
			DocumentID:  documentID,
			ChunkOrder:  i,
			TextContent: c.Text,
			ChunkStart:  c.Start,
			ChunkEnd:    c.End,
			Vector:      vectors[i],
			UserID:      req.UserID,
			URL:         req.URL,
			Header:      req.Header,
			ContentHash: contentHash,
		}
		if len(centroidVectors) > 0 {
			if label, ok := cluster.Assign(vectors[i], centroidVectors); ok {
				esChunk.ClusterLabel = &label
				esChunk.ClusterDescription = descriptions[label]
			}
		}
		esChunks[i] = esChunk
	}

	// 5. 写入向量索引
	if err := s.chunkIndex.IndexChunks(ctx, esChunks); err != nil {
		return nil, fmt.Errorf("写入分块索引失败: %w", err)
	}

	// 6. 投递重聚类任务，失败只记日志不影响入库结果
	if s.enqueue != nil {
		task := tasks.ReclusterTask{UserID: req.UserID, Reason: "ingest"}
		if err := s.enqueue(task); err != nil {
			log.Errorf("[DocumentService] 投递重聚类任务失败: UserID=%d, Error: %v", req.UserID, err)
		}
	}

	log.Infof("[DocumentService] 入库完成: UserID=%d, ContentID=%d, 分块数=%d", req.UserID, contentID, len(esChunks))
	return &model.IngestResult{
		Status:      model.IngestStatusCreated,
		ContentID:   contentID,
		DocumentID:  documentID,
		SavedChunks: len(esChunks),
		UserID:      req.UserID,
		URL:         req.URL,
		Header:      req.Header,
	}, nil
}

// resolveChunkParams 把调用方未指定的切块参数替换为配置默认值。
func (s *documentService) resolveChunkParams(chunkSize, overlap int) (int, int) {
	if chunkSize <= 0 {
		chunkSize = s.chunkingCfg.MaxChunkSize
	}
	if overlap <= 0 {
		overlap = s.chunkingCfg.Overlap
	}
	return chunkSize, overlap
}

func normalizeMode(mode embedding.Mode) embedding.Mode {
	if mode != embedding.ModeQuery && mode != embedding.ModePassage {
		return embedding.ModeQuery
	}
	return mode
}

// newContentID 生成一个 16 位十进制以内的随机内容 ID。
func newContentID() int64 {
	u := uuid.New()
	n := new(big.Int).SetBytes(u[:])
	return n.Mod(n, contentIDMod).Int64()
}

// buildDocumentID 由用户、内容哈希和来源信息派生出稳定的 16 字符文档 ID。
func buildDocumentID(userID uint, contentHash, header, url string) string {
	raw := fmt.Sprintf("%d_%s_%s_%s", userID, contentHash, header, url)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])[:16]
}
