// Package es 提供了与 Elasticsearch 交互的客户端功能。
// content_chunks 索引承担向量库角色：分块向量 + 检索过滤用的 payload 字段。
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"memobase-go/internal/config"
	"memobase-go/internal/model"
	"memobase-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

var ESClient *elasticsearch.Client

// ScoredChunk 是一次向量检索命中的分块及其 ES 相似度得分。
type ScoredChunk struct {
	Chunk model.EsChunk
	Score float64
}

// InitES 初始化 Elasticsearch 客户端并确保分块索引存在。
// dims 必须与 embedding 模型的输出维度一致。
func InitES(esCfg config.ElasticsearchConfig, dims int) error {
	cfg := elasticsearch.Config{
		Addresses: []string{esCfg.Addresses},
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return err
	}
	ESClient = client
	return createIndexIfNotExists(esCfg.IndexName, dims)
}

// createIndexIfNotExists 检查索引是否存在，如果不存在则创建它
func createIndexIfNotExists(indexName string, dims int) error {
	res, err := ESClient.Indices.Exists([]string{indexName})
	if err != nil {
		log.Errorf("检查索引是否存在时出错: %v", err)
		return err
	}
	if !res.IsError() && res.StatusCode == http.StatusOK {
		log.Infof("索引 '%s' 已存在", indexName)
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		log.Errorf("检查索引 '%s' 是否存在时收到意外的状态码: %d", indexName, res.StatusCode)
		return fmt.Errorf("检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
	}

	// 向量维度与 cosine 相似度由配置决定，payload 字段全部 keyword/数值化以支持过滤
	mapping := fmt.Sprintf(`{
		"mappings": {
			"properties": {
				"chunk_id": { "type": "keyword" },
				"content_id": { "type": "long" },
				"document_id": { "type": "keyword" },
				"chunk_order": { "type": "integer" },
				"text_content": { "type": "text" },
				"chunk_start": { "type": "integer" },
				"chunk_end": { "type": "integer" },
				"vector": {
					"type": "dense_vector",
					"dims": %d,
					"index": true,
					"similarity": "cosine"
				},
				"user_id": { "type": "long" },
				"url": { "type": "keyword" },
				"header": { "type": "keyword" },
				"content_hash": { "type": "keyword" },
				"cluster_label": { "type": "integer" },
				"cluster_description": { "type": "keyword" }
			}
		}
	}`, dims)

	res, err = ESClient.Indices.Create(
		indexName,
		ESClient.Indices.Create.WithBody(strings.NewReader(mapping)),
	)
	if err != nil {
		log.Errorf("创建索引 '%s' 失败: %v", indexName, err)
		return err
	}
	if res.IsError() {
		log.Errorf("创建索引 '%s' 时 Elasticsearch 返回错误: %s", indexName, res.String())
		return errors.New("创建索引时 Elasticsearch 返回错误")
	}

	log.Infof("索引 '%s' 创建成功", indexName)
	return nil
}

// BulkIndexChunks 通过 _bulk 接口批量写入分块记录，文档 ID 取 chunk_id。
func BulkIndexChunks(ctx context.Context, indexName string, chunks []model.EsChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, chunk := range chunks {
		meta := map[string]interface{}{
			"index": map[string]interface{}{"_id": chunk.ChunkID},
		}
		if err := json.NewEncoder(&buf).Encode(meta); err != nil {
			return err
		}
		if err := json.NewEncoder(&buf).Encode(chunk); err != nil {
			return err
		}
	}

	req := esapi.BulkRequest{
		Index:   indexName,
		Body:    &buf,
		Refresh: "true",
	}
	res, err := req.Do(ctx, ESClient)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("批量索引分块到 Elasticsearch 出错: %s", res.String())
		return errors.New("failed to bulk index chunks")
	}
	return nil
}

// SearchByVector 在用户范围内执行 knn 向量检索，返回按相似度排序的候选分块。
// clusterLabel 不为 nil 时附加聚类标签过滤。limit 是召回阶段的候选上限，
// 与最终返回给调用方的条数无关。
func SearchByVector(ctx context.Context, indexName string, vector []float32, userID uint, clusterLabel *int, limit int) ([]ScoredChunk, error) {
	filters := []map[string]interface{}{
		{"term": map[string]interface{}{"user_id": userID}},
	}
	if clusterLabel != nil {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{"cluster_label": *clusterLabel},
		})
	}

	esQuery := map[string]interface{}{
		"knn": map[string]interface{}{
			"field":          "vector",
			"query_vector":   vector,
			"k":              limit,
			"num_candidates": limit,
			"filter": map[string]interface{}{
				"bool": map[string]interface{}{"must": filters},
			},
		},
		"size": limit,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(esQuery); err != nil {
		return nil, fmt.Errorf("failed to encode es query: %w", err)
	}

	res, err := ESClient.Search(
		ESClient.Search.WithContext(ctx),
		ESClient.Search.WithIndex(indexName),
		ESClient.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("Elasticsearch 向量检索返回错误: %s", res.String())
		return nil, fmt.Errorf("elasticsearch returned an error: %s", res.String())
	}

	hits, err := decodeHits(res)
	if err != nil {
		return nil, err
	}
	return hits, nil
}

// FetchUserChunks 拉取一个用户的全部分块（含向量），供全量重聚类使用。
func FetchUserChunks(ctx context.Context, indexName string, userID uint) ([]ScoredChunk, error) {
	esQuery := map[string]interface{}{
		"query": map[string]interface{}{
			"term": map[string]interface{}{"user_id": userID},
		},
		"sort": []map[string]interface{}{
			{"chunk_id": map[string]interface{}{"order": "asc"}},
		},
		"size": 10000,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(esQuery); err != nil {
		return nil, fmt.Errorf("failed to encode es query: %w", err)
	}

	res, err := ESClient.Search(
		ESClient.Search.WithContext(ctx),
		ESClient.Search.WithIndex(indexName),
		ESClient.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("Elasticsearch 拉取用户分块返回错误: %s", res.String())
		return nil, fmt.Errorf("elasticsearch returned an error: %s", res.String())
	}

	return decodeHits(res)
}

// ChunkLabelPatch 描述对单个分块的聚类标签/描述的部分更新。
type ChunkLabelPatch struct {
	ChunkID     string
	Label       int
	Description string
}

// BulkUpdateClusterLabels 通过 _bulk 的 update 操作批量回写聚类标签。
// 重聚类完成后调用，按 chunk_id 精确更新，不触碰向量与正文。
func BulkUpdateClusterLabels(ctx context.Context, indexName string, patches []ChunkLabelPatch) error {
	if len(patches) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, p := range patches {
		meta := map[string]interface{}{
			"update": map[string]interface{}{"_id": p.ChunkID},
		}
		doc := map[string]interface{}{
			"doc": map[string]interface{}{
				"cluster_label":       p.Label,
				"cluster_description": p.Description,
			},
		}
		if err := json.NewEncoder(&buf).Encode(meta); err != nil {
			return err
		}
		if err := json.NewEncoder(&buf).Encode(doc); err != nil {
			return err
		}
	}

	req := esapi.BulkRequest{
		Index:   indexName,
		Body:    &buf,
		Refresh: "true",
	}
	res, err := req.Do(ctx, ESClient)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("批量更新聚类标签出错: %s", res.String())
		return errors.New("failed to bulk update cluster labels")
	}
	return nil
}

// decodeHits 解析搜索响应中的命中列表。
func decodeHits(res *esapi.Response) ([]ScoredChunk, error) {
	var esResponse struct {
		Hits struct {
			Hits []struct {
				Source model.EsChunk `json:"_source"`
				Score  float64       `json:"_score"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("failed to decode es response: %w", err)
	}

	results := make([]ScoredChunk, 0, len(esResponse.Hits.Hits))
	for _, hit := range esResponse.Hits.Hits {
		results = append(results, ScoredChunk{Chunk: hit.Source, Score: hit.Score})
	}
	return results, nil
}
