// Package rerank provides a client for cross-encoder reranking models.
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"memobase-go/internal/config"
	"memobase-go/pkg/log"
)

// Client defines the interface for a reranking client.
type Client interface {
	// Score returns one relevance score per document for the given query,
	// order-preserving.
	Score(ctx context.Context, query string, documents []string) ([]float64, error)
}

type httpClient struct {
	cfg    config.RerankConfig
	client *http.Client
}

// NewClient creates a new rerank client for a Jina-compatible /rerank API.
func NewClient(cfg config.RerankConfig) Client {
	return &httpClient{
		cfg:    cfg,
		client: &http.Client{},
	}
}

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// Score calls the rerank API with (query, documents) pairs.
func (c *httpClient) Score(ctx context.Context, query string, documents []string) ([]float64, error) {
	if len(documents) == 0 {
		return []float64{}, nil
	}

	log.Infof("[RerankClient] 开始调用 Rerank API, model: %s, candidates: %d", c.cfg.Model, len(documents))
	reqBody := rerankRequest{
		Model:     c.cfg.Model,
		Query:     query,
		Documents: documents,
		TopN:      len(documents), // 需要每个候选的分数，不让服务端截断
	}

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.BaseURL+"/rerank", bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		log.Errorf("[RerankClient] 调用 Rerank API 失败, error: %v", err)
		return nil, fmt.Errorf("failed to call rerank api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Errorf("[RerankClient] Rerank API 返回非 200 状态码: %s", resp.Status)
		return nil, fmt.Errorf("rerank api returned non-200 status: %s", resp.Status)
	}

	var rerankResp rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&rerankResp); err != nil {
		log.Errorf("[RerankClient] 解析 Rerank API 响应失败, error: %v", err)
		return nil, fmt.Errorf("failed to decode rerank response: %w", err)
	}

	if len(rerankResp.Results) != len(documents) {
		log.Errorf("[RerankClient] Rerank API 返回分数数与候选不一致: %d != %d", len(rerankResp.Results), len(documents))
		return nil, fmt.Errorf("rerank score count mismatch: got %d for %d documents", len(rerankResp.Results), len(documents))
	}

	// 服务端按分数排序返回，这里按 index 还原为输入顺序
	scores := make([]float64, len(documents))
	for _, r := range rerankResp.Results {
		if r.Index < 0 || r.Index >= len(documents) {
			return nil, fmt.Errorf("rerank returned out-of-range index %d", r.Index)
		}
		scores[r.Index] = r.RelevanceScore
	}

	log.Infof("[RerankClient] 成功获取 %d 个相关性分数", len(scores))
	return scores, nil
}
