// Package llm provides a client for interacting with Large Language Models.
// 本服务只用它做一件事：为一个聚类的代表性分块生成简短的主题描述。
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"memobase-go/internal/config"
	"memobase-go/pkg/log"
)

// 代表性文本的截断长度与条数上限。
const (
	maxSamples     = 3
	maxSampleRunes = 200
)

// Client defines the interface for an LLM client.
type Client interface {
	// DescribeTopic 根据至多 3 段代表性文本生成 2-5 个词的主题短语。
	// 任何内部失败（超时、非 200、空响应）都返回空串，绝不向外抛错：
	// 描述生成不允许阻塞或破坏聚类本身。
	DescribeTopic(ctx context.Context, samples []string) string
}

type chatClient struct {
	cfg    config.LLMConfig
	client *http.Client
}

// NewClient creates a new LLM client based on the provider in the config.
func NewClient(cfg config.LLMConfig) Client {
	return &chatClient{
		cfg:    cfg,
		client: &http.Client{},
	}
}

// Message 表示一条角色消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Stream      bool      `json:"stream"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

const describeSystemPrompt = "Ты помощник, который определяет общую тему текстов. " +
	"Ответь одной короткой фразой из 2-5 слов без пояснений и кавычек."

// DescribeTopic 调用 chat 接口生成主题短语，失败时返回空串。
func (c *chatClient) DescribeTopic(ctx context.Context, samples []string) string {
	if len(samples) == 0 {
		return ""
	}
	if len(samples) > maxSamples {
		samples = samples[:maxSamples]
	}

	var sb strings.Builder
	sb.WriteString("Определи общую тему следующих фрагментов:\n")
	for i, s := range samples {
		runes := []rune(strings.TrimSpace(s))
		if len(runes) > maxSampleRunes {
			runes = runes[:maxSampleRunes]
		}
		sb.WriteString("\n")
		sb.WriteString(string(runes))
		if i < len(samples)-1 {
			sb.WriteString("\n---")
		}
	}

	reqBody := chatRequest{
		Model: c.cfg.Model,
		Messages: []Message{
			{Role: "system", Content: describeSystemPrompt},
			{Role: "user", Content: sb.String()},
		},
		Stream: false,
	}
	if c.cfg.Temperature > 0 {
		reqBody.Temperature = &c.cfg.Temperature
	}
	if c.cfg.MaxTokens > 0 {
		reqBody.MaxTokens = &c.cfg.MaxTokens
	}

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		log.Errorf("[LLMClient] 序列化请求失败: %v", err)
		return ""
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.BaseURL+"/chat/completions", bytes.NewReader(reqBytes))
	if err != nil {
		log.Errorf("[LLMClient] 构造请求失败: %v", err)
		return ""
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		log.Warnf("[LLMClient] 调用 LLM 失败, 放弃生成描述: %v", err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warnf("[LLMClient] LLM 返回非 200 状态码: %s", resp.Status)
		return ""
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		log.Warnf("[LLMClient] 解析 LLM 响应失败: %v", err)
		return ""
	}
	if len(chatResp.Choices) == 0 {
		return ""
	}

	phrase := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	phrase = strings.Trim(phrase, `"«»'.`)
	// 模型偶尔忽略长度约束，超长时截断兜底
	if runes := []rune(phrase); len(runes) > 60 {
		phrase = string(runes[:60])
	}
	return phrase
}
