package model

// EmbedRequest 是 /embed 接口的请求体。
type EmbedRequest struct {
	Texts []string `json:"texts" binding:"required"`
	Type  string   `json:"type"` // query 或 passage，默认 query
}

// EmbedResponse 是 /embed 接口的响应体。
type EmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Dim        int         `json:"dim"`
	Type       string      `json:"type"`
}

// ChunkEmbedRequest 是 /chunk-embed 接口的请求体。
type ChunkEmbedRequest struct {
	Text      string `json:"text" binding:"required"`
	ChunkSize int    `json:"chunk_size"`
	Overlap   int    `json:"overlap"`
	EmbType   string `json:"emb_type"`
}

// ChunkEmbedResponse 是 /chunk-embed 接口的响应体。
type ChunkEmbedResponse struct {
	Chunks     []string    `json:"chunks"`
	Embeddings [][]float32 `json:"embeddings"`
	Positions  [][2]int    `json:"positions"`
	Dim        int         `json:"dim"`
}

// SaveContentRequest 是 /save-content 接口的请求体。
type SaveContentRequest struct {
	Text      string `json:"text" binding:"required"`
	UserID    uint   `json:"user_id"`
	ChunkSize int    `json:"chunk_size"`
	Overlap   int    `json:"overlap"`
	URL       string `json:"url"`
	Header    string `json:"header"`
}

// IngestStatus 标识一次入库的结果：新建或命中去重。
const (
	IngestStatusCreated   = "created"
	IngestStatusDuplicate = "duplicate"
)

// IngestResult 是入库管道的返回结果。
type IngestResult struct {
	Status      string `json:"status"`
	ContentID   int64  `json:"content_id"`
	DocumentID  string `json:"document_id"`
	SavedChunks int    `json:"saved_chunks"`
	UserID      uint   `json:"user_id"`
	URL         string `json:"url"`
	Header      string `json:"header"`
}

// SearchRequest 是 /search 接口的请求体。
type SearchRequest struct {
	UserID       uint   `json:"user_id"`
	Query        string `json:"query" binding:"required"`
	ClusterLabel *int   `json:"cluster_label"`
	Limit        int    `json:"limit"`
}

// SearchResponseDTO 是检索结果中单个文档的响应结构。
type SearchResponseDTO struct {
	ContentID   int64   `json:"content_id"`
	DocumentID  string  `json:"document_id"`
	URL         string  `json:"url"`
	Header      string  `json:"header"`
	ContentText string  `json:"content_text"`
	RerankScore float64 `json:"rerank_score"`
}

// ClusterizeResult 是一次全量重聚类的返回结果。
type ClusterizeResult struct {
	Status        string `json:"status"`
	ClustersFound int    `json:"clusters_found"`
	ChunksTotal   int    `json:"chunks_total"`
}

// ClusterInfo 是 /clusters 接口返回的单个聚类信息。
type ClusterInfo struct {
	Label       int    `json:"label"`
	Description string `json:"description"`
}
