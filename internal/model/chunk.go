package model

// Chunk 是切块器的输出单元：原文的一段连续子串及其在原文中的位置。
// 偏移量按 rune 计数，满足 0 <= Start < End <= len([]rune(原文))，
// Text 等于去除首尾空白后的 原文[Start:End]。
type Chunk struct {
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// EsChunk 是写入 Elasticsearch content_chunks 索引的文档结构。
// 向量字段为 dense_vector（cosine），其余字段作为检索过滤与回源的 payload。
type EsChunk struct {
	ChunkID            string    `json:"chunk_id"`
	ContentID          int64     `json:"content_id"`
	DocumentID         string    `json:"document_id"`
	ChunkOrder         int       `json:"chunk_order"`
	TextContent        string    `json:"text_content"`
	ChunkStart         int       `json:"chunk_start"`
	ChunkEnd           int       `json:"chunk_end"`
	Vector             []float32 `json:"vector"`
	UserID             uint      `json:"user_id"`
	URL                string    `json:"url"`
	Header             string    `json:"header"`
	ContentHash        string    `json:"content_hash"`
	ClusterLabel       *int      `json:"cluster_label"`
	ClusterDescription string    `json:"cluster_description"`
}
