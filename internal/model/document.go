package model

import "time"

// Document 对应于数据库中的 documents 表。
// 一条记录代表用户提交的一份原始文本，按 (user_id, content_hash) 去重，
// 创建后不再修改。
type Document struct {
	ContentID   int64     `gorm:"primaryKey;column:content_id" json:"content_id"`
	UserID      uint      `gorm:"not null;index;uniqueIndex:uk_user_hash;column:user_id" json:"user_id"`
	ContentText string    `gorm:"type:longtext;not null;column:content_text" json:"content_text"`
	ContentHash string    `gorm:"type:varchar(64);not null;uniqueIndex:uk_user_hash;column:content_hash" json:"content_hash"`
	URL         string    `gorm:"type:varchar(2048);column:url" json:"url"`
	Header      string    `gorm:"type:varchar(512);column:header" json:"header"`
	DocumentID  string    `gorm:"type:varchar(32);index;column:document_id" json:"document_id"`
	CreatedAt   time.Time `gorm:"autoCreateTime;column:created_at" json:"created_at"`
}

func (Document) TableName() string {
	return "documents"
}
