// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"errors"

	"gorm.io/gorm"
	"memobase-go/internal/model"
)

// DocumentRepository 接口定义了文档数据的持久化操作。
type DocumentRepository interface {
	Create(doc *model.Document) error
	FindByUserAndHash(userID uint, contentHash string) (*model.Document, error)
	FindByContentIDs(userID uint, contentIDs []int64) ([]model.Document, error)
}

// documentRepository 是 DocumentRepository 接口的 GORM 实现。
type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository 创建一个新的 DocumentRepository 实例。
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

// Create 在数据库中创建一个新的文档记录。
func (r *documentRepository) Create(doc *model.Document) error {
	return r.db.Create(doc).Error
}

// FindByUserAndHash 根据用户 ID 和内容哈希查找文档，用于入库前去重。
// 未找到时返回 (nil, nil) 而不是错误，去重只关心存在与否。
func (r *documentRepository) FindByUserAndHash(userID uint, contentHash string) (*model.Document, error) {
	var doc model.Document
	err := r.db.Where("user_id = ? AND content_hash = ?", userID, contentHash).First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &doc, nil
}

// FindByContentIDs 批量查找指定用户的文档，结果顺序不保证与入参一致。
// user_id 条件防止跨用户读取。
func (r *documentRepository) FindByContentIDs(userID uint, contentIDs []int64) ([]model.Document, error) {
	var docs []model.Document
	if len(contentIDs) == 0 {
		return docs, nil
	}
	err := r.db.Where("user_id = ? AND content_id IN ?", userID, contentIDs).Find(&docs).Error
	return docs, err
}
