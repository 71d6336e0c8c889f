// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"memobase-go/internal/model"
	"memobase-go/internal/service"
	"memobase-go/pkg/log"
)

// DocumentHandler 负责处理文本向量化与入库相关的 API 请求。
type DocumentHandler struct {
	docService service.DocumentService
}

// NewDocumentHandler 创建一个新的 DocumentHandler 实例。
func NewDocumentHandler(docService service.DocumentService) *DocumentHandler {
	return &DocumentHandler{docService: docService}
}

// Embed 处理批量文本向量化请求。
func (h *DocumentHandler) Embed(c *gin.Context) {
	var req model.EmbedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("[DocumentHandler] 向量化请求参数无效: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求参数"})
		return
	}

	resp, err := h.docService.Embed(c.Request.Context(), req)
	if err != nil {
		log.Errorf("[DocumentHandler] 向量化失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "向量化失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": resp, "message": "success"})
}

// ChunkEmbed 处理切块加向量化请求，结果不落库。
func (h *DocumentHandler) ChunkEmbed(c *gin.Context) {
	var req model.ChunkEmbedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("[DocumentHandler] 切块向量化请求参数无效: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求参数"})
		return
	}

	resp, err := h.docService.ChunkEmbed(c.Request.Context(), req)
	if err != nil {
		log.Errorf("[DocumentHandler] 切块向量化失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "切块向量化失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": resp, "message": "success"})
}

// SaveContent 处理文本入库请求：去重、切块、向量化并写入索引。
func (h *DocumentHandler) SaveContent(c *gin.Context) {
	var req model.SaveContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("[DocumentHandler] 入库请求参数无效: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求参数"})
		return
	}

	result, err := h.docService.Ingest(c.Request.Context(), req)
	if err != nil {
		log.Errorf("[DocumentHandler] 入库失败: UserID=%d, Error: %v", req.UserID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "入库失败"})
		return
	}

	log.Infof("[DocumentHandler] 入库请求完成: UserID=%d, Status=%s", req.UserID, result.Status)
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": result, "message": "success"})
}
