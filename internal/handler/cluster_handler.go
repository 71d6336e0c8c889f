package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"memobase-go/internal/service"
	"memobase-go/pkg/log"
	"memobase-go/pkg/tasks"
)

// ClusterHandler 负责处理聚类相关的 API 请求。
type ClusterHandler struct {
	clusterService service.ClusterService
	enqueue        service.EnqueueFunc
}

// NewClusterHandler 创建一个新的 ClusterHandler 实例。
// enqueue 非空时 /clusterize 只投递后台任务；为空时同步执行。
func NewClusterHandler(clusterService service.ClusterService, enqueue service.EnqueueFunc) *ClusterHandler {
	return &ClusterHandler{
		clusterService: clusterService,
		enqueue:        enqueue,
	}
}

// Clusterize 触发一次用户全量重聚类。
func (h *ClusterHandler) Clusterize(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	if h.enqueue != nil {
		task := tasks.ReclusterTask{UserID: userID, Reason: "manual"}
		if err := h.enqueue(task); err != nil {
			log.Errorf("[ClusterHandler] 投递重聚类任务失败: UserID=%d, Error: %v", userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "重聚类任务投递失败"})
			return
		}
		log.Infof("[ClusterHandler] 重聚类任务已投递: UserID=%d", userID)
		c.JSON(http.StatusAccepted, gin.H{"code": 202, "data": gin.H{"status": "queued"}, "message": "success"})
		return
	}

	result, err := h.clusterService.Clusterize(c.Request.Context(), userID)
	if err != nil {
		log.Errorf("[ClusterHandler] 重聚类失败: UserID=%d, Error: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "重聚类失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": result, "message": "success"})
}

// ListClusters 返回用户当前的聚类标签和描述。
func (h *ClusterHandler) ListClusters(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	infos, err := h.clusterService.ListClusters(c.Request.Context(), userID)
	if err != nil {
		log.Errorf("[ClusterHandler] 获取聚类列表失败: UserID=%d, Error: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取聚类列表失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": infos, "message": "success"})
}

// parseUserID 从查询参数中解析 user_id，失败时直接写 400 响应。
func parseUserID(c *gin.Context) (uint, bool) {
	userIDStr := c.Query("user_id")
	userID, err := strconv.ParseUint(userIDStr, 10, 32)
	if err != nil {
		log.Warnf("[ClusterHandler] user_id 参数无效: '%s'", userIDStr)
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的 user_id 参数"})
		return 0, false
	}
	return uint(userID), true
}
