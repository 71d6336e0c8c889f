// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
	"memobase-go/internal/model"
	"memobase-go/pkg/log"
)

// 质心缓存的过期时间。重聚类后会主动失效，TTL 只是兜底。
const centroidCacheTTL = time.Hour

// CentroidRepository 接口定义了聚类质心的持久化操作。
// 质心按用户整组读写：一次聚类产出一整套质心，替换旧的一整套。
type CentroidRepository interface {
	GetByUser(ctx context.Context, userID uint) ([]model.Centroid, error)
	ReplaceForUser(ctx context.Context, userID uint, centroids []model.Centroid) error
}

// centroidRepository 是 CentroidRepository 接口的 GORM+Redis 实现。
// Redis 缓存整组质心，入库路径每个分块都要做一次就近分配，不能每次都打 MySQL。
type centroidRepository struct {
	db          *gorm.DB
	redisClient *redis.Client
}

// NewCentroidRepository 创建一个新的 CentroidRepository 实例。
func NewCentroidRepository(db *gorm.DB, redisClient *redis.Client) CentroidRepository {
	return &centroidRepository{db: db, redisClient: redisClient}
}

func (r *centroidRepository) cacheKey(userID uint) string {
	return "centroids:" + strconv.FormatUint(uint64(userID), 10)
}

// GetByUser 返回指定用户的全部质心，优先读 Redis 缓存。
// 缓存异常只记日志并回源数据库，不影响调用方。
func (r *centroidRepository) GetByUser(ctx context.Context, userID uint) ([]model.Centroid, error) {
	key := r.cacheKey(userID)
	cached, err := r.redisClient.Get(ctx, key).Bytes()
	if err == nil {
		var centroids []model.Centroid
		if err := json.Unmarshal(cached, &centroids); err == nil {
			return centroids, nil
		}
		log.Warnf("[CentroidRepo] 质心缓存内容损坏, 回源数据库: UserID=%d", userID)
	} else if err != redis.Nil {
		log.Warnf("[CentroidRepo] 读取质心缓存失败, 回源数据库: %v", err)
	}

	var rows []model.ClusterCentroid
	if err := r.db.Where("user_id = ?", userID).Order("label asc").Find(&rows).Error; err != nil {
		return nil, err
	}

	centroids := make([]model.Centroid, 0, len(rows))
	for _, row := range rows {
		var vector []float32
		if err := json.Unmarshal([]byte(row.Centroid), &vector); err != nil {
			log.Errorf("[CentroidRepo] 质心向量反序列化失败, 跳过该行: UserID=%d, Label=%d, Error: %v",
				row.UserID, row.Label, err)
			continue
		}
		centroids = append(centroids, model.Centroid{
			Label:       row.Label,
			Vector:      vector,
			Description: row.Description,
		})
	}

	if data, err := json.Marshal(centroids); err == nil {
		if err := r.redisClient.Set(ctx, key, data, centroidCacheTTL).Err(); err != nil {
			log.Warnf("[CentroidRepo] 回填质心缓存失败: %v", err)
		}
	}
	return centroids, nil
}

// ReplaceForUser 在一个事务里删除用户旧质心并写入新质心，随后使缓存失效。
// 标签只在一次聚类结果内有意义，所以是整组替换而不是按标签更新。
func (r *centroidRepository) ReplaceForUser(ctx context.Context, userID uint, centroids []model.Centroid) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&model.ClusterCentroid{}).Error; err != nil {
			return err
		}
		for _, c := range centroids {
			vecBytes, err := json.Marshal(c.Vector)
			if err != nil {
				return err
			}
			row := model.ClusterCentroid{
				UserID:      userID,
				Label:       c.Label,
				Centroid:    string(vecBytes),
				Description: c.Description,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := r.redisClient.Del(ctx, r.cacheKey(userID)).Err(); err != nil {
		log.Warnf("[CentroidRepo] 质心缓存失效失败, 等待 TTL 过期: %v", err)
	}
	return nil
}
