package model

// ClusterCentroid 对应于数据库中的 cluster_centroids 表。
// 每行保存一个用户某个聚类的质心向量和主题描述。
// 聚类标签只在一次聚类结果内有意义，重新聚类时整组替换，绝不按标签合并。
type ClusterCentroid struct {
	ID          uint   `gorm:"primaryKey;autoIncrement;column:id"`
	UserID      uint   `gorm:"not null;uniqueIndex:uk_user_label;column:user_id"`
	Label       int    `gorm:"not null;uniqueIndex:uk_user_label;column:label"`
	Centroid    string `gorm:"type:mediumtext;not null;column:centroid"` // JSON 数组编码的向量
	Description string `gorm:"type:varchar(255);column:description"`
}

func (ClusterCentroid) TableName() string {
	return "cluster_centroids"
}

// Centroid 是聚类引擎输出的质心：标签、向量与主题描述。
type Centroid struct {
	Label       int       `json:"label"`
	Vector      []float32 `json:"vector"`
	Description string    `json:"description"`
}
