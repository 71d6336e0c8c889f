// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

// ReclusterTask represents a request to rebuild the cluster layout of one user.
// 同一用户的多条任务是幂等的：每次处理都会基于当前索引全量重建。
type ReclusterTask struct {
	UserID uint   `json:"user_id"`
	Reason string `json:"reason"`
}
