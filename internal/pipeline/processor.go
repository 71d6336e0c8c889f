// Package pipeline 定义了后台重聚类任务的处理流程。
package pipeline

import (
	"context"

	"memobase-go/internal/service"
	"memobase-go/pkg/log"
	"memobase-go/pkg/tasks"
)

// Processor 消费 Kafka 的重聚类任务，驱动聚类服务做全量重建。
type Processor struct {
	clusterService service.ClusterService
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(clusterService service.ClusterService) *Processor {
	return &Processor{clusterService: clusterService}
}

// Process 是重聚类任务的主函数。任务是幂等的，失败后可安全重试。
func (p *Processor) Process(ctx context.Context, task tasks.ReclusterTask) error {
	log.Infof("[Processor] 开始处理重聚类任务, UserID: %d, Reason: %s", task.UserID, task.Reason)

	result, err := p.clusterService.Clusterize(ctx, task.UserID)
	if err != nil {
		log.Errorf("[Processor] 重聚类失败, UserID: %d, Error: %v", task.UserID, err)
		return err
	}

	log.Infof("[Processor] 重聚类任务完成, UserID: %d, 聚类数: %d, 分块数: %d",
		task.UserID, result.ClustersFound, result.ChunksTotal)
	return nil
}
