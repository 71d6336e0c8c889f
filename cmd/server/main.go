// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"memobase-go/internal/config"
	"memobase-go/internal/handler"
	"memobase-go/internal/middleware"
	"memobase-go/internal/pipeline"
	"memobase-go/internal/repository"
	"memobase-go/internal/service"
	"memobase-go/pkg/database"
	"memobase-go/pkg/embedding"
	"memobase-go/pkg/es"
	"memobase-go/pkg/kafka"
	"memobase-go/pkg/llm"
	"memobase-go/pkg/log"
	"memobase-go/pkg/rerank"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库、Redis、Elasticsearch 和 Kafka
	database.InitMySQL(cfg.Database.MySQL.DSN)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	if err := es.InitES(cfg.Elasticsearch, cfg.Embedding.Dimensions); err != nil {
		log.Errorf("es 初始化失败 %s", err)
		return
	}
	kafka.InitProducer(cfg.Kafka)

	// 4. 初始化 Repository
	docRepo := repository.NewDocumentRepository(database.DB)
	centroidRepo := repository.NewCentroidRepository(database.DB, database.RDB)
	chunkIndexRepo := repository.NewChunkIndexRepository(cfg.Elasticsearch.IndexName)

	// 5. 初始化 Service (依赖注入)
	embeddingClient := embedding.NewClient(cfg.Embedding)
	rerankClient := rerank.NewClient(cfg.Rerank)
	llmClient := llm.NewClient(cfg.LLM)
	documentService := service.NewDocumentService(
		docRepo, centroidRepo, chunkIndexRepo, embeddingClient,
		cfg.Chunking, kafka.ProduceReclusterTask)
	searchService := service.NewSearchService(docRepo, chunkIndexRepo, embeddingClient, rerankClient)
	clusterService := service.NewClusterService(centroidRepo, chunkIndexRepo, llmClient)

	// 6. 初始化重聚类处理管道 (Processor)
	processor := pipeline.NewProcessor(clusterService)

	// 7. 启动后台 Kafka 消费者
	go kafka.StartConsumer(cfg.Kafka, processor)

	// 8. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	// 添加我们自定义的日志中间件和 Gin 的 Recovery 中间件
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 9. 注册路由
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiV1 := r.Group("/api/v1")
	{
		documentHandler := handler.NewDocumentHandler(documentService)
		apiV1.POST("/embed", documentHandler.Embed)
		apiV1.POST("/chunk-embed", documentHandler.ChunkEmbed)
		apiV1.POST("/save-content", documentHandler.SaveContent)

		apiV1.POST("/search", handler.NewSearchHandler(searchService).Search)

		clusterHandler := handler.NewClusterHandler(clusterService, kafka.ProduceReclusterTask)
		apiV1.POST("/clusterize", clusterHandler.Clusterize)
		apiV1.GET("/clusters", clusterHandler.ListClusters)
	}

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 关闭 HTTP 服务器
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	// Kafka 消费循环会随进程退出结束，这里不再单独关闭。
	log.Info("服务已优雅关闭")
}
