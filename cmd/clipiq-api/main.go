// Package main ClipIQ API 服务入口
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clipiq-api/internal/application/chat"
	"clipiq-api/internal/application/ingest"
	"clipiq-api/internal/application/retrieval"
	"clipiq-api/internal/application/session"
	"clipiq-api/internal/config"
	embeddinginfra "clipiq-api/internal/infrastructure/embedding"
	"clipiq-api/internal/infrastructure/llm"
	"clipiq-api/internal/infrastructure/persistence/memvec"
	"clipiq-api/internal/infrastructure/persistence/milvus"
	"clipiq-api/internal/infrastructure/persistence/redis"
	"clipiq-api/internal/infrastructure/youtube"
	"clipiq-api/internal/interfaces/http/handler"
	"clipiq-api/internal/interfaces/http/router"
	einoobs "clipiq-api/internal/observability/eino"
	"clipiq-api/pkg/logger"
	"clipiq-api/pkg/tracer"

	"github.com/joho/godotenv"
)

// Version 版本信息，构建时注入
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件（如果存在）
	_ = godotenv.Load()

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger.Init(
		cfg.Observability.Logging.Level,
		cfg.Observability.Logging.Format,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	log := logger.FromContext(ctx)
	log.Info("starting clipiq-api",
		"version", Version,
		"build_time", BuildTime,
		"env", cfg.App.Env,
	)

	// 初始化追踪
	shutdownTracer, err := tracer.Init(ctx, tracer.Config{
		ServiceName: cfg.App.Name,
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		log.Error("failed to init tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracer(ctx); err != nil {
			log.Error("failed to shutdown tracer", "error", err)
		}
	}()

	// 初始化 Eino 全局 callbacks（Token 指标 / 追踪）
	einoobs.Init()

	// 向量索引后端
	var index retrieval.VectorIndex
	var milvusClient *milvus.Client
	switch cfg.Vector.Backend {
	case "milvus":
		milvusClient, err = milvus.NewClient(ctx, &cfg.Vector.Milvus)
		if err != nil {
			logger.Fatal(ctx, "failed to connect milvus", err)
		}
		defer milvusClient.Close()

		milvusIndex := milvus.NewIndex(milvusClient, cfg.Embedding.Dimension)
		if err := milvusIndex.EnsureCollection(ctx); err != nil {
			logger.Fatal(ctx, "failed to ensure milvus collection", err)
		}
		index = milvusIndex
	default:
		index = memvec.NewIndex()
	}
	log.Info("vector index ready", "backend", index.Backend())

	// 摘要缓存（可选）
	var redisClient *redis.Client
	var cache *redis.Cache
	if cfg.Cache.Enabled {
		redisClient, err = redis.NewClient(&cfg.Cache.Redis)
		if err != nil {
			logger.Fatal(ctx, "failed to connect redis", err)
		}
		defer redisClient.Close()
		cache = redis.NewCache(redisClient)
	}

	// Embedding 链：eino 客户端外层包一层安全降级
	innerEmbedder, err := embeddinginfra.NewEinoEmbedder(ctx, &cfg.Embedding)
	if err != nil {
		logger.Fatal(ctx, "failed to init embedder", err)
	}
	embedder := embeddinginfra.NewSafeEmbedder(innerEmbedder, &cfg.Embedding)

	// LLM 生成
	factory := llm.NewEinoFactory(cfg)
	generator := llm.NewGenerator(factory, cfg)

	// 应用层装配
	source := youtube.NewClient(&cfg.YouTube)
	chunker := ingest.NewChunker(&cfg.Chunking)
	pipeline := ingest.NewPipeline(source, embedder, index, chunker)
	engine := retrieval.NewEngine(embedder, index, &cfg.Retrieval)
	sessions := session.NewManager(index, cache, &cfg.Session)
	intentRouter := chat.NewRouter(generator)
	svc := chat.NewService(sessions, pipeline, engine, index, generator, intentRouter, cache, cfg)

	// 过期会话清理
	sessions.StartJanitor(ctx)

	// HTTP 路由
	r := router.New(cfg, router.Handlers{
		Health: handler.NewHealthHandler(redisClient, milvusClient),
		Video:  handler.NewVideoHandler(svc),
		Chat:   handler.NewChatHandler(svc),
	})

	// 创建 HTTP 服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.HTTP.Host, cfg.Server.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.HTTP.ReadTimeout,
		WriteTimeout: cfg.Server.HTTP.WriteTimeout,
		IdleTimeout:  cfg.Server.HTTP.IdleTimeout,
	}

	// 启动服务器
	go func() {
		log.Info("http server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	cancel()

	// 优雅关闭
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	log.Info("server exited")
}
