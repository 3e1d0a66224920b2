package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hyperrecruit/internal/api/handler"
	"hyperrecruit/internal/api/router"
	appconfig "hyperrecruit/internal/config"
	"hyperrecruit/internal/dedup"
	"hyperrecruit/internal/embedding"
	appCoreLogger "hyperrecruit/internal/logger"
	"hyperrecruit/internal/processor"
	"hyperrecruit/internal/scoring"
	"hyperrecruit/internal/storage"
	"hyperrecruit/internal/tracing"

	"github.com/cloudwego/hertz/pkg/app/server"
	hertzconfig "github.com/cloudwego/hertz/pkg/common/config"
	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"gorm.io/gorm"
)

func main() {
	initLogger()

	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "internal/config/config.yaml", "Path to config file")
	pflag.Parse()

	cfg, err := appconfig.LoadConfig(configPath)
	if err != nil {
		glog.Fatalf("加载配置失败: %v", err)
	}
	glog.Info("配置加载成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 链路追踪
	shutdownTracing, err := tracing.InitTracerProvider(ctx, &cfg.Tracing)
	if err != nil {
		glog.Fatalf("初始化链路追踪失败: %v", err)
	}

	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		glog.Fatalf("初始化存储失败: %v", err)
	}
	defer storageManager.Close()
	glog.Info("存储服务初始化成功")

	// 向量缓存：没有API Key或未启用时以关闭状态运行，
	// 文档以无向量状态入库，评分退化为纯规则分
	vectorCache := buildVectorCache(cfg, storageManager)
	if vectorCache.Enabled() {
		glog.Infof("向量缓存已启用, model=%s", vectorCache.Model())
	} else {
		glog.Warn("向量缓存处于关闭状态, 文档将以无向量状态入库")
	}

	var archive processor.SnapshotArchive
	if storageManager.MinIO != nil {
		archive = storageManager.MinIO
	}
	var events processor.ScoreEventPublisher
	if storageManager.RabbitMQ != nil {
		events = storageManager.RabbitMQ
	}

	serviceLogger := log.New(appCoreLogger.Logger, "[IngestMain] ", log.LstdFlags|log.Lshortfile)
	candidateService := processor.NewCandidateService(storageManager.MySQL, vectorCache, archive, events, serviceLogger)
	jobService := processor.NewJobService(storageManager.MySQL, vectorCache, archive, events, serviceLogger)
	glog.Info("入库服务初始化成功")

	pipelineLogger := log.New(appCoreLogger.Logger, "[ScoringMain] ", log.LstdFlags|log.Lshortfile)
	pipeline := scoring.NewPipeline(storageManager.MySQL, pipelineLogger)

	ingestHandler := handler.NewIngestHandler(cfg, candidateService, jobService)
	scoringHandler := handler.NewScoringHandler(cfg, storageManager.MySQL, pipeline)
	glog.Info("Handler初始化成功")

	// 评分事件消费者
	if storageManager.RabbitMQ != nil {
		startScoringConsumer(cfg, storageManager, pipeline)
	}

	serverOpts := []hertzconfig.Option{
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
	}
	var trCfg *hertztracing.Config
	if cfg.Tracing.Enabled {
		tracer, tcfg := hertztracing.NewServerTracer()
		serverOpts = append(serverOpts, tracer)
		trCfg = tcfg
	}
	h := server.New(serverOpts...)
	if trCfg != nil {
		h.Use(hertztracing.ServerMiddleware(trCfg))
	}

	router.RegisterRoutes(h, cfg, ingestHandler, scoringHandler)
	glog.Info("HTTP路由注册成功")

	glog.Infof("HTTP 服务器启动中，监听地址: %s", cfg.Server.Address)
	go func() {
		if err := h.Run(); err != nil {
			glog.Fatalf("启动HTTP服务器失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	glog.Info("接收到终止信号，正在优雅退出...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		glog.Errorf("服务器关闭失败: %v", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		glog.Errorf("链路追踪关闭失败: %v", err)
	}
	glog.Info("优雅退出完成")
}

// buildVectorCache 组装向量缓存：Aliyun Provider + MySQL持久层 + Redis热层
func buildVectorCache(cfg *appconfig.Config, storageManager *storage.Storage) *embedding.Cache {
	cacheLogger := log.New(appCoreLogger.Logger, "[EmbCacheMain] ", log.LstdFlags|log.Lshortfile)

	enabled := cfg.Aliyun.Embedding.Enabled && cfg.Aliyun.APIKey != ""
	var provider *embedding.AliyunEmbedder
	if enabled {
		var err error
		provider, err = embedding.NewAliyunEmbedder(cfg.Aliyun.APIKey, cfg.Aliyun.Embedding)
		if err != nil {
			glog.Warnf("初始化阿里云Embedder失败, 向量缓存将关闭: %v", err)
			enabled = false
		}
	}

	var hot embedding.HotStore
	if storageManager.Redis != nil {
		hot = storageManager.Redis
	}

	if provider == nil {
		// NewCache对nil provider做关闭状态处理，这里避免携带有类型的nil接口
		return embedding.NewCache(nil, storageManager.MySQL, hot, cfg.Aliyun.Embedding.Model, false, cacheLogger)
	}
	return embedding.NewCache(provider, storageManager.MySQL, hot, cfg.Aliyun.Embedding.Model, enabled, cacheLogger)
}

// startScoringConsumer 启动评分事件消费循环。
// 锚点实体不存在或消息损坏时丢弃消息；其余错误重新入队。
func startScoringConsumer(cfg *appconfig.Config, storageManager *storage.Storage, pipeline *scoring.Pipeline) {
	handlerFunc := func(body []byte) bool {
		var msg storage.ScoreNeededMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			glog.Errorf("解析评分事件失败, 丢弃: %v", err)
			return true
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		var err error
		var count int
		switch msg.EntityKind {
		case dedup.KindCandidate:
			count, err = pipeline.ScoreCandidateAgainstAllJobs(ctx, msg.EntityID)
		case dedup.KindJob:
			count, err = pipeline.ScoreJobAgainstAllCandidates(ctx, msg.EntityID)
		default:
			glog.Errorf("未知的评分事件实体类别 %q, 丢弃", msg.EntityKind)
			return true
		}
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				glog.Warnf("评分事件锚点实体不存在, 丢弃: kind=%s id=%s", msg.EntityKind, msg.EntityID)
				return true
			}
			glog.Errorf("处理评分事件失败, 重新入队: kind=%s id=%s err=%v", msg.EntityKind, msg.EntityID, err)
			return false
		}
		glog.Infof("评分事件处理完成: kind=%s id=%s scored=%d", msg.EntityKind, msg.EntityID, count)
		return true
	}

	done, err := storageManager.RabbitMQ.StartConsumer(cfg.RabbitMQ.ScoringQueue, cfg.RabbitMQ.PrefetchCount, handlerFunc)
	if err != nil {
		glog.Fatalf("启动评分事件消费者失败: %v", err)
	}
	go func() {
		<-done
		glog.Warn("评分事件消费循环已退出")
	}()
}

func initLogger() {
	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	}

	var writer io.Writer = consoleWriter
	if fileWriter, err := os.OpenFile("logs/app.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
		writer = zerolog.MultiLevelWriter(consoleWriter, fileWriter)
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	zerolog.TimeFieldFormat = "15:04:05"

	logger := zerolog.New(writer).With().Timestamp().Caller().Logger()
	appCoreLogger.Logger = logger
	zlog.Logger = logger

	// Hertz 的日志也走同一个zerolog实例
	glog.SetLogger(hertzadapter.From(appCoreLogger.Logger))
	glog.SetLevel(glog.LevelInfo)
}
