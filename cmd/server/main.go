package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailagent/backend/internal/config"
	"mailagent/backend/internal/engine"
	"mailagent/backend/internal/llm"
	"mailagent/backend/internal/logger"
	"mailagent/backend/internal/mail"
	"mailagent/backend/internal/monitoring"
	"mailagent/backend/internal/service"
	"mailagent/backend/internal/storage"
	"mailagent/backend/internal/storage/memory"
	redisstore "mailagent/backend/internal/storage/redis"
	sqlstore "mailagent/backend/internal/storage/sql"
	httptransport "mailagent/backend/internal/transport/http"
	"mailagent/backend/internal/workflow"
)

// main 是邮件处理代理 HTTP 服务的程序入口。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 设置 Gin 模式（基于开发环境标志）
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// 初始化日志系统
	log, err := logger.NewLogger(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		LogFile:     cfg.Log.LogFile,
		MaxSizeMB:   cfg.Log.MaxSizeMB,
		MaxBackups:  cfg.Log.MaxBackups,
		MaxAgeDays:  cfg.Log.MaxAgeDays,
		Compress:    cfg.Log.Compress,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()
	log.Info("starting mail agent server",
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
	)

	// 初始化审计存储：配置了数据库走 SQL，否则用内存存储
	var store storage.Store
	if cfg.Database.Type != "" {
		sqlStore, err := sqlstore.NewStore(
			cfg.Database.Type,
			cfg.Database.DSN,
			cfg.Database.MaxOpenConns,
			cfg.Database.MaxIdleConns,
			cfg.Database.ConnMaxLifetime,
		)
		if err != nil {
			log.Fatal("failed to initialize database", zap.Error(err))
		}
		if err := sqlStore.Migrate(); err != nil {
			log.Fatal("failed to migrate database", zap.Error(err))
		}
		store = sqlStore
		log.Info("using SQL storage", zap.String("type", cfg.Database.Type))
	} else {
		store = memory.NewStore()
		log.Info("using memory storage")
	}
	defer store.Close()

	// 初始化去重缓存（可选）
	var dedup *redisstore.Dedup
	if cfg.Redis.Address != "" {
		dedup, err = redisstore.NewDedup(cfg.Redis, log)
		if err != nil {
			log.Warn("failed to connect dedup cache, continuing without it", zap.Error(err))
			dedup = nil
		} else {
			defer dedup.Close()
		}
	}

	// 初始化补全服务客户端：未配置端点时使用确定性桩（纯规则降级）
	var completer llm.Completer
	if cfg.LLM.Endpoint != "" {
		completer = llm.NewClient(cfg.LLM, log)
		log.Info("using remote completion service",
			zap.String("endpoint", cfg.LLM.Endpoint),
			zap.String("model", cfg.LLM.Model),
		)
	} else {
		completer = &llm.Stub{Err: llm.ErrCompletion}
		log.Info("completion endpoint not configured, using rule-based analysis only")
	}
	eng := engine.New(completer, log)

	// 初始化邮件传输层：配置了 SMTP 时真实发送，拉取和附件走桩实现
	mock := mail.NewMockTransport(log)
	var transport mail.Transport = mock
	if cfg.SMTP.Addr != "" {
		transport = mail.Combined{
			Fetcher:    mock,
			Sender:     mail.NewSMTPSender(cfg.SMTP, log),
			Downloader: mock,
		}
		log.Info("using SMTP sender", zap.String("addr", cfg.SMTP.Addr))
	}

	// 初始化监控与流水线
	metrics := monitoring.NewMetrics()
	executor := workflow.NewExecutor(
		cfg.Workflow,
		cfg.Storage.AttachmentsPath,
		eng,
		transport,
		transport,
		store,
		workflow.NewExternalProvider(cfg.Workflow.TaskProvider, log),
		log,
	)
	agent := service.NewAgent(cfg.Agent, eng, executor, transport, store, dedupOrNil(dedup), metrics, log)

	var healthDedup monitoring.Pinger
	if dedup != nil {
		healthDedup = dedup
	}
	health := monitoring.NewHealthChecker(store, healthDedup, log)

	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:  cfg,
		Agent:   agent,
		Store:   store,
		Health:  health,
		Metrics: metrics,
		Logger:  log,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// 信号处理
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("server listening", zap.String("address", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received, gracefully shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	} else {
		log.Info("server stopped cleanly")
	}
}

// dedupOrNil 把可能为空的具体指针转成接口，空指针时返回真正的 nil 接口。
func dedupOrNil(d *redisstore.Dedup) service.DedupCache {
	if d == nil {
		return nil
	}
	return d
}
