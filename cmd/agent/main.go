package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

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
	"mailagent/backend/internal/workflow"
)

// main 是一次性批处理入口：拉取一批邮件、处理完后打印汇总并退出。
func main() {
	limit := flag.Int("limit", 0, "本次处理的邮件数上限，0 表示使用配置默认值")
	jsonOut := flag.Bool("json", false, "以 JSON 输出处理汇总")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

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
	} else {
		store = memory.NewStore()
	}
	defer store.Close()

	var dedup service.DedupCache
	if cfg.Redis.Address != "" {
		d, err := redisstore.NewDedup(cfg.Redis, log)
		if err != nil {
			log.Warn("failed to connect dedup cache, continuing without it", zap.Error(err))
		} else {
			defer d.Close()
			dedup = d
		}
	}

	var completer llm.Completer
	if cfg.LLM.Endpoint != "" {
		completer = llm.NewClient(cfg.LLM, log)
	} else {
		completer = &llm.Stub{Err: llm.ErrCompletion}
	}
	eng := engine.New(completer, log)

	mock := mail.NewMockTransport(log)
	var transport mail.Transport = mock
	if cfg.SMTP.Addr != "" {
		transport = mail.Combined{
			Fetcher:    mock,
			Sender:     mail.NewSMTPSender(cfg.SMTP, log),
			Downloader: mock,
		}
	}

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
	agent := service.NewAgent(cfg.Agent, eng, executor, transport, store, dedup, monitoring.NewMetrics(), log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := agent.Run(ctx, *limit)
	if err != nil {
		log.Fatal("batch run failed", zap.Error(err))
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			log.Error("failed to encode summary", zap.Error(err))
		}
	} else {
		fmt.Printf("拉取 %d 封，处理成功 %d，跳过 %d，失败 %d\n",
			summary.Fetched, summary.Processed, summary.Skipped, summary.Failed)
	}

	if summary.Failed > 0 {
		os.Exit(1)
	}
}
