package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"convmonitor/internal/config"
	"convmonitor/internal/domain/ports/adapter"
	"convmonitor/internal/infra/adapters/sentiment"
	"convmonitor/internal/infra/adapters/trend"
	pg "convmonitor/internal/infra/db/postgres"
	"convmonitor/internal/infra/logging"
	"convmonitor/internal/infra/metrics"
	red "convmonitor/internal/infra/redis"
	"convmonitor/internal/infra/scheduler"
	"convmonitor/internal/infra/web"
	"convmonitor/internal/infra/worker"
	"convmonitor/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, noop provider)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("developer mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.PoolSize)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	tm := pg.NewTxManager(pool)
	jobRepo := pg.NewJobRepo(pool, tm)
	convRepo := pg.NewConversationRepo(pool, tm, cfg.Pipeline.WriteBatchSize)
	metricsRepo := pg.NewMetricsRepo(pool)
	taskRepo := pg.NewScheduledTaskRepo(pool)

	// ---- Sentiment providers ----
	providers := []adapter.SentimentProvider{sentiment.NewLocalProvider()}
	if cfg.Provider.OpenAIKey != "" {
		openai, err := sentiment.NewOpenAIProvider(cfg.Provider.OpenAIKey, cfg.Provider.OpenAIModel, cfg.Provider.OpenAIBase)
		if err != nil {
			logger.Fatal().Err(err).Msg("openai provider")
		}
		providers = append(providers, openai)
		logger.Info().Str("model", cfg.Provider.OpenAIModel).Msg("openai provider enabled")
	}
	if cfg.Runtime.Dev {
		providers = append(providers, sentiment.NewNoopProvider())
	}
	providerReg := usecase.NewProviderRegistry(cfg.Provider.Default, providers...)

	// ---- Handlers ----
	handlerReg := usecase.NewHandlerRegistry(
		usecase.NewSentimentHandler(convRepo, providerReg, logger),
		usecase.NewNormalizationHandler(convRepo, logger),
		usecase.NewTrendHandler(trend.NewSQLAnalyzer(pool)),
	)

	// ---- Use cases ----
	jobUC := usecase.NewJobUseCase(jobRepo, logger)
	dispatchUC := usecase.NewDispatchUseCase(jobRepo, handlerReg, locker, usecase.DispatchConfig{
		DefaultBatchSize: cfg.Pipeline.DefaultBatchSize,
		MaxBatchSize:     cfg.Pipeline.MaxBatchSize,
		LockTTL:          cfg.Pipeline.LockTTL,
	}, logger)
	batchUC := usecase.NewSentimentBatchUseCase(convRepo, metricsRepo, providerReg, rateLimiter, usecase.SentimentBatchConfig{
		DefaultChunkSize: cfg.Pipeline.ChunkSize,
		MaxChunkSize:     cfg.Pipeline.MaxChunkSize,
		MaxIDs:           cfg.Pipeline.MaxSentimentIDs,
		ChunkPause:       cfg.Pipeline.ChunkPause,
		RateLimit:        cfg.Provider.RateLimit,
		RateWindow:       time.Duration(cfg.Provider.RateWindowMs) * time.Millisecond,
	}, logger)
	statsUC := usecase.NewQueueStatsUseCase(jobRepo, metricsRepo, logger)
	taskUC := usecase.NewScheduledTaskUseCase(taskRepo, jobRepo, logger)

	// ---- Background workers ----
	workerPool := worker.NewPool(runtime.NumCPU(), logger)
	workerPool.Start(ctx)
	defer workerPool.Stop()

	if cfg.Pipeline.PollInterval > 0 {
		dw := worker.NewDispatchWorker(dispatchUC, cfg.Pipeline.PollInterval, cfg.Pipeline.DefaultBatchSize, logger)
		go dw.Start(ctx, workerPool)
	}

	taskRunner := scheduler.NewRunner(cfg.Pipeline.TaskTickInterval, taskUC, logger)
	taskRunner.Start(ctx)
	defer taskRunner.Stop()

	// ---- HTTP server ----
	srv := web.NewServer(jobUC, dispatchUC, batchUC, statsUC, taskUC, cfg.API.APIKey, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	cancel()
}
