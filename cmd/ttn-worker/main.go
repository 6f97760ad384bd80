package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"

	"github.com/joseph-ayodele/ttn-extractor/internal/common"
	"github.com/joseph-ayodele/ttn-extractor/internal/core"
	"github.com/joseph-ayodele/ttn-extractor/internal/queue"
	repo "github.com/joseph-ayodele/ttn-extractor/internal/repository"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := common.LoadDotEnv(); err != nil {
		logger.Error("failed to load .env", "error", err)
		os.Exit(1)
	}
	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}
	if cfg.Queue.RedisURL == "" {
		logger.Error("REDIS_URL env var is required")
		os.Exit(2)
	}
	redisOpt, err := asynq.ParseRedisURI(cfg.Queue.RedisURL)
	if err != nil {
		logger.Error("invalid REDIS_URL", "error", err)
		os.Exit(2)
	}

	ctx := context.Background()
	db, err := repo.Open(ctx, repo.ConfigFrom(cfg.Database), logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer repo.Close(db, logger)
	if err := repo.Migrate(ctx, db); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	processor, err := core.NewFromConfig(cfg, db, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}

	srvCfg := queue.ServerConfig(cfg.Queue.Concurrency, cfg.Queue.QueueName, logger)
	srvCfg.ShutdownTimeout = 30 * time.Second
	srv := asynq.NewServer(redisOpt, srvCfg)
	mux := queue.NewServeMux(queue.NewHandler(processor, logger))

	logger.Info("ttn-worker starting", "queue", cfg.Queue.QueueName, "concurrency", cfg.Queue.Concurrency)
	// Run blocks until SIGTERM or SIGINT
	if err := srv.Run(mux); err != nil {
		logger.Error("worker stopped", "error", err)
		os.Exit(1)
	}
}
