package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joseph-ayodele/ttn-extractor/internal/common"
	"github.com/joseph-ayodele/ttn-extractor/internal/core"
	"github.com/joseph-ayodele/ttn-extractor/internal/core/async"
	"github.com/joseph-ayodele/ttn-extractor/internal/export"
	"github.com/joseph-ayodele/ttn-extractor/internal/queue"
	repo "github.com/joseph-ayodele/ttn-extractor/internal/repository"
	svc "github.com/joseph-ayodele/ttn-extractor/internal/server"
)

func main() {
	// Setup structured logger that outputs messages with variables but no time/level
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))
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
	addr := cfg.Server.GRPCAddr
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repo.Open(ctx, repo.ConfigFrom(cfg.Database), logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer repo.Close(db, logger)

	// Ping DB to ensure connectivity
	if err := repo.HealthCheck(ctx, db, 5*time.Second, logger); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	if err := repo.Migrate(ctx, db); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	processor, err := core.NewFromConfig(cfg, db, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}
	records := repo.NewRecordRepository(db, logger)

	workers := async.NewProcessorQueue(processor, logger,
		async.WithWorkers(cfg.Queue.Workers),
		async.WithQueueSize(cfg.Queue.QueueSize),
		async.WithProcessTimeout(cfg.Queue.ProcessTimeout),
	)
	serviceCfg := svc.Config{
		Pipeline: processor,
		Records:  records,
		Exporter: export.NewService(records, logger),
		Queue:    workers,
		SpoolDir: cfg.Queue.SpoolDir,
		Logger:   logger,
	}
	// Remote workers take over submissions when Redis is configured
	if cfg.Queue.RedisURL != "" {
		enq, err := queue.NewEnqueuer(cfg.Queue.RedisURL, cfg.Queue.QueueName, cfg.Queue.ProcessTimeout, logger)
		if err != nil {
			logger.Error("failed to connect task queue", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := enq.Close(); err != nil {
				logger.Error("failed to close task queue", "error", err)
			}
		}()
		serviceCfg.Tasks = enq
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", addr, "error", err)
		os.Exit(1)
	}
	grpcServer, healthServer := svc.NewGRPCServer(svc.NewExtractionService(serviceCfg), 64<<20, logger)

	logger.Info("ttnd listening", "addr", addr, "dialect", db.Dialect(), "engines", cfg.Engines.Enabled)
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			slog.Error("gRPC serve error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	healthServer.Shutdown()
	grpcServer.GracefulStop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Queue.ProcessTimeout)
	defer cancel()
	workers.Shutdown(shutdownCtx)
}
