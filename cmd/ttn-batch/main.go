package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joseph-ayodele/ttn-extractor/internal/common"
	"github.com/joseph-ayodele/ttn-extractor/internal/core"
	"github.com/joseph-ayodele/ttn-extractor/internal/entity"
	"github.com/joseph-ayodele/ttn-extractor/internal/export"
	"github.com/joseph-ayodele/ttn-extractor/internal/ingest"
	repo "github.com/joseph-ayodele/ttn-extractor/internal/repository"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		inmem    = flag.Bool("inmem", false, "use in-memory SQLite database")
		dir      = flag.String("dir", "", "directory to process waybills from (required)")
		out      = flag.String("out", "", "output XLSX file path (optional, defaults to parent directory)")
		maxFiles = flag.Int("max-files", 0, "stop after this many documents (0 = no limit)")
		watch    = flag.Bool("watch", false, "keep running and process documents added to --dir")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(*dir), "ttn-report.xlsx")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := common.LoadDotEnv(); err != nil {
		logger.Error("failed to load .env", "error", err)
		os.Exit(1)
	}
	cfg := common.LoadConfig()
	if *inmem {
		cfg.Database.DSN = ""
		cfg.Database.SQLitePath = ":memory:"
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repo.Open(ctx, repo.ConfigFrom(cfg.Database), logger)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
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
	exporter := export.NewService(repo.NewRecordRepository(db, logger), logger)

	ingestor := ingest.NewFSIngestor(logger)
	ingestor.MaxFiles = *maxFiles

	logger.Info("starting ingestion", "dir", *dir)
	docs, stats, err := ingestor.Collect(ctx, *dir)
	if err != nil {
		logger.Error("failed to ingest directory", "error", err)
		os.Exit(1)
	}
	logger.Info("ingestion completed",
		"scanned", stats.Scanned,
		"succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
	)

	result, err := runBatches(ctx, processor, docs, cfg.Pipeline.MaxBatch, logger)
	if err != nil {
		logger.Error("batch processing stopped", "error", err)
	}

	report, err := exporter.BatchReportXLSX(ctx, result)
	if err != nil {
		logger.Error("failed to render report", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, report, 0o644); err != nil {
		logger.Error("failed to write report", "path", *out, "error", err)
		os.Exit(1)
	}
	logger.Info("report written",
		"path", *out,
		"documents", len(result.Items),
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"status", result.Status(),
	)

	if *watch {
		watchDir(ctx, processor, ingestor, *dir, logger)
	}
}

// runBatches feeds documents to the processor in chunks of maxBatch and merges the results.
// Files that could not be read are reported as failed items.
func runBatches(ctx context.Context, processor *core.Processor, docs []ingest.Document, maxBatch int, logger *slog.Logger) (*entity.BatchResult, error) {
	merged := &entity.BatchResult{}
	var inputs []core.Input
	for _, d := range docs {
		if d.Err != "" {
			merged.Items = append(merged.Items, entity.BatchItem{
				Index:     len(merged.Items),
				Source:    d.SourcePath,
				Err:       d.Err,
				ErrorCode: common.CodeInvalidInput,
			})
			merged.Failed++
			continue
		}
		inputs = append(inputs, core.Input{
			DocumentID: d.DocumentID,
			Content:    d.Content,
			MediaType:  d.MediaType,
			Source:     d.SourcePath,
		})
	}
	if maxBatch <= 0 {
		maxBatch = core.DefaultMaxBatch
	}

	for start := 0; start < len(inputs); start += maxBatch {
		end := min(start+maxBatch, len(inputs))
		res, err := processor.ProcessBatch(ctx, inputs[start:end])
		if res != nil {
			offset := len(merged.Items)
			for _, item := range res.Items {
				item.Index += offset
				merged.Items = append(merged.Items, item)
			}
			merged.Succeeded += res.Succeeded
			merged.Failed += res.Failed
			merged.RunID = res.RunID
			logger.Info("batch chunk done", "run_id", res.RunID, "from", start, "to", end, "status", res.Status())
		}
		if err != nil {
			return merged, err
		}
	}
	return merged, nil
}

func watchDir(ctx context.Context, processor *core.Processor, ingestor *ingest.FSIngestor, dir string, logger *slog.Logger) {
	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:    []string{dir},
		Debounce: 2 * time.Second,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("failed to start watcher", "error", err)
		os.Exit(1)
	}
	logger.Info("watching for new documents", "dir", dir)

	for {
		select {
		case path, ok := <-events:
			if !ok {
				return
			}
			doc, err := ingestor.ReadPath(ctx, path)
			if err != nil {
				logger.Warn("skipping unreadable document", "path", path, "error", err)
				continue
			}
			rec, err := processor.ProcessAndStore(ctx, core.Input{
				DocumentID: doc.DocumentID,
				Content:    doc.Content,
				MediaType:  doc.MediaType,
				Source:     path,
			})
			if err != nil {
				if rec == nil {
					logger.Error("failed to process document", "path", path, "error", err)
				} else {
					logger.Warn("document stored for review", "path", path, "error", err)
				}
				continue
			}
			logger.Info("document processed",
				"path", path,
				"document_id", rec.DocumentID,
				"status", rec.ValidationStatus,
				"manual_review", rec.ManualReviewRequired,
			)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("watcher error", "error", err)
		case <-ctx.Done():
			return
		}
	}
}
