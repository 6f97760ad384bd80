package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/joseph-ayodele/ttn-extractor/internal/common"
	"github.com/joseph-ayodele/ttn-extractor/internal/core"
	"github.com/joseph-ayodele/ttn-extractor/internal/ingest"
)

func main() {
	// stdout carries the JSON result; logs go to stderr
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	page := flag.Int("page", 0, "zero-based PDF page to recognize")
	allPages := flag.Bool("all-pages", false, "recognize every PDF page up to PDF_MAX_PAGES")
	flag.Parse()
	if flag.NArg() != 1 {
		logger.Error("usage", "cmd", "runocr [-page N] [-all-pages] <file>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	if err := common.LoadDotEnv(); err != nil {
		logger.Error("failed to load .env", "error", err)
		os.Exit(1)
	}
	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	doc, err := ingest.NewFSIngestor(logger).ReadPath(ctx, path)
	if err != nil {
		logger.Error("failed to read document", "path", path, "error", err)
		os.Exit(1)
	}

	processor, err := core.NewFromConfig(cfg, nil, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}
	rec, err := processor.Process(ctx, core.Input{
		DocumentID: doc.DocumentID,
		Content:    doc.Content,
		MediaType:  doc.MediaType,
		Page:       *page,
		AllPages:   *allPages,
		Source:     path,
	})
	if err != nil {
		logger.Error("extraction failed", "path", path, "code", core.ErrorCode(err), "error", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec.Output()); err != nil {
		logger.Error("failed to write output", "error", err)
		os.Exit(1)
	}
}
