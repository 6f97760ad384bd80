package core

import (
	"log/slog"

	"github.com/joseph-ayodele/ttn-extractor/internal/common"
	"github.com/joseph-ayodele/ttn-extractor/internal/core/orchestrator"
	"github.com/joseph-ayodele/ttn-extractor/internal/engine"
	"github.com/joseph-ayodele/ttn-extractor/internal/engine/builtin"
	"github.com/joseph-ayodele/ttn-extractor/internal/extract"
	"github.com/joseph-ayodele/ttn-extractor/internal/imaging"
	"github.com/joseph-ayodele/ttn-extractor/internal/repository"
	"github.com/joseph-ayodele/ttn-extractor/internal/validate"
)

// Components are the immutable pieces of a pipeline built from configuration.
type Components struct {
	Tables       *extract.Tables
	Extractor    *extract.Extractor
	Registry     *engine.Registry
	Orchestrator *orchestrator.Orchestrator
	Validator    *validate.Engine
}

// LoadTables reads the pattern tables from path, or the embedded defaults when path is empty.
func LoadTables(path string) (*extract.Tables, error) {
	if path == "" {
		return extract.DefaultTables()
	}
	return extract.LoadTablesFile(path)
}

// OrchestratorConfig maps application configuration onto the orchestrator.
func OrchestratorConfig(cfg *common.Config, reg *engine.Registry, preparer orchestrator.Preparer, eval orchestrator.Evaluator, logger *slog.Logger) orchestrator.Config {
	return orchestrator.Config{
		Registry:      reg,
		Preparer:      preparer,
		Evaluator:     eval,
		MinFields:     cfg.Pipeline.MinFields,
		MinConfidence: cfg.Pipeline.MinConfidence,
		MinTextLength: cfg.Pipeline.MinTextLength,
		EngineTimeout: cfg.Engines.Timeout,
		Logger:        logger,
	}
}

// NewPreparer builds the image/PDF normalizer from configuration.
func NewPreparer(cfg *common.Config, logger *slog.Logger) *imaging.Preparer {
	rasterizer := imaging.NewRasterizer(imaging.RasterizerConfig{
		Pdftoppm: cfg.OCR.Pdftoppm,
		DPI:      cfg.OCR.DPI,
		MaxPages: cfg.OCR.MaxPages,
	}, nil, logger)
	opts := imaging.DefaultEnhanceOptions()
	opts.Denoise = cfg.OCR.Denoise
	return imaging.NewPreparer(rasterizer, imaging.NewEnhancer(opts), logger)
}

// BuildComponents resolves the engine registry once and compiles the tables.
func BuildComponents(cfg *common.Config, logger *slog.Logger) (*Components, error) {
	if logger == nil {
		logger = slog.Default()
	}
	tables, err := LoadTables(cfg.Pipeline.PatternTablesPath)
	if err != nil {
		return nil, err
	}
	extractor := extract.NewExtractor(tables, cfg.Pipeline.ClassifierThreshold, logger)
	reg := builtin.NewRegistry(cfg, logger)

	orch, err := orchestrator.New(OrchestratorConfig(cfg, reg, NewPreparer(cfg, logger), extractor, logger))
	if err != nil {
		return nil, err
	}
	validator := validate.New(validate.Config{
		ManualThreshold:     cfg.Pipeline.ManualThreshold,
		MinFields:           cfg.Pipeline.MinFields,
		AutoAcceptThreshold: cfg.Pipeline.AutoAcceptThreshold,
	})
	return &Components{
		Tables:       tables,
		Extractor:    extractor,
		Registry:     reg,
		Orchestrator: orch,
		Validator:    validator,
	}, nil
}

// NewFromConfig builds a Processor. db may be nil for a storage-less pipeline.
func NewFromConfig(cfg *common.Config, db *repository.DB, logger *slog.Logger) (*Processor, error) {
	comps, err := BuildComponents(cfg, logger)
	if err != nil {
		return nil, err
	}
	var (
		records repository.RecordRepository
		batches repository.BatchRunRepository
	)
	if db != nil {
		records = repository.NewRecordRepository(db, logger)
		batches = repository.NewBatchRunRepository(db, logger)
	}
	return NewProcessor(logger, comps.Orchestrator, comps.Extractor, comps.Validator, records, batches, cfg.Pipeline.MaxBatch), nil
}
