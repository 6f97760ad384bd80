package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/ttn-extractor/constants"
	"github.com/joseph-ayodele/ttn-extractor/internal/common"
	"github.com/joseph-ayodele/ttn-extractor/internal/core/orchestrator"
	"github.com/joseph-ayodele/ttn-extractor/internal/entity"
	"github.com/joseph-ayodele/ttn-extractor/internal/extract"
	"github.com/joseph-ayodele/ttn-extractor/internal/imaging"
	"github.com/joseph-ayodele/ttn-extractor/internal/repository"
	"github.com/joseph-ayodele/ttn-extractor/internal/validate"
)

// DefaultMaxBatch caps ProcessBatch when no limit is configured.
const DefaultMaxBatch = 100

// Input is one document handed to the pipeline.
type Input struct {
	DocumentID string              // "" -> derived from the content hash
	Content    []byte
	MediaType  constants.MediaType // declared; the byte signature wins
	Page       int                 // zero-based PDF page, clamped
	AllPages   bool
	Source     string // path or upload name, for logs and reports
}

// Recognizer runs the engine fallback chain over one document.
type Recognizer interface {
	Run(ctx context.Context, doc *entity.RawDocument, opts imaging.PrepareOptions) (*orchestrator.Outcome, error)
}

// Processor coordinates recognition, field extraction and validation.
type Processor struct {
	logger     *slog.Logger
	recognizer Recognizer
	extractor  *extract.Extractor
	validator  *validate.Engine
	records    repository.RecordRepository
	batches    repository.BatchRunRepository
	maxBatch   int
}

// NewProcessor wires the pipeline. records and batches may be nil for a
// storage-less pipeline; ProcessAndStore and Revalidate then fail.
func NewProcessor(
	logger *slog.Logger,
	recognizer Recognizer,
	extractor *extract.Extractor,
	validator *validate.Engine,
	records repository.RecordRepository,
	batches repository.BatchRunRepository,
	maxBatch int,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if validator == nil {
		validator = validate.New(validate.DefaultConfig())
	}
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatch
	}
	return &Processor{
		logger:     logger,
		recognizer: recognizer,
		extractor:  extractor,
		validator:  validator,
		records:    records,
		batches:    batches,
		maxBatch:   maxBatch,
	}
}

// Process runs the whole pipeline for one document and returns the record.
// DecodeError and pipeline-level EngineUnavailable are returned to the caller.
func (p *Processor) Process(ctx context.Context, in Input) (*entity.ExtractionRecord, error) {
	if in.DocumentID == "" {
		in.DocumentID = entity.DocumentIDFor(in.Content)
	}
	doc := &entity.RawDocument{
		ID:        in.DocumentID,
		Content:   in.Content,
		MediaType: in.MediaType,
	}

	start := time.Now()
	out, err := p.recognizer.Run(ctx, doc, imaging.PrepareOptions{Page: in.Page, AllPages: in.AllPages})
	if err != nil {
		var attempts int
		if out != nil {
			attempts = len(out.Trace.Attempts)
		}
		p.logger.Error("processor.recognize.failed",
			"document_id", in.DocumentID,
			"source", in.Source,
			"attempts", attempts,
			"err", err,
		)
		return nil, err
	}

	res := p.extractor.Extract(out.Text, out.EngineFields)
	rec := &entity.ExtractionRecord{
		DocumentID:        in.DocumentID,
		DocumentType:      res.DocumentType,
		Fields:            res.Fields,
		OverallConfidence: res.OverallConfidence,
		RawText:           out.Text,
		EngineUsed:        out.Engine,
		Recognition: &entity.RecognitionResult{
			DocumentID: in.DocumentID,
			Engine:     out.Engine,
			Profile:    out.Profile,
			Text:       out.Text,
			Confidence: out.Confidence,
			FieldCount: out.Fields,
		},
	}
	vo := p.validator.Apply(rec)

	p.logger.Info("processor.document.done",
		"document_id", in.DocumentID,
		"document_type", res.DocumentType,
		"engine", out.Engine,
		"profile", out.Profile,
		"fields", len(rec.Fields),
		"overall_confidence", rec.OverallConfidence,
		"status", vo.Status,
		"manual_review", vo.ManualReview,
		"auto_accepted", vo.AutoAccepted,
		"took", time.Since(start),
	)
	return rec, nil
}

// ProcessAndStore processes one document and persists the result. A failed
// document is still stored, flagged for manual review with an explanatory
// error; the returned error reports the processing failure.
func (p *Processor) ProcessAndStore(ctx context.Context, in Input) (*entity.ExtractionRecord, error) {
	if p.records == nil {
		return nil, common.NewAppError(common.CodeConfig, "processor has no record repository", common.ErrInvalidInput)
	}
	if in.DocumentID == "" {
		in.DocumentID = entity.DocumentIDFor(in.Content)
	}

	rec, procErr := p.Process(ctx, in)
	if procErr != nil {
		rec = p.failureRecord(in.DocumentID, procErr)
	}
	if err := p.records.Save(ctx, rec); err != nil {
		return nil, err
	}
	return rec, procErr
}

// failureRecord is stored when recognition fails. Its flag is still derived by validation.
func (p *Processor) failureRecord(documentID string, cause error) *entity.ExtractionRecord {
	rec := &entity.ExtractionRecord{
		DocumentID:   documentID,
		DocumentType: constants.DocumentGeneric,
		Fields:       map[string]entity.ExtractedField{},
	}
	p.validator.Apply(rec)
	rec.ValidationErrors = append([]string{FailureMessage(cause)}, rec.ValidationErrors...)
	return rec
}

// FailureMessage explains a processing failure to a reviewer.
func FailureMessage(err error) string {
	switch {
	case common.IsDecodeError(err):
		return "document could not be decoded: " + err.Error()
	case common.IsEngineUnavailable(err):
		return "text recognition failed: " + err.Error()
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "processing was interrupted: " + err.Error()
	default:
		return "processing failed: " + err.Error()
	}
}

// ErrorCode maps a processing error onto the AppError code reported per batch item.
func ErrorCode(err error) string {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "INTERNAL"
}

// ProcessBatch processes inputs sequentially. A failing document never aborts
// the rest; each item reports its own outcome. When repositories are
// configured, every item is stored and the run is recorded.
func (p *Processor) ProcessBatch(ctx context.Context, inputs []Input) (*entity.BatchResult, error) {
	if len(inputs) == 0 {
		return nil, common.NewAppError(common.CodeInvalidInput, "batch is empty", common.ErrInvalidInput)
	}
	if len(inputs) > p.maxBatch {
		return nil, common.NewAppError(common.CodeInvalidInput,
			fmt.Sprintf("batch of %d exceeds the limit of %d", len(inputs), p.maxBatch), common.ErrInvalidInput)
	}

	result := &entity.BatchResult{Items: make([]entity.BatchItem, 0, len(inputs))}
	var run *entity.BatchRun
	if p.batches != nil {
		var err error
		if run, err = p.batches.Start(ctx, batchSource(inputs), len(inputs)); err != nil {
			return nil, err
		}
		result.RunID = run.ID
	}

	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			p.finishRun(run, result)
			return result, fmt.Errorf("batch interrupted after %d of %d: %w", i, len(inputs), err)
		}
		item := p.batchItem(ctx, i, in)
		if item.OK() {
			result.Succeeded++
		} else {
			result.Failed++
		}
		result.Items = append(result.Items, item)
	}

	p.finishRun(run, result)
	p.logger.Info("processor.batch.done",
		"run_id", result.RunID,
		"total", len(inputs),
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"status", result.Status(),
	)
	return result, nil
}

func (p *Processor) batchItem(ctx context.Context, index int, in Input) entity.BatchItem {
	if in.DocumentID == "" {
		in.DocumentID = entity.DocumentIDFor(in.Content)
	}
	item := entity.BatchItem{Index: index, DocumentID: in.DocumentID, Source: in.Source}

	var (
		rec *entity.ExtractionRecord
		err error
	)
	if p.records != nil {
		rec, err = p.ProcessAndStore(ctx, in)
	} else {
		rec, err = p.Process(ctx, in)
	}
	item.Record = rec
	if err != nil {
		item.Err = err.Error()
		item.ErrorCode = ErrorCode(err)
		p.logger.Warn("processor.batch.item_failed", "index", index, "document_id", in.DocumentID, "source", in.Source, "err", err)
	}
	return item
}

// finishRun records the outcome. It runs on a fresh context so an interrupted batch is still closed.
func (p *Processor) finishRun(run *entity.BatchRun, result *entity.BatchResult) {
	if run == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.batches.Finish(ctx, run.ID, result.Succeeded, result.Failed, result.Status()); err != nil {
		p.logger.Error("processor.batch.finish_failed", "run_id", run.ID, "err", err)
	}
}

func batchSource(inputs []Input) string {
	if inputs[0].Source == "" {
		return "batch"
	}
	return inputs[0].Source
}

// Revalidate applies caller-edited values to the latest record of a document
// and re-runs validation only. Edited fields get confidence 100 and the
// manual pattern index; an empty value removes the field.
func (p *Processor) Revalidate(ctx context.Context, documentID string, edited map[string]string) (*entity.ExtractionRecord, error) {
	if p.records == nil {
		return nil, common.NewAppError(common.CodeConfig, "processor has no record repository", common.ErrInvalidInput)
	}
	if err := checkFieldNames(edited); err != nil {
		return nil, err
	}
	rec, err := p.records.GetLatestByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if rec.Fields == nil {
		rec.Fields = map[string]entity.ExtractedField{}
	}

	for name, raw := range edited {
		value := p.extractor.Normalize(name, raw)
		if value == "" {
			delete(rec.Fields, name)
			continue
		}
		rec.Fields[name] = entity.ExtractedField{
			Name:         name,
			Raw:          raw,
			Value:        value,
			Confidence:   100,
			PatternIndex: entity.PatternIndexManual,
		}
	}
	rec.OverallConfidence = extract.OverallConfidence(rec.Fields)
	vo := p.validator.Apply(rec)
	rec.Revision++
	rec.ValidatedAt = time.Now().UTC()

	if err := p.records.UpdateValidation(ctx, rec); err != nil {
		return nil, err
	}
	p.logger.Info("processor.revalidated",
		"document_id", documentID,
		"record_id", rec.ID,
		"revision", rec.Revision,
		"edited", len(edited),
		"status", vo.Status,
		"manual_review", vo.ManualReview,
	)
	return rec, nil
}

func checkFieldNames(edited map[string]string) error {
	if len(edited) == 0 {
		return common.NewAppError(common.CodeInvalidInput, "no fields to revalidate", common.ErrInvalidInput)
	}
	known := common.OneOf(constants.ExportFieldOrder...)
	v := common.NewValidator()
	for name := range edited {
		v.Field("fields", name, known)
	}
	return v.Err()
}
