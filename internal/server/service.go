package server

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/ttn-extractor/constants"
	"github.com/joseph-ayodele/ttn-extractor/internal/async"
	"github.com/joseph-ayodele/ttn-extractor/internal/common"
	"github.com/joseph-ayodele/ttn-extractor/internal/core"
	"github.com/joseph-ayodele/ttn-extractor/internal/entity"
	"github.com/joseph-ayodele/ttn-extractor/internal/export"
	"github.com/joseph-ayodele/ttn-extractor/internal/queue"
	"github.com/joseph-ayodele/ttn-extractor/internal/repository"
)

// Pipeline is the part of core.Processor the service calls.
type Pipeline interface {
	Process(ctx context.Context, in core.Input) (*entity.ExtractionRecord, error)
	ProcessAndStore(ctx context.Context, in core.Input) (*entity.ExtractionRecord, error)
	Revalidate(ctx context.Context, documentID string, edited map[string]string) (*entity.ExtractionRecord, error)
}

// TaskEnqueuer hands spooled documents to remote workers.
type TaskEnqueuer interface {
	Enqueue(ctx context.Context, p queue.ExtractPayload) (*asynq.TaskInfo, error)
}

type Config struct {
	Pipeline        Pipeline
	Records         repository.RecordRepository
	Exporter        *export.Service
	Queue           async.Queue  // in-process workers
	Tasks           TaskEnqueuer // takes precedence over Queue when set
	SpoolDir        string
	MaxContentBytes int
	Logger          *slog.Logger
}

type ExtractionService struct {
	cfg    Config
	logger *slog.Logger
}

var _ ExtractionServer = (*ExtractionService)(nil)

func NewExtractionService(cfg Config) *ExtractionService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxContentBytes <= 0 {
		cfg.MaxContentBytes = 32 << 20
	}
	return &ExtractionService{cfg: cfg, logger: logger}
}

// toStatus keeps gRPC status errors and maps pipeline errors.
func toStatus(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	return common.ToStatus(err)
}

func (s *ExtractionService) input(in *structpb.Struct) (core.Input, error) {
	content, err := getContent(in, s.cfg.MaxContentBytes)
	if err != nil {
		return core.Input{}, err
	}
	page, err := getInt(in, "page")
	if err != nil {
		return core.Input{}, err
	}
	docID := getString(in, "document_id")
	if docID == "" {
		docID = entity.DocumentIDFor(content)
	}
	return core.Input{
		DocumentID: docID,
		Content:    content,
		MediaType:  constants.ParseMediaType(getString(in, "media_type")),
		Page:       page,
		AllPages:   getBool(in, "all_pages"),
		Source:     "grpc",
	}, nil
}

// Extract processes a document synchronously. With store set the record is
// persisted and a recognition failure still yields the stored record.
func (s *ExtractionService) Extract(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in, err := s.input(req)
	if err != nil {
		return nil, err
	}
	logger := common.LoggerFrom(common.WithDocumentID(ctx, in.DocumentID), s.logger)
	logger.Info("extract request", "bytes", len(in.Content), "store", getBool(req, "store"))

	var rec *entity.ExtractionRecord
	if getBool(req, "store") {
		if s.cfg.Records == nil {
			return nil, common.FailedPreconditionError("storage is not configured")
		}
		rec, err = s.cfg.Pipeline.ProcessAndStore(ctx, in)
		if rec != nil && err != nil {
			logger.Warn("extract stored failure for review", "error", err)
			err = nil
		}
	} else {
		rec, err = s.cfg.Pipeline.Process(ctx, in)
	}
	if err != nil {
		logger.Error("extract failed", "error", err)
		return nil, toStatus(err)
	}
	out, err := outputStruct(rec)
	if err != nil {
		logger.Error("extract output rejected", "error", err)
		return nil, common.InternalError(err.Error())
	}
	return out, nil
}

// Submit queues a document for background processing.
func (s *ExtractionService) Submit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in, err := s.input(req)
	if err != nil {
		return nil, err
	}

	logger := common.LoggerFrom(common.WithDocumentID(ctx, in.DocumentID), s.logger)
	backend := "local"
	switch {
	case s.cfg.Tasks != nil:
		backend = "asynq"
		path, err := queue.Spool(s.cfg.SpoolDir, in.DocumentID, in.Content)
		if err != nil {
			logger.Error("submit spool failed", "error", err)
			return nil, common.InternalError(err.Error())
		}
		if _, err := s.cfg.Tasks.Enqueue(ctx, queue.ExtractPayload{
			DocumentID: in.DocumentID,
			Path:       path,
			MediaType:  in.MediaType,
			Page:       in.Page,
			AllPages:   in.AllPages,
		}); err != nil {
			logger.Error("submit enqueue failed", "error", err)
			return nil, common.UnavailableError(err.Error())
		}
	case s.cfg.Queue != nil:
		err := s.cfg.Queue.Enqueue(ctx, async.Job{
			DocumentID:  in.DocumentID,
			Content:     in.Content,
			MediaType:   in.MediaType,
			Page:        in.Page,
			AllPages:    in.AllPages,
			Source:      in.Source,
			SubmittedAt: time.Now(),
			TraceID:     common.RequestIDFromContext(ctx),
		})
		if err != nil {
			logger.Error("submit enqueue failed", "error", err)
			if errors.Is(err, async.ErrClosed) {
				return nil, common.UnavailableError(err.Error())
			}
			return nil, toStatus(err)
		}
	default:
		return nil, common.FailedPreconditionError("background processing is not configured")
	}

	logger.Info("document submitted", "backend", backend)
	return structpb.NewStruct(map[string]any{
		"document_id": in.DocumentID,
		"queued":      true,
		"backend":     backend,
	})
}

// GetRecord returns the latest stored record of a document.
func (s *ExtractionService) GetRecord(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.cfg.Records == nil {
		return nil, common.FailedPreconditionError("storage is not configured")
	}
	docID := getString(req, "document_id")
	if docID == "" {
		return nil, common.InvalidArgumentError("document_id is required")
	}
	rec, err := s.cfg.Records.GetLatestByDocument(ctx, docID)
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := outputStruct(rec)
	if err != nil {
		return nil, common.InternalError(err.Error())
	}
	return out, nil
}

// Revalidate applies reviewer edits and re-runs validation only.
func (s *ExtractionService) Revalidate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	docID := getString(req, "document_id")
	if docID == "" {
		return nil, common.InvalidArgumentError("document_id is required")
	}
	fields, err := getFields(req, "fields")
	if err != nil {
		return nil, err
	}
	rec, err := s.cfg.Pipeline.Revalidate(ctx, docID, fields)
	if err != nil {
		s.logger.Warn("revalidate failed", "document_id", docID, "error", err)
		return nil, toStatus(err)
	}
	out, err := outputStruct(rec)
	if err != nil {
		return nil, common.InternalError(err.Error())
	}
	return out, nil
}

// ExportRecords renders stored records as an XLSX workbook.
func (s *ExtractionService) ExportRecords(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.cfg.Exporter == nil {
		return nil, common.FailedPreconditionError("export is not configured")
	}
	limit, err := getInt(req, "limit")
	if err != nil {
		return nil, err
	}
	filter := repository.RecordFilter{
		DocumentID: getString(req, "document_id"),
		Limit:      limit,
	}
	if st := getString(req, "status"); st != "" {
		switch vs := constants.ValidationStatus(st); vs {
		case constants.ValidationValid, constants.ValidationPartial, constants.ValidationInvalid:
			filter.Status = vs
		default:
			return nil, common.InvalidArgumentError("status must be one of valid, partial, invalid")
		}
	}
	if v, ok := req.GetFields()["manual_review"]; ok {
		flag := v.GetBoolValue()
		filter.ManualReview = &flag
	}

	xlsx, err := s.cfg.Exporter.RecordsXLSX(ctx, filter)
	if err != nil {
		s.logger.Error("export.xlsx.failed", "error", err)
		return nil, toStatus(err)
	}
	return structpb.NewStruct(map[string]any{
		"xlsx_base64": base64.StdEncoding.EncodeToString(xlsx),
		"bytes":       len(xlsx),
	})
}
