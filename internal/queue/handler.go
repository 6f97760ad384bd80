package queue

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"

	"github.com/joseph-ayodele/ttn-extractor/internal/common"
	"github.com/joseph-ayodele/ttn-extractor/internal/core"
	"github.com/joseph-ayodele/ttn-extractor/internal/entity"
)

// DocumentProcessor is the part of core.Processor a worker needs.
type DocumentProcessor interface {
	ProcessAndStore(ctx context.Context, in core.Input) (*entity.ExtractionRecord, error)
}

// Handler processes extract:document tasks.
type Handler struct {
	proc     DocumentProcessor
	readFile func(string) ([]byte, error)
	logger   *slog.Logger
}

func NewHandler(proc DocumentProcessor, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{proc: proc, readFile: os.ReadFile, logger: logger}
}

// ProcessTask implements asynq.Handler. Bad payloads, unreadable spool files
// and undecodable documents are not retried; engine outages are.
func (h *Handler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	start := time.Now()
	p, err := ParseExtractPayload(t)
	if err != nil {
		h.logger.Error("queue.task.bad_payload", "type", t.Type(), "err", err)
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	content, err := h.readFile(p.Path)
	if err != nil {
		h.logger.Error("queue.task.read_failed", "document_id", p.DocumentID, "path", p.Path, "err", err)
		return fmt.Errorf("read %s: %w: %w", p.Path, err, asynq.SkipRetry)
	}

	rec, err := h.proc.ProcessAndStore(ctx, core.Input{
		DocumentID: p.DocumentID,
		Content:    content,
		MediaType:  p.MediaType,
		Page:       p.Page,
		AllPages:   p.AllPages,
		Source:     p.Path,
	})
	retry, _ := asynq.GetRetryCount(ctx)
	switch {
	case err == nil:
		h.logger.Info("queue.task.done",
			"document_id", p.DocumentID,
			"status", rec.ValidationStatus,
			"manual_review", rec.ManualReviewRequired,
			"took", time.Since(start),
		)
		return nil
	case common.IsDecodeError(err):
		h.logger.Warn("queue.task.undecodable", "document_id", p.DocumentID, "err", err)
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	default:
		h.logger.Warn("queue.task.failed", "document_id", p.DocumentID, "retry", retry, "err", err)
		return err
	}
}

// NewServeMux routes extract:document to h.
func NewServeMux(h *Handler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(TypeExtractDocument, h)
	return mux
}

// ServerConfig is the asynq server setup used by ttn-worker.
func ServerConfig(concurrency int, queueName string, logger *slog.Logger) asynq.Config {
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency <= 0 {
		concurrency = 2
	}
	return asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName: 10,
			"default": 1,
		},
		RetryDelayFunc: RetryDelay,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Error("queue.task.error", "type", task.Type(), "payload", string(task.Payload()), "err", err)
		}),
	}
}

// RetryDelay backs off exponentially from 5s, capped at one minute.
func RetryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	if n > 4 {
		return time.Minute
	}
	delay := time.Duration(5*(1<<uint(n))) * time.Second
	if delay > time.Minute {
		delay = time.Minute
	}
	return delay
}
