package queue

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const defaultMaxRetry = 3

// Enqueuer submits extract:document tasks.
type Enqueuer struct {
	client  *asynq.Client
	queue   string
	timeout time.Duration
	logger  *slog.Logger
}

// NewEnqueuer connects an asynq client to redisURL.
func NewEnqueuer(redisURL, queueName string, timeout time.Duration, logger *slog.Logger) (*Enqueuer, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if queueName == "" {
		queueName = "default"
	}
	return &Enqueuer{client: asynq.NewClient(opt), queue: queueName, timeout: timeout, logger: logger}, nil
}

// Enqueue submits p. The document id doubles as the task id, so a document
// already waiting in the queue is not queued twice.
func (e *Enqueuer) Enqueue(ctx context.Context, p ExtractPayload) (*asynq.TaskInfo, error) {
	task, err := NewExtractTask(p)
	if err != nil {
		return nil, err
	}
	opts := []asynq.Option{
		asynq.Queue(e.queue),
		asynq.MaxRetry(defaultMaxRetry),
		asynq.TaskID(p.DocumentID),
	}
	if e.timeout > 0 {
		opts = append(opts, asynq.Timeout(e.timeout))
	}
	info, err := e.client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		e.logger.Info("queue.enqueue.duplicate", "document_id", p.DocumentID)
		return nil, nil
	}
	if err != nil {
		e.logger.Error("queue.enqueue.failed", "document_id", p.DocumentID, "err", err)
		return nil, err
	}
	e.logger.Info("queue.enqueued", "document_id", p.DocumentID, "task_id", info.ID, "queue", info.Queue)
	return info, nil
}

func (e *Enqueuer) Close() error { return e.client.Close() }
