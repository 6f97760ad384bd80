package async

import (
	"context"
	"errors"
	"time"

	"github.com/joseph-ayodele/ttn-extractor/constants"
)

// ErrClosed is returned by Enqueue once shutdown has begun.
var ErrClosed = errors.New("queue is shutting down")

// Job is one document submitted for background extraction.
type Job struct {
	DocumentID  string
	Content     []byte
	MediaType   constants.MediaType
	Page        int
	AllPages    bool
	Source      string
	SubmittedAt time.Time
	TraceID     string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
