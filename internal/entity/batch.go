package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/ttn-extractor/constants"
)

// BatchItem is the per-document outcome of a batch run.
type BatchItem struct {
	Index      int               `json:"index"`
	DocumentID string            `json:"document_id"`
	Source     string            `json:"source,omitempty"`
	Record     *ExtractionRecord `json:"record,omitempty"`
	Err        string            `json:"error,omitempty"`
	ErrorCode  string            `json:"error_code,omitempty"`
}

// OK reports whether the item produced a record.
func (i BatchItem) OK() bool { return i.Err == "" && i.Record != nil }

// BatchResult reports every item of a batch, in input order.
type BatchResult struct {
	RunID     uuid.UUID   `json:"run_id"`
	Items     []BatchItem `json:"items"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
}

// Status derives the run status from the item counts.
func (b BatchResult) Status() constants.BatchStatus {
	switch {
	case b.Failed == 0:
		return constants.BatchStatusDone
	case b.Succeeded == 0:
		return constants.BatchStatusFailed
	default:
		return constants.BatchStatusPartial
	}
}

// BatchRun is the persisted summary of a batch.
type BatchRun struct {
	ID         uuid.UUID             `json:"id"`
	Source     string                `json:"source"`
	Status     constants.BatchStatus `json:"status"`
	Total      int                   `json:"total"`
	Succeeded  int                   `json:"succeeded"`
	Failed     int                   `json:"failed"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt *time.Time            `json:"finished_at,omitempty"`
}
