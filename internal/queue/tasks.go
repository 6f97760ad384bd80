// Package queue distributes document extraction over Redis with asynq.
package queue

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hibiken/asynq"

	"github.com/joseph-ayodele/ttn-extractor/constants"
	"github.com/joseph-ayodele/ttn-extractor/internal/common"
)

// TypeExtractDocument is the task type consumed by ttn-worker.
const TypeExtractDocument = "extract:document"

// ExtractPayload points a worker at a spooled document.
type ExtractPayload struct {
	DocumentID string              `json:"document_id"`
	Path       string              `json:"path"`
	MediaType  constants.MediaType `json:"media_type,omitempty"`
	Page       int                 `json:"page"`
	AllPages   bool                `json:"all_pages,omitempty"`
}

func (p ExtractPayload) validate() error {
	if p.DocumentID == "" {
		return common.NewAppError(common.CodeInvalidInput, "document_id is required", common.ErrInvalidInput)
	}
	if p.Path == "" {
		return common.NewAppError(common.CodeInvalidInput, "path is required", common.ErrInvalidInput)
	}
	if p.Page < 0 {
		return common.NewAppError(common.CodeInvalidInput, "page must not be negative", common.ErrInvalidInput)
	}
	return nil
}

// NewExtractTask builds an extract:document task.
func NewExtractTask(p ExtractPayload) (*asynq.Task, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(TypeExtractDocument, b), nil
}

// ParseExtractPayload decodes and checks a task payload.
func ParseExtractPayload(t *asynq.Task) (ExtractPayload, error) {
	var p ExtractPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, common.NewAppError(common.CodeInvalidInput, "decode extract payload", fmt.Errorf("%w: %w", common.ErrInvalidInput, err))
	}
	return p, p.validate()
}

// Spool writes content where workers on the same volume can read it.
func Spool(dir, documentID string, content []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create spool dir: %w", err)
	}
	path := filepath.Join(dir, documentID+".bin")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("write spool file: %w", err)
	}
	return path, nil
}
