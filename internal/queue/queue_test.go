package queue

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/ttn-extractor/constants"
	"github.com/joseph-ayodele/ttn-extractor/internal/common"
	"github.com/joseph-ayodele/ttn-extractor/internal/core"
	"github.com/joseph-ayodele/ttn-extractor/internal/entity"
)

type stubProcessor struct {
	inputs []core.Input
	err    error
}

func (s *stubProcessor) ProcessAndStore(_ context.Context, in core.Input) (*entity.ExtractionRecord, error) {
	s.inputs = append(s.inputs, in)
	return &entity.ExtractionRecord{DocumentID: in.DocumentID}, s.err
}

func TestNewExtractTask(t *testing.T) {
	task, err := NewExtractTask(ExtractPayload{DocumentID: "doc", Path: "/spool/doc.bin", Page: 2})
	require.NoError(t, err)
	assert.Equal(t, TypeExtractDocument, task.Type())
	assert.JSONEq(t, `{"document_id":"doc","path":"/spool/doc.bin","page":2}`, string(task.Payload()))

	got, err := ParseExtractPayload(task)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Page)

	for _, bad := range []ExtractPayload{
		{Path: "/x"},
		{DocumentID: "doc"},
		{DocumentID: "doc", Path: "/x", Page: -1},
	} {
		_, err := NewExtractTask(bad)
		assert.ErrorIs(t, err, common.ErrInvalidInput)
	}
}

func TestSpool(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "spool")
	path, err := Spool(dir, "doc-1", []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "doc-1.bin"), path)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(b))
}

func TestHandler_ProcessTask(t *testing.T) {
	dir := t.TempDir()
	path, err := Spool(dir, "doc-1", []byte("image"))
	require.NoError(t, err)
	task, err := NewExtractTask(ExtractPayload{DocumentID: "doc-1", Path: path, MediaType: constants.MediaPDF, Page: 1, AllPages: true})
	require.NoError(t, err)

	tests := []struct {
		name      string
		procErr   error
		wantErr   bool
		skipRetry bool
	}{
		{name: "success"},
		{name: "decode error is final", procErr: common.NewDecodeError("corrupt", nil), wantErr: true, skipRetry: true},
		{name: "engine outage retries", procErr: common.NewEngineUnavailable("down", nil), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc := &stubProcessor{err: tt.procErr}
			err := NewHandler(proc, nil).ProcessTask(context.Background(), task)
			require.Len(t, proc.inputs, 1)
			assert.Equal(t, "doc-1", proc.inputs[0].DocumentID)
			assert.Equal(t, []byte("image"), proc.inputs[0].Content)
			assert.Equal(t, 1, proc.inputs[0].Page)
			assert.Equal(t, constants.MediaPDF, proc.inputs[0].MediaType)
			assert.True(t, proc.inputs[0].AllPages)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.skipRetry, errors.Is(err, asynq.SkipRetry))
		})
	}
}

func TestHandler_BadInputSkipsRetry(t *testing.T) {
	proc := &stubProcessor{}
	h := NewHandler(proc, nil)

	err := h.ProcessTask(context.Background(), asynq.NewTask(TypeExtractDocument, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	task, err := NewExtractTask(ExtractPayload{DocumentID: "gone", Path: filepath.Join(t.TempDir(), "missing.bin")})
	require.NoError(t, err)
	err = h.ProcessTask(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Empty(t, proc.inputs)
}

func TestRetryDelay(t *testing.T) {
	assert.Equal(t, 5*time.Second, RetryDelay(0, nil, nil))
	assert.Equal(t, 20*time.Second, RetryDelay(2, nil, nil))
	assert.Equal(t, time.Minute, RetryDelay(4, nil, nil))
	assert.Equal(t, time.Minute, RetryDelay(30, nil, nil))
}

func TestServerConfig(t *testing.T) {
	cfg := ServerConfig(0, "ttn", nil)
	assert.Equal(t, 2, cfg.Concurrency)
	assert.Equal(t, 10, cfg.Queues["ttn"])
	assert.NotNil(t, cfg.ErrorHandler)
}
