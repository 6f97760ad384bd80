package common

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestValidator(t *testing.T) {
	plate := regexp.MustCompile(`^[А-Я]\d{3}[А-Я]{2}\d{2,3}$`)

	v := NewValidator().
		Field("sender", "  ", Required).
		Field("document_date", "2024-02-30", ISODate).
		Field("document_date", "", ISODate).
		Field("vehicle_number", "A123BC77", Matches(plate, "must look like А123ВС77")).
		Field("vehicle_number", "А123ВС77", Matches(plate, "must look like А123ВС77")).
		Field("fields", "colour", OneOf("sender", "receiver"))

	require.True(t, v.HasErrors())
	assert.Equal(t, []string{
		"sender: is required",
		"document_date: must be a valid date in YYYY-MM-DD format",
		"vehicle_number: must look like А123ВС77",
		"fields: unknown value colour",
	}, v.Messages())
	assert.Len(t, v.Errors(), 4)
	assert.ErrorIs(t, v.Err(), ErrInvalidInput)

	assert.NoError(t, NewValidator().Field("sender", "ООО Альфа", Required).Err())
}

func TestErrorPredicates(t *testing.T) {
	dec := NewDecodeError("bad header", errors.New("eof"))
	assert.True(t, IsDecodeError(dec))
	assert.False(t, IsEngineUnavailable(dec))

	wrapped := fmt.Errorf("page 2: %w", NewEngineUnavailable("timeout", nil))
	assert.True(t, IsEngineUnavailable(wrapped))
}

func TestToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code codes.Code
	}{
		{"decode", NewDecodeError("x", nil), codes.FailedPrecondition},
		{"engine", NewEngineUnavailable("x", nil), codes.Unavailable},
		{"not found", NewAppError(CodeNotFound, "record", ErrNotFound), codes.NotFound},
		{"invalid", NewValidator().Field("a", "", Required).Err(), codes.InvalidArgument},
		{"other", errors.New("boom"), codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, status.Code(ToStatus(tt.err)))
		})
	}
	assert.NoError(t, ToStatus(nil))
}

func TestLoggerFrom(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	ctx := WithDocumentID(WithRequestID(context.Background(), "req-1"), "doc-1")
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Equal(t, "doc-1", DocumentIDFromContext(ctx))

	LoggerFrom(ctx, base).Info("hello")
	assert.Contains(t, buf.String(), "request_id=req-1")
	assert.Contains(t, buf.String(), "document_id=doc-1")
	assert.Empty(t, RequestIDFromContext(context.Background()))
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"no engines", func(c *Config) { c.Engines.Enabled = nil }, true},
		{"threshold out of range", func(c *Config) { c.Pipeline.ManualThreshold = 120 }, true},
		{"batch too large", func(c *Config) { c.Pipeline.MaxBatch = 500 }, true},
		{"no database", func(c *Config) { c.Database.DSN = ""; c.Database.SQLitePath = "" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := LoadConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("ENGINES", " Tesseract , ,ocrspace")
	t.Setenv("MAX_BATCH_SIZE", "25")
	t.Setenv("IMAGE_DENOISE", "false")
	t.Setenv("ENGINE_TIMEOUT", "not-a-duration")

	cfg := LoadConfig()
	assert.Equal(t, []string{"tesseract", "ocrspace"}, cfg.Engines.Enabled)
	assert.Equal(t, 25, cfg.Pipeline.MaxBatch)
	assert.False(t, cfg.OCR.Denoise)
	assert.Equal(t, "30s", cfg.Engines.Timeout.String())
}
