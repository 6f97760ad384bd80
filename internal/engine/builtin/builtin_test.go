package builtin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/ttn-extractor/internal/common"
)

func TestNewRegistry_AbsentEngines(t *testing.T) {
	cfg := common.LoadConfig()
	cfg.Engines.Enabled = []string{"ocrspace", "tesseract", "made-up"}
	cfg.Engines.OCRSpaceAPIKey = ""
	cfg.OCR.Tesseract = "no-such-tesseract-binary"

	r := NewRegistry(cfg, nil)
	entries := r.Entries()
	require.Len(t, entries, 3)
	for _, e := range entries {
		assert.False(t, e.Present, e.Name)
		assert.NotEmpty(t, e.Reason)
	}
	assert.Empty(t, r.Available())
}

func TestNewRegistry_OCRSpaceWithKey(t *testing.T) {
	cfg := common.LoadConfig()
	cfg.Engines.Enabled = []string{"ocrspace"}
	cfg.Engines.OCRSpaceAPIKey = "key"

	r := NewRegistry(cfg, nil)
	require.Len(t, r.Available(), 1)
	assert.Equal(t, "ocrspace", r.Available()[0].Name())
}
