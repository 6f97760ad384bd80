// Package builtin maps engine names from configuration to their constructors.
package builtin

import (
	"log/slog"
	"net/http"

	"github.com/joseph-ayodele/ttn-extractor/internal/common"
	"github.com/joseph-ayodele/ttn-extractor/internal/engine"
	"github.com/joseph-ayodele/ttn-extractor/internal/engine/gosseract"
	"github.com/joseph-ayodele/ttn-extractor/internal/engine/ocrspace"
	"github.com/joseph-ayodele/ttn-extractor/internal/engine/tesseract"
)

// Factories returns the constructors of every engine this binary knows about.
func Factories(cfg *common.Config, logger *slog.Logger) map[string]engine.Factory {
	return map[string]engine.Factory{
		ocrspace.Name: func() (engine.Engine, error) {
			e, err := ocrspace.New(ocrspace.Config{
				APIKey: cfg.Engines.OCRSpaceAPIKey,
				URL:    cfg.Engines.OCRSpaceURL,
				Client: &http.Client{Timeout: cfg.Engines.Timeout},
			}, logger)
			if err != nil {
				return nil, err
			}
			return e, nil
		},
		tesseract.Name: func() (engine.Engine, error) {
			e, err := tesseract.New(tesseract.Config{
				Binary:      cfg.OCR.Tesseract,
				TessdataDir: cfg.OCR.TessdataDir,
				TSV:         true,
			}, nil, logger)
			if err != nil {
				return nil, err
			}
			return e, nil
		},
		gosseract.Name: func() (engine.Engine, error) {
			e, err := gosseract.New(gosseract.Config{
				TessdataDir: cfg.OCR.TessdataDir,
				DPI:         cfg.OCR.DPI,
			}, logger)
			if err != nil {
				return nil, err
			}
			return e, nil
		},
	}
}

// NewRegistry resolves the configured engine list once.
func NewRegistry(cfg *common.Config, logger *slog.Logger) *engine.Registry {
	return engine.Resolve(cfg.Engines.Enabled, Factories(cfg, logger), logger)
}
