//go:build gosseract

package gosseract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/joseph-ayodele/ttn-extractor/internal/engine"
)

// Engine drives one gosseract client per call; the client is not goroutine safe.
type Engine struct {
	cfg           Config
	logger        *slog.Logger
	clientFactory func() *gosseract.Client
}

func New(cfg Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{cfg: cfg, logger: logger, clientFactory: gosseract.NewClient}, nil
}

func (e *Engine) Name() string { return Name }

func (e *Engine) Profiles() []engine.Profile { return profiles() }

func (e *Engine) Recognize(ctx context.Context, image []byte, p engine.Profile) (engine.Recognition, error) {
	if err := ctx.Err(); err != nil {
		return engine.Recognition{}, engine.Unavailable(Name, p.Name, err)
	}
	c := e.clientFactory()
	defer func() {
		if err := c.Close(); err != nil {
			e.logger.Warn("gosseract.close_error", "error", err)
		}
	}()

	if e.cfg.TessdataDir != "" {
		if err := c.SetTessdataPrefix(e.cfg.TessdataDir); err != nil {
			return engine.Recognition{}, engine.Unavailable(Name, p.Name, fmt.Errorf("set tessdata: %w", err))
		}
	}
	if err := c.SetImageFromBytes(image); err != nil {
		return engine.Recognition{}, engine.Unavailable(Name, p.Name, fmt.Errorf("set image: %w", err))
	}
	if err := c.SetLanguage(strings.Split(p.Language, "+")...); err != nil {
		return engine.Recognition{}, engine.Unavailable(Name, p.Name, fmt.Errorf("set languages: %w", err))
	}
	if p.PSM > 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(p.PSM)); err != nil {
			return engine.Recognition{}, engine.Unavailable(Name, p.Name, fmt.Errorf("set psm: %w", err))
		}
	}
	if e.cfg.DPI > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(e.cfg.DPI)); err != nil {
			return engine.Recognition{}, engine.Unavailable(Name, p.Name, fmt.Errorf("set dpi: %w", err))
		}
	}
	text, err := c.Text()
	if err != nil {
		return engine.Recognition{}, engine.Unavailable(Name, p.Name, fmt.Errorf("recognize text: %w", err))
	}
	text = engine.CleanText(text)
	if text == "" {
		return engine.Recognition{}, engine.Unavailable(Name, p.Name, errors.New("empty text"))
	}
	return engine.Recognition{
		Text:       text,
		Confidence: engine.Blend(wordConfidence(c), engine.HeuristicConfidence(text)),
	}, nil
}

// wordConfidence averages per-word confidences, 0..100.
func wordConfidence(c *gosseract.Client) float64 {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence
	}
	return sum / float64(len(boxes))
}
