//go:build !gosseract

package gosseract

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/ttn-extractor/internal/engine"
)

// Engine is absent in this build; New always fails so the registry marks it missing.
type Engine struct{}

func New(Config, *slog.Logger) (*Engine, error) { return nil, ErrNotCompiled }

func (e *Engine) Name() string { return Name }

func (e *Engine) Profiles() []engine.Profile { return profiles() }

func (e *Engine) Recognize(_ context.Context, _ []byte, p engine.Profile) (engine.Recognition, error) {
	return engine.Recognition{}, engine.Unavailable(Name, p.Name, ErrNotCompiled)
}
