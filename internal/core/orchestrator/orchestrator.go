// Package orchestrator runs recognition engines in priority order with a
// quality gate and a fallback profile per engine.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joseph-ayodele/ttn-extractor/internal/common"
	"github.com/joseph-ayodele/ttn-extractor/internal/engine"
	"github.com/joseph-ayodele/ttn-extractor/internal/entity"
	"github.com/joseph-ayodele/ttn-extractor/internal/imaging"
)

// State is a step of one orchestration run.
type State string

const (
	StateIdle           State = "Idle"
	StatePreparingImage State = "PreparingImage"
	StateRecognizing    State = "Recognizing"
	StateQualityGate    State = "QualityGate"
	StateResultSelected State = "ResultSelected"
	StateFailed         State = "Failed"
)

// Preparer turns a raw document into recognizable images.
type Preparer interface {
	Prepare(ctx context.Context, doc *entity.RawDocument, opts imaging.PrepareOptions) (*imaging.Prepared, error)
}

// Evaluator counts the fields a text would yield.
type Evaluator interface {
	CountFields(text string) int
}

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc func(text string) int

func (f EvaluatorFunc) CountFields(text string) int { return f(text) }

// Config carries everything a run needs; there is no package state.
type Config struct {
	Registry      *engine.Registry
	Preparer      Preparer
	Evaluator     Evaluator
	MinFields     int           // default 3
	MinConfidence float64       // default 60
	MinTextLength int           // 0 disables the length check
	EngineTimeout time.Duration // per recognize call, default 30s
	Logger        *slog.Logger
}

// Attempt is one recognize call (all pages) with one engine profile.
type Attempt struct {
	Order      int
	Engine     string
	Profile    string
	Confidence float64
	Fields     int
	TextLength int
	Marginal   bool
	Duration   time.Duration
	Err        error

	text         string
	engineFields map[string]string
}

// Trace records the state transitions and attempts of a run.
type Trace struct {
	States   []State
	Attempts []Attempt
}

func (t *Trace) enter(s State) { t.States = append(t.States, s) }

// Last returns the final state reached.
func (t *Trace) Last() State {
	if len(t.States) == 0 {
		return StateIdle
	}
	return t.States[len(t.States)-1]
}

// Outcome is the selected recognition of a document.
type Outcome struct {
	Engine       string
	Profile      string
	Text         string
	Confidence   float64
	Fields       int
	EngineFields map[string]string
	MediaType    string
	PageCount    int
	Pages        []int
	Trace        Trace
}

type Orchestrator struct {
	cfg    Config
	logger *slog.Logger
}

func New(cfg Config) (*Orchestrator, error) {
	if cfg.Registry == nil {
		return nil, common.NewAppError(common.CodeConfig, "orchestrator needs an engine registry", common.ErrInvalidInput)
	}
	if cfg.Preparer == nil {
		return nil, common.NewAppError(common.CodeConfig, "orchestrator needs an image preparer", common.ErrInvalidInput)
	}
	if cfg.Evaluator == nil {
		return nil, common.NewAppError(common.CodeConfig, "orchestrator needs a field evaluator", common.ErrInvalidInput)
	}
	if cfg.MinFields <= 0 {
		cfg.MinFields = 3
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = 60
	}
	if cfg.EngineTimeout <= 0 {
		cfg.EngineTimeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{cfg: cfg, logger: logger}, nil
}

// Run prepares doc and recognizes it. On failure the returned outcome carries only the trace.
func (o *Orchestrator) Run(ctx context.Context, doc *entity.RawDocument, opts imaging.PrepareOptions) (*Outcome, error) {
	out := &Outcome{}
	tr := &out.Trace
	tr.enter(StateIdle)

	tr.enter(StatePreparingImage)
	prepared, err := o.cfg.Preparer.Prepare(ctx, doc, opts)
	if err != nil {
		tr.enter(StateFailed)
		return out, err
	}
	out.MediaType = string(prepared.MediaType)
	out.PageCount = prepared.PageCount
	for _, img := range prepared.Images {
		out.Pages = append(out.Pages, img.Page)
	}

	engines := o.cfg.Registry.Available()
	if len(engines) == 0 {
		tr.enter(StateFailed)
		return out, common.NewEngineUnavailable("no recognition engine is available", nil)
	}

	var errs []error
	for _, eng := range engines {
		if err := ctx.Err(); err != nil {
			tr.enter(StateFailed)
			return out, fmt.Errorf("orchestrate: %w", err)
		}
		profiles := eng.Profiles()
		if len(profiles) == 0 {
			errs = append(errs, engine.Unavailable(eng.Name(), "-", errors.New("no profiles")))
			continue
		}

		tr.enter(StateRecognizing)
		primary := o.attempt(ctx, eng, profiles[0], prepared.Images, len(tr.Attempts))
		tr.Attempts = append(tr.Attempts, primary)
		if primary.Err != nil {
			errs = append(errs, primary.Err)
			continue
		}

		tr.enter(StateQualityGate)
		best := primary
		if primary.Marginal && len(profiles) > 1 {
			tr.enter(StateRecognizing)
			fallback := o.attempt(ctx, eng, profiles[1], prepared.Images, len(tr.Attempts))
			tr.Attempts = append(tr.Attempts, fallback)
			if fallback.Err == nil && Better(fallback, best) {
				best = fallback
			}
		}

		tr.enter(StateResultSelected)
		out.Engine = best.Engine
		out.Profile = best.Profile
		out.Text = best.text
		out.Confidence = best.Confidence
		out.Fields = best.Fields
		out.EngineFields = best.engineFields
		o.logger.Info("orchestrator.selected",
			"engine", best.Engine,
			"profile", best.Profile,
			"confidence", best.Confidence,
			"fields", best.Fields,
			"attempts", len(tr.Attempts),
		)
		return out, nil
	}

	tr.enter(StateFailed)
	o.logger.Warn("orchestrator.all_engines_failed", "attempts", len(tr.Attempts))
	return out, common.NewEngineUnavailable("all recognition engines failed", errors.Join(errs...))
}

// Better is the single comparator between successful attempts:
// more fields, then higher confidence, then the earlier attempt.
func Better(a, b Attempt) bool {
	if a.Fields != b.Fields {
		return a.Fields > b.Fields
	}
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	return a.Order < b.Order
}

func (o *Orchestrator) marginal(a Attempt) bool {
	return a.Fields < o.cfg.MinFields ||
		a.Confidence < o.cfg.MinConfidence ||
		(o.cfg.MinTextLength > 0 && a.TextLength < o.cfg.MinTextLength)
}

// attempt recognizes every image with one profile. Pages are joined with markers
// and the confidence is the mean over pages. Any failed page fails the attempt.
func (o *Orchestrator) attempt(ctx context.Context, eng engine.Engine, p engine.Profile, images []imaging.Image, order int) Attempt {
	start := time.Now()
	a := Attempt{Order: order, Engine: eng.Name(), Profile: p.Name}

	var (
		texts []string
		sum   float64
	)
	for _, img := range images {
		rec, err := o.recognize(ctx, eng, p, img.Data)
		if err != nil {
			a.Err = err
			a.Duration = time.Since(start)
			o.logger.Warn("orchestrator.attempt_failed",
				"engine", a.Engine, "profile", a.Profile, "page", img.Page, "error", err)
			return a
		}
		text := rec.Text
		if len(images) > 1 {
			text = fmt.Sprintf("--- page %d ---\n%s", img.Page+1, text)
		}
		texts = append(texts, text)
		sum += rec.Confidence
		for k, v := range rec.Fields {
			if a.engineFields == nil {
				a.engineFields = map[string]string{}
			}
			if _, seen := a.engineFields[k]; !seen {
				a.engineFields[k] = v
			}
		}
	}
	if len(images) > 0 {
		a.Confidence = sum / float64(len(images))
	}
	a.text = strings.Join(texts, "\n\n")
	a.TextLength = utf8.RuneCountInString(a.text)
	a.Fields = o.cfg.Evaluator.CountFields(a.text)
	a.Marginal = o.marginal(a)
	a.Duration = time.Since(start)

	o.logger.Info("orchestrator.attempt",
		"engine", a.Engine,
		"profile", a.Profile,
		"confidence", a.Confidence,
		"fields", a.Fields,
		"text_len", a.TextLength,
		"marginal", a.Marginal,
		"duration_ms", a.Duration.Milliseconds(),
	)
	return a
}

type recognizeResult struct {
	rec engine.Recognition
	err error
}

// recognize runs one engine call on its own goroutine bounded by the per-call timeout.
func (o *Orchestrator) recognize(ctx context.Context, eng engine.Engine, p engine.Profile, image []byte) (engine.Recognition, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.EngineTimeout)
	defer cancel()

	ch := make(chan recognizeResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- recognizeResult{err: fmt.Errorf("engine panic: %v", r)}
			}
		}()
		rec, err := eng.Recognize(ctx, image, p)
		ch <- recognizeResult{rec: rec, err: err}
	}()

	select {
	case res := <-ch:
		switch {
		case res.err != nil && !common.IsEngineUnavailable(res.err):
			return engine.Recognition{}, engine.Unavailable(eng.Name(), p.Name, res.err)
		case res.err != nil:
			return engine.Recognition{}, res.err
		case strings.TrimSpace(res.rec.Text) == "":
			return engine.Recognition{}, engine.Unavailable(eng.Name(), p.Name, errors.New("empty text"))
		}
		res.rec.Confidence = engine.Clamp(res.rec.Confidence)
		return res.rec, nil
	case <-ctx.Done():
		return engine.Recognition{}, engine.Unavailable(eng.Name(), p.Name,
			fmt.Errorf("no result within %s: %w", o.cfg.EngineTimeout, ctx.Err()))
	}
}
