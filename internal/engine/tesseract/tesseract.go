package tesseract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/ttn-extractor/internal/engine"
	"github.com/joseph-ayodele/ttn-extractor/internal/imaging"
)

const Name = "tesseract"

type Config struct {
	Binary      string // "tesseract" by default
	TessdataDir string
	TempDir     string
	TSV         bool // run a second pass for word confidences
}

// Engine shells out to the tesseract CLI.
type Engine struct {
	cfg    Config
	runner imaging.Runner
	logger *slog.Logger
}

// New probes the binary; a missing binary leaves the engine absent.
func New(cfg Config, runner imaging.Runner, logger *slog.Logger) (*Engine, error) {
	if cfg.Binary == "" {
		cfg.Binary = "tesseract"
	}
	if runner == nil {
		if _, err := exec.LookPath(cfg.Binary); err != nil {
			return nil, fmt.Errorf("tesseract binary: %w", err)
		}
	}
	return newEngine(cfg, runner, logger), nil
}

func newEngine(cfg Config, runner imaging.Runner, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = imaging.ExecRunner{Logger: logger}
	}
	if cfg.Binary == "" {
		cfg.Binary = "tesseract"
	}
	return &Engine{cfg: cfg, runner: runner, logger: logger}
}

func (e *Engine) Name() string { return Name }

// Profiles: main, then the mixed-script fallback.
func (e *Engine) Profiles() []engine.Profile {
	return []engine.Profile{
		{Name: "main", Language: "rus", PSM: 6, OEM: 3},
		{Name: "mixed", Language: "rus+eng", PSM: 6, OEM: 3},
	}
}

func (e *Engine) Recognize(ctx context.Context, image []byte, p engine.Profile) (engine.Recognition, error) {
	dir, err := os.MkdirTemp(e.cfg.TempDir, "tess-*")
	if err != nil {
		return engine.Recognition{}, engine.Unavailable(Name, p.Name, fmt.Errorf("mktemp: %w", err))
	}
	defer func() { _ = os.RemoveAll(dir) }()

	path := filepath.Join(dir, "page.png")
	if err := os.WriteFile(path, image, 0o600); err != nil {
		return engine.Recognition{}, engine.Unavailable(Name, p.Name, fmt.Errorf("write image: %w", err))
	}

	out, errb, err := e.runner.Run(ctx, e.cfg.Binary, e.args(path, p)...)
	if err != nil {
		return engine.Recognition{}, engine.Unavailable(Name, p.Name,
			fmt.Errorf("%w: %s", err, imaging.Truncate(strings.TrimSpace(string(errb)), 512)))
	}
	text := engine.CleanText(string(out))
	if text == "" {
		return engine.Recognition{}, engine.Unavailable(Name, p.Name, errors.New("empty text"))
	}

	var native float64
	if e.cfg.TSV {
		tsv, _, err := e.runner.Run(ctx, e.cfg.Binary, append(e.args(path, p), "tsv")...)
		if err != nil {
			e.logger.Warn("tesseract.tsv_failed", "profile", p.Name, "error", err)
		} else {
			native = meanWordConfidence(string(tsv))
		}
	}
	return engine.Recognition{
		Text:       text,
		Confidence: engine.Blend(native, engine.HeuristicConfidence(text)),
	}, nil
}

// args: tesseract <file> stdout -l <lang> --psm N --oem N [--tessdata-dir D]
func (e *Engine) args(path string, p engine.Profile) []string {
	args := []string{path, "stdout", "-l", p.Language}
	if p.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(p.PSM))
	}
	if p.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(p.OEM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	return args
}

// meanWordConfidence averages the conf column of tesseract TSV output, 0..100.
func meanWordConfidence(tsv string) float64 {
	lines := strings.Split(tsv, "\n")
	if len(lines) == 0 {
		return 0
	}
	confCol := -1
	for i, h := range strings.Split(strings.TrimSpace(lines[0]), "\t") {
		if h == "conf" {
			confCol = i
		}
	}
	if confCol < 0 {
		return 0
	}
	var sum, n float64
	for _, ln := range lines[1:] {
		cols := strings.Split(ln, "\t")
		if len(cols) <= confCol {
			continue
		}
		c := strings.TrimSpace(cols[confCol])
		if c == "" || c == "-1" {
			continue
		}
		if v, err := strconv.ParseFloat(c, 64); err == nil && v >= 0 {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / n
}
