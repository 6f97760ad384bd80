package imaging

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/joseph-ayodele/ttn-extractor/internal/common"
)

func init() {
	// pdfcpu must not create a config dir under the user's home.
	api.DisableConfigDir()
}

type RasterizerConfig struct {
	Pdftoppm string // binary name or absolute path; if empty -> "pdftoppm"
	DPI      int    // default 200
	MaxPages int    // pages rendered per call, default 5
	TempDir  string // "" -> os.TempDir()
}

// Rasterizer renders PDF pages to PNG through pdftoppm.
type Rasterizer struct {
	cfg        RasterizerConfig
	runner     Runner
	logger     *slog.Logger
	countPages func(data []byte) (int, error)
}

func NewRasterizer(cfg RasterizerConfig, runner Runner, logger *slog.Logger) *Rasterizer {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ExecRunner{Logger: logger}
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 200
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 5
	}
	return &Rasterizer{cfg: cfg, runner: runner, logger: logger, countPages: pdfcpuPageCount}
}

func pdfcpuPageCount(data []byte) (n int, err error) {
	// pdfcpu panics on some malformed cross-reference tables.
	defer func() {
		if rec := recover(); rec != nil {
			n, err = 0, fmt.Errorf("pdfcpu: %v", rec)
		}
	}()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return api.PageCount(bytes.NewReader(data), conf)
}

// PageCount returns the number of pages; unreadable PDFs yield a decode error.
func (r *Rasterizer) PageCount(data []byte) (int, error) {
	n, err := r.countPages(data)
	if err != nil {
		return 0, common.NewDecodeError("read pdf", err)
	}
	if n <= 0 {
		return 0, common.NewDecodeError("pdf has no pages", nil)
	}
	return n, nil
}

// ClampPage maps a requested zero-based page index into [0, pages-1].
func ClampPage(page, pages int) int {
	if page < 0 {
		return 0
	}
	if pages > 0 && page >= pages {
		return pages - 1
	}
	return page
}

// Render rasterizes one page (zero-based, clamped) and returns the PNG and the page used.
func (r *Rasterizer) Render(ctx context.Context, data []byte, page int) ([]byte, int, error) {
	pages, err := r.PageCount(data)
	if err != nil {
		return nil, 0, err
	}
	page = ClampPage(page, pages)
	out, err := r.render(ctx, data, page, page)
	if err != nil {
		return nil, 0, err
	}
	return out[0], page, nil
}

// RenderPages rasterizes up to n pages starting at first, capped by MaxPages.
func (r *Rasterizer) RenderPages(ctx context.Context, data []byte, first, n int) ([][]byte, error) {
	pages, err := r.PageCount(data)
	if err != nil {
		return nil, err
	}
	first = ClampPage(first, pages)
	if n <= 0 || n > r.cfg.MaxPages {
		n = r.cfg.MaxPages
	}
	last := first + n - 1
	if last > pages-1 {
		last = pages - 1
	}
	return r.render(ctx, data, first, last)
}

func (r *Rasterizer) render(ctx context.Context, data []byte, first, last int) ([][]byte, error) {
	tmpDir, err := os.MkdirTemp(r.cfg.TempDir, "ttn-pp-*")
	if err != nil {
		return nil, err
	}
	defer func(path string) {
		if err := os.RemoveAll(path); err != nil {
			r.logger.Warn("failed to remove temp dir", "path", path, "error", err)
		}
	}(tmpDir)

	in := filepath.Join(tmpDir, "in.pdf")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, err
	}
	prefix := filepath.Join(tmpDir, "page")

	// pdftoppm -f <first> -l <last> -r <dpi> -png <in.pdf> <tmp/page>
	_, errb, err := r.runner.Run(ctx, r.cfg.Pdftoppm,
		"-f", strconv.Itoa(first+1),
		"-l", strconv.Itoa(last+1),
		"-r", strconv.Itoa(r.cfg.DPI),
		"-png", in, prefix,
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, common.NewDecodeError("render pdf", fmt.Errorf("%w: %s", err, Truncate(string(errb), 512)))
	}

	// collect generated pngs (page-1.png, page-2.png, ...)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if len(matches) == 0 {
		return nil, common.NewDecodeError("pdftoppm produced no images", nil)
	}

	out := make([][]byte, 0, len(matches))
	for _, m := range matches {
		b, err := os.ReadFile(m)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	r.logger.Debug("pdf rendered", "first_page", first, "last_page", last, "images", len(out), "dpi", r.cfg.DPI)
	return out, nil
}
