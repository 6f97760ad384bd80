package imaging

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/ttn-extractor/constants"
	"github.com/joseph-ayodele/ttn-extractor/internal/common"
	"github.com/joseph-ayodele/ttn-extractor/internal/entity"
)

// Image is a normalized raster ready for recognition. It is discarded after use.
type Image struct {
	Page int
	Data []byte
}

// PrepareOptions selects what part of a document gets rendered.
type PrepareOptions struct {
	Page     int  // zero-based page for PDFs, clamped
	AllPages bool // render up to MaxPages starting at Page
}

// Prepared is the output of the PreparingImage step.
type Prepared struct {
	MediaType constants.MediaType
	PageCount int
	Images    []Image
}

// Preparer turns raw document bytes into enhanced images.
type Preparer struct {
	rasterizer *Rasterizer
	enhancer   *Enhancer
	logger     *slog.Logger
}

func NewPreparer(r *Rasterizer, e *Enhancer, logger *slog.Logger) *Preparer {
	if logger == nil {
		logger = slog.Default()
	}
	if e == nil {
		e = NewEnhancer(DefaultEnhanceOptions())
	}
	return &Preparer{rasterizer: r, enhancer: e, logger: logger}
}

// ResolveMediaType prefers the byte signature and falls back to the declared type.
func ResolveMediaType(content []byte, declared constants.MediaType) constants.MediaType {
	if detected := DetectMediaType(content); detected != constants.MediaUnknown {
		return detected
	}
	if declared == "" {
		return constants.MediaUnknown
	}
	return declared
}

func (p *Preparer) Prepare(ctx context.Context, doc *entity.RawDocument, opts PrepareOptions) (*Prepared, error) {
	if doc == nil || len(doc.Content) == 0 {
		return nil, common.NewDecodeError("empty document", nil)
	}
	mt := ResolveMediaType(doc.Content, doc.MediaType)
	switch {
	case mt == constants.MediaPDF:
		return p.preparePDF(ctx, doc.Content, opts)
	case mt.IsImage():
		img, err := p.enhancer.Enhance(doc.Content)
		if err != nil {
			return nil, err
		}
		return &Prepared{MediaType: mt, PageCount: 1, Images: []Image{{Page: 0, Data: img}}}, nil
	default:
		return nil, common.NewDecodeError("unsupported media type", nil)
	}
}

func (p *Preparer) preparePDF(ctx context.Context, content []byte, opts PrepareOptions) (*Prepared, error) {
	if p.rasterizer == nil {
		return nil, common.NewDecodeError("pdf rendering is not configured", nil)
	}
	pages, err := p.rasterizer.PageCount(content)
	if err != nil {
		return nil, err
	}

	var raw [][]byte
	first := ClampPage(opts.Page, pages)
	if opts.AllPages {
		raw, err = p.rasterizer.RenderPages(ctx, content, first, 0)
	} else {
		var one []byte
		one, first, err = p.rasterizer.Render(ctx, content, first)
		raw = [][]byte{one}
	}
	if err != nil {
		return nil, err
	}

	images := make([]Image, 0, len(raw))
	for i, b := range raw {
		enhanced, err := p.enhancer.Enhance(b)
		if err != nil {
			return nil, err
		}
		images = append(images, Image{Page: first + i, Data: enhanced})
	}
	p.logger.Debug("pdf prepared", "pages", pages, "first_page", first, "images", len(images))
	return &Prepared{MediaType: constants.MediaPDF, PageCount: pages, Images: images}, nil
}
