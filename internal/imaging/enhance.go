package imaging

import (
	"bytes"
	"image"
	"image/color"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	"image/png"
	"math"
	"sort"

	_ "golang.org/x/image/bmp"  // register decoder
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register decoder

	"github.com/joseph-ayodele/ttn-extractor/internal/common"
)

// EnhanceOptions tunes the pre-recognition image pass.
type EnhanceOptions struct {
	MinWidth   int     // upscale below this width, default 800
	MinHeight  int     // upscale below this height, default 600
	MinUpscale float64 // smallest factor applied once upscaling triggers, default 1.2
	Contrast   float64 // default 1.2
	Sharpness  float64 // default 1.1
	Denoise    bool    // 3x3 median filter
}

// DefaultEnhanceOptions mirrors the tuning used for scanned waybills.
func DefaultEnhanceOptions() EnhanceOptions {
	return EnhanceOptions{
		MinWidth:   800,
		MinHeight:  600,
		MinUpscale: 1.2,
		Contrast:   1.2,
		Sharpness:  1.1,
		Denoise:    true,
	}
}

type Enhancer struct {
	opts EnhanceOptions
}

func NewEnhancer(opts EnhanceOptions) *Enhancer {
	def := DefaultEnhanceOptions()
	if opts.MinWidth <= 0 {
		opts.MinWidth = def.MinWidth
	}
	if opts.MinHeight <= 0 {
		opts.MinHeight = def.MinHeight
	}
	if opts.MinUpscale < 1 {
		opts.MinUpscale = def.MinUpscale
	}
	if opts.Contrast <= 0 {
		opts.Contrast = def.Contrast
	}
	if opts.Sharpness <= 0 {
		opts.Sharpness = def.Sharpness
	}
	return &Enhancer{opts: opts}
}

// Enhance decodes an image, normalizes it for recognition and re-encodes it as PNG.
// Unreadable input yields a decode error, never a blank image.
func (e *Enhancer) Enhance(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, common.NewDecodeError("decode image", err)
	}
	b := src.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, common.NewDecodeError("empty image", nil)
	}

	img := toRGB(src)
	img = e.upscale(img)
	adjustContrast(img, e.opts.Contrast)
	img = sharpen(img, e.opts.Sharpness)
	if e.opts.Denoise {
		img = median3(img)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, common.WrapError(err, "encode png")
	}
	return buf.Bytes(), nil
}

// toRGB flattens src onto a white opaque canvas anchored at (0,0).
func toRGB(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	return dst
}

func (e *Enhancer) upscale(img *image.RGBA) *image.RGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if w >= e.opts.MinWidth && h >= e.opts.MinHeight {
		return img
	}
	factor := math.Max(float64(e.opts.MinWidth)/float64(w), float64(e.opts.MinHeight)/float64(h))
	factor = math.Max(factor, e.opts.MinUpscale)
	nw := int(math.Round(float64(w) * factor))
	nh := int(math.Round(float64(h) * factor))
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// adjustContrast stretches every channel around the mean luminance.
func adjustContrast(img *image.RGBA, factor float64) {
	if factor == 1 {
		return
	}
	pix := img.Pix
	n := len(pix) / 4
	if n == 0 {
		return
	}
	var sum float64
	for i := 0; i < len(pix); i += 4 {
		sum += 0.299*float64(pix[i]) + 0.587*float64(pix[i+1]) + 0.114*float64(pix[i+2])
	}
	mean := math.Round(sum / float64(n))
	for i := 0; i < len(pix); i += 4 {
		for c := 0; c < 3; c++ {
			pix[i+c] = clamp8(mean + factor*(float64(pix[i+c])-mean))
		}
	}
}

// sharpen blends the image away from a 3x3 smoothed copy. Border pixels are kept.
func sharpen(img *image.RGBA, factor float64) *image.RGBA {
	if factor == 1 {
		return img
	}
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	out := image.NewRGBA(img.Bounds())
	copy(out.Pix, img.Pix)
	if w < 3 || h < 3 {
		return out
	}
	stride := img.Stride
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			off := y*stride + x*4
			for c := 0; c < 3; c++ {
				var acc float64
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						weight := 1.0
						if dx == 0 && dy == 0 {
							weight = 5
						}
						acc += weight * float64(img.Pix[off+dy*stride+dx*4+c])
					}
				}
				smooth := acc / 13
				out.Pix[off+c] = clamp8(smooth + factor*(float64(img.Pix[off+c])-smooth))
			}
		}
	}
	return out
}

// median3 applies a 3x3 median filter per channel. Border pixels are kept.
func median3(img *image.RGBA) *image.RGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	out := image.NewRGBA(img.Bounds())
	copy(out.Pix, img.Pix)
	if w < 3 || h < 3 {
		return out
	}
	stride := img.Stride
	window := make([]int, 9)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			off := y*stride + x*4
			for c := 0; c < 3; c++ {
				k := 0
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						window[k] = int(img.Pix[off+dy*stride+dx*4+c])
						k++
					}
				}
				sort.Ints(window)
				out.Pix[off+c] = uint8(window[4])
			}
		}
	}
	return out
}

func clamp8(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
