package imaging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"strconv"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/ttn-extractor/constants"
	"github.com/joseph-ayodele/ttn-extractor/internal/common"
	"github.com/joseph-ayodele/ttn-extractor/internal/entity"
)

func pngFixture(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8((x*7 + y*13) % 256)
			img.Set(x, y, color.RGBA{R: v, G: 255 - v, B: v / 2, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDetectMediaType(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
		want constants.MediaType
	}{
		{"pdf", []byte("%PDF-1.7\n%..."), constants.MediaPDF},
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}, constants.MediaJPEG},
		{"png", []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n', 0, 0, 0, 13}, constants.MediaPNG},
		{"gif87", []byte("GIF87a\x01\x00\x01\x00"), constants.MediaGIF},
		{"gif89", []byte("GIF89a\x01\x00\x01\x00"), constants.MediaGIF},
		{"bmp", []byte("BM\x3a\x00\x00\x00\x00\x00"), constants.MediaBMP},
		{"webp", []byte("RIFF\x24\x00\x00\x00WEBPVP8 "), constants.MediaWEBP},
		{"riff but not webp", []byte("RIFF\x24\x00\x00\x00WAVEfmt "), constants.MediaUnknown},
		{"random", []byte{0x13, 0x37, 0xC0, 0xDE, 0x42, 0x99, 0x01, 0x7F}, constants.MediaUnknown},
		{"empty", nil, constants.MediaUnknown},
		{"truncated png", []byte{0x89, 'P', 'N'}, constants.MediaUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DetectMediaType(tc.in))
		})
	}
}

func TestDetectMediaType_RealPNG(t *testing.T) {
	assert.Equal(t, constants.MediaPNG, DetectMediaType(pngFixture(t, 4, 4)))
}

func TestEnhance_UpscalesSmallImages(t *testing.T) {
	e := NewEnhancer(DefaultEnhanceOptions())
	out, err := e.Enhance(pngFixture(t, 100, 50))
	require.NoError(t, err)
	require.Equal(t, constants.MediaPNG, DetectMediaType(out))

	cfg, err := png.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	// factor = max(800/100, 600/50, 1.2) = 12
	assert.Equal(t, 1200, cfg.Width)
	assert.Equal(t, 600, cfg.Height)
}

func TestEnhance_MinimumFactor(t *testing.T) {
	e := NewEnhancer(DefaultEnhanceOptions())
	out, err := e.Enhance(pngFixture(t, 790, 700))
	require.NoError(t, err)
	cfg, err := png.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	// 800/790 is below the 1.2 floor
	assert.Equal(t, 948, cfg.Width)
	assert.Equal(t, 840, cfg.Height)
}

func TestEnhance_KeepsLargeImages(t *testing.T) {
	e := NewEnhancer(EnhanceOptions{MinWidth: 40, MinHeight: 30, Denoise: true})
	out, err := e.Enhance(pngFixture(t, 64, 48))
	require.NoError(t, err)
	cfg, err := png.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Width)
	assert.Equal(t, 48, cfg.Height)
}

func TestEnhance_Deterministic(t *testing.T) {
	e := NewEnhancer(EnhanceOptions{MinWidth: 40, MinHeight: 30, Denoise: true})
	in := pngFixture(t, 48, 32)
	a, err := e.Enhance(in)
	require.NoError(t, err)
	b, err := e.Enhance(in)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEnhance_CorruptInput(t *testing.T) {
	e := NewEnhancer(DefaultEnhanceOptions())
	good := pngFixture(t, 10, 10)

	for name, in := range map[string][]byte{
		"garbage":   []byte("definitely not an image"),
		"truncated": good[:len(good)/2],
	} {
		t.Run(name, func(t *testing.T) {
			out, err := e.Enhance(in)
			require.Error(t, err)
			assert.Nil(t, out)
			assert.True(t, common.IsDecodeError(err))
		})
	}
}

func TestClampPage(t *testing.T) {
	assert.Equal(t, 0, ClampPage(-3, 4))
	assert.Equal(t, 2, ClampPage(2, 4))
	assert.Equal(t, 3, ClampPage(9, 4))
	assert.Equal(t, 0, ClampPage(0, 1))
}

// fakePdftoppm writes one PNG per requested page, named like pdftoppm does.
type fakePdftoppm struct {
	t     *testing.T
	calls [][]string
	fail  bool
}

func (f *fakePdftoppm) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.fail {
		return nil, []byte("Syntax Error: Couldn't read xref table"), errors.New("exit status 1")
	}
	var first, last int
	for i := 0; i < len(args)-1; i++ {
		switch args[i] {
		case "-f":
			first, _ = strconv.Atoi(args[i+1])
		case "-l":
			last, _ = strconv.Atoi(args[i+1])
		}
	}
	prefix := args[len(args)-1]
	for p := first; p <= last; p++ {
		path := fmt.Sprintf("%s-%d.png", prefix, p)
		require.NoError(f.t, os.WriteFile(path, pngFixture(f.t, 8+p, 8), 0o600))
	}
	return nil, nil, nil
}

func newTestRasterizer(t *testing.T, pages int, runner Runner) *Rasterizer {
	r := NewRasterizer(RasterizerConfig{TempDir: t.TempDir()}, runner, nil)
	r.countPages = func([]byte) (int, error) { return pages, nil }
	return r
}

func TestRasterizer_RenderClampsPage(t *testing.T) {
	runner := &fakePdftoppm{t: t}
	r := newTestRasterizer(t, 3, runner)

	img, page, err := r.Render(context.Background(), []byte("%PDF-1.4"), 10)
	require.NoError(t, err)
	assert.Equal(t, 2, page)
	assert.Equal(t, constants.MediaPNG, DetectMediaType(img))

	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"pdftoppm", "-f", "3", "-l", "3", "-r", "200", "-png"}, runner.calls[0][:8])
}

func TestRasterizer_RenderPagesCapped(t *testing.T) {
	runner := &fakePdftoppm{t: t}
	r := newTestRasterizer(t, 12, runner)

	imgs, err := r.RenderPages(context.Background(), []byte("%PDF-1.4"), 0, 0)
	require.NoError(t, err)
	assert.Len(t, imgs, 5)
	assert.Equal(t, "5", runner.calls[0][4])
}

func TestRasterizer_Failures(t *testing.T) {
	t.Run("renderer fails", func(t *testing.T) {
		r := newTestRasterizer(t, 1, &fakePdftoppm{t: t, fail: true})
		_, _, err := r.Render(context.Background(), []byte("%PDF-1.4"), 0)
		require.Error(t, err)
		assert.True(t, common.IsDecodeError(err))
	})
	t.Run("unreadable pdf", func(t *testing.T) {
		r := NewRasterizer(RasterizerConfig{TempDir: t.TempDir()}, &fakePdftoppm{t: t}, nil)
		_, err := r.PageCount([]byte("%PDF-1.4 this is not a pdf body"))
		require.Error(t, err)
		assert.True(t, common.IsDecodeError(err))
	})
	t.Run("no pages", func(t *testing.T) {
		r := newTestRasterizer(t, 0, &fakePdftoppm{t: t})
		_, err := r.PageCount([]byte("%PDF-1.4"))
		assert.True(t, common.IsDecodeError(err))
	})
}

func TestPreparer(t *testing.T) {
	runner := &fakePdftoppm{t: t}
	p := NewPreparer(newTestRasterizer(t, 4, runner), NewEnhancer(EnhanceOptions{MinWidth: 4, MinHeight: 4}), nil)
	ctx := context.Background()

	t.Run("image", func(t *testing.T) {
		got, err := p.Prepare(ctx, &entity.RawDocument{Content: pngFixture(t, 20, 20)}, PrepareOptions{})
		require.NoError(t, err)
		assert.Equal(t, constants.MediaPNG, got.MediaType)
		require.Len(t, got.Images, 1)
	})
	t.Run("pdf single page", func(t *testing.T) {
		got, err := p.Prepare(ctx, &entity.RawDocument{Content: []byte("%PDF-1.4")}, PrepareOptions{Page: 1})
		require.NoError(t, err)
		assert.Equal(t, 4, got.PageCount)
		require.Len(t, got.Images, 1)
		assert.Equal(t, 1, got.Images[0].Page)
	})
	t.Run("pdf all pages", func(t *testing.T) {
		got, err := p.Prepare(ctx, &entity.RawDocument{Content: []byte("%PDF-1.4")}, PrepareOptions{Page: 2, AllPages: true})
		require.NoError(t, err)
		require.Len(t, got.Images, 2)
		assert.Equal(t, 3, got.Images[1].Page)
	})
	t.Run("unknown", func(t *testing.T) {
		_, err := p.Prepare(ctx, &entity.RawDocument{Content: []byte("hello")}, PrepareOptions{})
		assert.True(t, common.IsDecodeError(err))
	})
	t.Run("empty", func(t *testing.T) {
		_, err := p.Prepare(ctx, &entity.RawDocument{}, PrepareOptions{})
		assert.True(t, common.IsDecodeError(err))
	})
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{name: "short", in: "ok", max: 8, want: "ok"},
		{name: "ascii", in: "abcdef", max: 3, want: "abc...(truncated)"},
		{name: "cyrillic on boundary", in: "Ошибка", max: 4, want: "Ош...(truncated)"},
		{name: "cyrillic mid rune", in: "Ошибка", max: 5, want: "Ош...(truncated)"},
		{name: "first rune split", in: "Ошибка", max: 1, want: "...(truncated)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Truncate(tt.in, tt.max)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestTruncate_LongStderrStaysValid(t *testing.T) {
	stderr := strings.Repeat("не удалось открыть файл ", 1000)
	got := Truncate(stderr, 8<<10+1)
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), 8<<10+1+len("...(truncated)"))
}
