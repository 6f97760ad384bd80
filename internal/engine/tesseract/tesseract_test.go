package tesseract

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/ttn-extractor/internal/common"
	"github.com/joseph-ayodele/ttn-extractor/internal/engine"
)

const sampleTSV = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
	"1\t1\t0\t0\t0\t0\t0\t0\t100\t100\t-1\t\n" +
	"5\t1\t1\t1\t1\t1\t10\t10\t50\t20\t90\tНакладная\n" +
	"5\t1\t1\t1\t1\t2\t70\t10\t20\t20\t70\t№\n"

type fakeRunner struct {
	calls  [][]string
	text   string
	tsv    string
	fail   error
	sawImg bool
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if _, err := os.Stat(args[0]); err == nil {
		f.sawImg = true
	}
	if f.fail != nil {
		return nil, []byte("Error opening data file rus.traineddata"), f.fail
	}
	if args[len(args)-1] == "tsv" {
		return []byte(f.tsv), nil, nil
	}
	return []byte(f.text), nil, nil
}

func TestRecognize_ArgsAndBlend(t *testing.T) {
	r := &fakeRunner{text: "Накладная №  5\n\n\n\nот 15.01.2024\n", tsv: sampleTSV}
	e := newEngine(Config{TessdataDir: "/td", TempDir: t.TempDir(), TSV: true}, r, nil)

	rec, err := e.Recognize(context.Background(), []byte("img"), e.Profiles()[0])
	require.NoError(t, err)
	assert.Equal(t, "Накладная № 5\n\nот 15.01.2024", rec.Text)

	require.Len(t, r.calls, 2)
	assert.Equal(t, []string{"tesseract", "stdout", "-l", "rus", "--psm", "6", "--oem", "3", "--tessdata-dir", "/td"},
		append([]string{r.calls[0][0]}, r.calls[0][2:]...))
	assert.Equal(t, "tsv", r.calls[1][len(r.calls[1])-1])
	assert.True(t, r.sawImg)

	want := engine.Blend(80, engine.HeuristicConfidence(rec.Text))
	assert.InDelta(t, want, rec.Confidence, 0.001)
}

func TestRecognize_HeuristicOnlyWithoutTSV(t *testing.T) {
	r := &fakeRunner{text: "Дата 15.01.24"}
	e := newEngine(Config{TempDir: t.TempDir()}, r, nil)

	rec, err := e.Recognize(context.Background(), []byte("img"), e.Profiles()[1])
	require.NoError(t, err)
	assert.Len(t, r.calls, 1)
	assert.Equal(t, "rus+eng", r.calls[0][4])
	assert.InDelta(t, engine.HeuristicConfidence("Дата 15.01.24"), rec.Confidence, 0.001)
}

func TestRecognize_Failures(t *testing.T) {
	tests := []struct {
		name string
		r    *fakeRunner
	}{
		{"exit error", &fakeRunner{fail: errors.New("exit status 1")}},
		{"empty output", &fakeRunner{text: " \n "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(Config{TempDir: t.TempDir()}, tt.r, nil)
			_, err := e.Recognize(context.Background(), []byte("img"), e.Profiles()[0])
			require.Error(t, err)
			assert.True(t, common.IsEngineUnavailable(err))
		})
	}
}

func TestMeanWordConfidence(t *testing.T) {
	assert.InDelta(t, 80.0, meanWordConfidence(sampleTSV), 0.001)
	assert.Equal(t, 0.0, meanWordConfidence("no header"))
	assert.Equal(t, 0.0, meanWordConfidence(""))
}

func TestNew_MissingBinary(t *testing.T) {
	_, err := New(Config{Binary: "definitely-not-a-tesseract-binary"}, nil, nil)
	assert.Error(t, err)
}

func TestProfiles_PrimaryAndFallbackOnly(t *testing.T) {
	e := newEngine(Config{TempDir: t.TempDir()}, &fakeRunner{}, nil)
	profiles := e.Profiles()
	require.Len(t, profiles, 2)
	assert.Equal(t, "main", profiles[0].Name)
	assert.Equal(t, "rus", profiles[0].Language)
	assert.Equal(t, "mixed", profiles[1].Name)
	assert.Equal(t, "rus+eng", profiles[1].Language)
}
