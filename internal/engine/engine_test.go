package engine

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/ttn-extractor/internal/common"
)

type stubEngine struct{ name string }

func (s stubEngine) Name() string        { return s.name }
func (s stubEngine) Profiles() []Profile { return []Profile{{Name: "main"}} }
func (s stubEngine) Recognize(context.Context, []byte, Profile) (Recognition, error) {
	return Recognition{}, nil
}

func TestCleanText(t *testing.T) {
	in := "ТТН\t\t№ 1\r\n\r\n\r\n\r\n-----\nГрузоотправитель:   ООО  Альфа   \n"
	assert.Equal(t, "ТТН № 1\n\nГрузоотправитель: ООО Альфа", CleanText(in))
	assert.Equal(t, "", CleanText(""))
	assert.Equal(t, "15.01.2024", CleanText("15.01.2024"))
}

func TestHeuristicConfidence(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{"empty", "   ", 0},
		{"latin only", "hello", 30},
		{"cyrillic with short date", "Дата 15.01.24", 30 + 20 + 15},
		{"full", "Товарно-транспортная накладная № 001234 от 15.01.2024 " +
			"Грузоотправитель ООО Альфа Грузополучатель ООО Бета Водитель Иванов Иван Иванович", 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, HeuristicConfidence(tt.text), 0.001)
		})
	}
}

func TestBlendAndClamp(t *testing.T) {
	assert.InDelta(t, 50.0, Blend(0, 50), 0.001)
	assert.InDelta(t, 0.7*90+0.3*50, Blend(90, 50), 0.001)
	assert.Equal(t, 100.0, Clamp(140))
	assert.Equal(t, 0.0, Clamp(-3))
}

func TestUnavailable(t *testing.T) {
	err := Unavailable("tesseract", "main", errors.New("exit 1"))
	assert.True(t, common.IsEngineUnavailable(err))
	assert.True(t, errors.Is(err, common.ErrEngineUnavailable))
	assert.Contains(t, err.Error(), "tesseract/main")
}

func TestResolve(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	factories := map[string]Factory{
		"a":      func() (Engine, error) { return stubEngine{"a"}, nil },
		"broken": func() (Engine, error) { return nil, errors.New("binary not found") },
	}

	r := Resolve([]string{"A", "broken", "nope", "a", ""}, factories, logger)

	entries := r.Entries()
	require.Len(t, entries, 3)
	assert.True(t, entries[0].Present)
	assert.False(t, entries[1].Present)
	assert.Equal(t, "binary not found", entries[1].Reason)
	assert.Equal(t, "unknown engine", entries[2].Reason)

	avail := r.Available()
	require.Len(t, avail, 1)
	assert.Equal(t, "a", avail[0].Name())

	_, ok := r.Get("broken")
	assert.False(t, ok)
	e, ok := r.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "a", e.Name())
	assert.Contains(t, buf.String(), "engine.registry.absent")
}

func TestNewStaticRegistry(t *testing.T) {
	r := NewStaticRegistry(stubEngine{"x"}, stubEngine{"y"})
	require.Len(t, r.Available(), 2)
	assert.Equal(t, "y", r.Available()[1].Name())
}
