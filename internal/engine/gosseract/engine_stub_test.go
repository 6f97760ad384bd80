//go:build !gosseract

package gosseract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/ttn-extractor/internal/common"
)

func TestStub(t *testing.T) {
	_, err := New(Config{}, nil)
	assert.ErrorIs(t, err, ErrNotCompiled)

	var e Engine
	_, err = e.Recognize(context.Background(), nil, e.Profiles()[0])
	assert.True(t, common.IsEngineUnavailable(err))
	assert.Equal(t, "rus", e.Profiles()[0].Language)
}
