// Package gosseract runs libtesseract in-process. It is compiled in only with
// the "gosseract" build tag because the binding needs cgo and the tesseract headers.
package gosseract

import (
	"errors"

	"github.com/joseph-ayodele/ttn-extractor/internal/engine"
)

const Name = "gosseract"

// ErrNotCompiled is returned by New in builds without the gosseract tag.
var ErrNotCompiled = errors.New("built without the gosseract tag")

type Config struct {
	TessdataDir string
	DPI         int
}

func profiles() []engine.Profile {
	return []engine.Profile{
		{Name: "main", Language: "rus", PSM: 6},
		{Name: "mixed", Language: "rus+eng", PSM: 6},
	}
}
