package engine

import (
	"context"
	"fmt"

	"github.com/joseph-ayodele/ttn-extractor/internal/common"
)

// Profile is one language/configuration variant of an engine.
type Profile struct {
	Name     string
	Language string
	PSM      int               // page segmentation mode, local engines only
	OEM      int               // engine mode, local engines only
	Options  map[string]string // engine specific knobs
}

// Recognition is the outcome of one successful recognize call.
type Recognition struct {
	Text       string
	Confidence float64           // heuristic, [0,100]
	Fields     map[string]string // optional pre-extracted fields
}

// Engine wraps one recognition backend.
//
// Profiles()[0] is the primary profile and Profiles()[1], when present, the
// fallback tried for marginal results. Any failure must be reported as an
// error wrapping common.ErrEngineUnavailable, never as a low-confidence success.
type Engine interface {
	Name() string
	Profiles() []Profile
	Recognize(ctx context.Context, image []byte, p Profile) (Recognition, error)
}

// Unavailable builds the typed failure for engine/profile.
func Unavailable(engine, profile string, cause error) error {
	return common.NewEngineUnavailable(fmt.Sprintf("%s/%s", engine, profile), cause)
}

// Clamp bounds a confidence to [0,100].
func Clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
