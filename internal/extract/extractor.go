package extract

import (
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/joseph-ayodele/ttn-extractor/constants"
	"github.com/joseph-ayodele/ttn-extractor/internal/engine"
	"github.com/joseph-ayodele/ttn-extractor/internal/entity"
	"github.com/joseph-ayodele/ttn-extractor/internal/normalize"
)

// minValueRunes is the shortest value that may be accepted.
const minValueRunes = 2

// Result is the outcome of classification plus extraction.
type Result struct {
	DocumentType      constants.DocumentType
	Keywords          []string
	Fields            map[string]entity.ExtractedField
	OverallConfidence float64
}

// Extractor applies the pattern tables to recognized text. Safe for concurrent use.
type Extractor struct {
	tables     *Tables
	classifier *Classifier
	logger     *slog.Logger
}

func NewExtractor(tables *Tables, classifierThreshold int, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		tables:     tables,
		classifier: NewClassifier(tables.Keywords, classifierThreshold),
		logger:     logger,
	}
}

func (e *Extractor) Classify(text string) (constants.DocumentType, []string) {
	return e.classifier.Classify(text)
}

// Extract classifies text and extracts the fields of the selected table.
// engineFields fill only fields no pattern matched.
func (e *Extractor) Extract(text string, engineFields map[string]string) Result {
	dt, keywords := e.classifier.Classify(text)
	fields := e.ExtractAs(dt, text, engineFields)
	e.logger.Debug("extract.done",
		"document_type", dt,
		"keywords", len(keywords),
		"fields", len(fields),
	)
	return Result{
		DocumentType:      dt,
		Keywords:          keywords,
		Fields:            fields,
		OverallConfidence: OverallConfidence(fields),
	}
}

// CountFields reports how many fields text yields; used to grade recognition attempts.
func (e *Extractor) CountFields(text string) int {
	dt, _ := e.classifier.Classify(text)
	return len(e.ExtractAs(dt, text, nil))
}

// Normalize post-processes a caller-supplied value of field name.
// Unknown fields and values the normalizer would drop come back trimmed.
func (e *Extractor) Normalize(name, raw string) string {
	raw = strings.TrimSpace(raw)
	f, ok := e.tables.Field(name)
	if !ok {
		return raw
	}
	if v, ok := normalize.Value(f.Kind, raw); ok {
		return v
	}
	return raw
}

// ExtractAs runs the pattern set of dt.
func (e *Extractor) ExtractAs(dt constants.DocumentType, text string, engineFields map[string]string) map[string]entity.ExtractedField {
	out := map[string]entity.ExtractedField{}
	for _, f := range e.tables.Fields(dt) {
		best, ok := bestCandidate(f, text)
		if !ok {
			if raw, has := engineFields[f.Name]; has {
				best, ok = score(f, raw, f.Base, entity.PatternIndexEngine)
			}
		}
		if ok {
			out[f.Name] = best
		}
	}
	return out
}

// bestCandidate takes the first match of every pattern and keeps the highest score.
// Equal scores keep the earlier pattern.
func bestCandidate(f Field, text string) (entity.ExtractedField, bool) {
	var (
		best  entity.ExtractedField
		found bool
	)
	for i, p := range f.Patterns {
		m := p.Re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		raw := firstGroup(m)
		c, ok := score(f, raw, f.Base+p.Delta, i)
		if !ok {
			continue
		}
		if !found || c.Confidence > best.Confidence {
			best, found = c, true
		}
	}
	return best, found
}

func firstGroup(m []string) string {
	for _, g := range m[1:] {
		if strings.TrimSpace(g) != "" {
			return strings.TrimSpace(g)
		}
	}
	return ""
}

// score corrects, normalizes and grades one raw capture.
func score(f Field, raw string, start float64, index int) (entity.ExtractedField, bool) {
	raw = strings.TrimSpace(raw)
	fixed := normalize.FixMisreads(f.Kind, raw)
	value, ok := normalize.Value(f.Kind, fixed)
	if !ok || len([]rune(value)) < minValueRunes {
		return entity.ExtractedField{}, false
	}
	conf := start
	if formatOK(f.Kind, value) {
		conf += f.Bonus
	} else {
		conf -= f.Penalty
	}
	return entity.ExtractedField{
		Name:         f.Name,
		Raw:          raw,
		Value:        value,
		Confidence:   engine.Clamp(conf),
		PatternIndex: index,
	}, true
}

var (
	rePlate       = regexp.MustCompile(`^[А-Я]\d{3}[А-Я]{2}\d{2,3}$`)
	rePersonFull  = regexp.MustCompile(`^[А-ЯЁ][а-яё]+(?: [А-ЯЁ][а-яё]+){1,2}$`)
	rePersonShort = regexp.MustCompile(`^[А-ЯЁ][а-яё]+ [А-ЯЁ]\. ?[А-ЯЁ]\.?$`)
)

// formatOK reports whether value looks like a well-formed value of kind.
func formatOK(kind normalize.Kind, value string) bool {
	switch kind {
	case normalize.KindDate:
		_, err := time.Parse(time.DateOnly, value)
		return err == nil
	case normalize.KindNumber:
		v, err := strconv.ParseFloat(value, 64)
		return err == nil && v > 0
	case normalize.KindINN:
		return true
	case normalize.KindPlate:
		return rePlate.MatchString(value)
	case normalize.KindDocNumber:
		return strings.IndexFunc(value, unicode.IsDigit) >= 0
	case normalize.KindParty:
		for _, w := range strings.Fields(value) {
			switch w {
			case "ООО", "ЗАО", "ОАО", "ПАО", "АО", "ИП":
				return true
			}
		}
		return len([]rune(value)) >= 5
	case normalize.KindPerson:
		return rePersonFull.MatchString(value) || rePersonShort.MatchString(value)
	default:
		return len([]rune(value)) >= 5
	}
}

// OverallConfidence is the mean of the field confidences rounded to two decimals.
func OverallConfidence(fields map[string]entity.ExtractedField) float64 {
	if len(fields) == 0 {
		return 0
	}
	names := make([]string, 0, len(fields))
	for n := range fields {
		names = append(names, n)
	}
	sort.Strings(names) // fixed summation order
	var sum float64
	for _, n := range names {
		sum += fields[n].Confidence
	}
	return math.Round(sum/float64(len(fields))*100) / 100
}
