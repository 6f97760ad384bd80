package entity

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/ttn-extractor/constants"
)

// Pattern indexes for fields that did not come from the regex cascade.
const (
	PatternIndexEngine = -1 // supplied by the recognition engine
	PatternIndexManual = -2 // entered by a reviewer
)

// ExtractedField is one accepted value of an extraction record.
type ExtractedField struct {
	Name         string  `json:"name"`
	Raw          string  `json:"raw"`
	Value        string  `json:"value"`
	Confidence   float64 `json:"confidence"`
	PatternIndex int     `json:"pattern_index"`
}

// ExtractionRecord is the final result for one document.
type ExtractionRecord struct {
	ID                   uuid.UUID                  `json:"id"`
	DocumentID           string                     `json:"document_id"`
	DocumentType         constants.DocumentType     `json:"document_type"`
	Fields               map[string]ExtractedField  `json:"fields"`
	OverallConfidence    float64                    `json:"overall_confidence"`
	RawText              string                     `json:"raw_text"`
	ValidationStatus     constants.ValidationStatus `json:"validation_status"`
	ValidationErrors     []string                   `json:"validation_errors"`
	ManualReviewRequired bool                       `json:"manual_review_required"`
	EngineUsed           string                     `json:"engine_used"`
	Recognition          *RecognitionResult         `json:"recognition,omitempty"`
	Revision             int                        `json:"revision"`
	CreatedAt            time.Time                  `json:"created_at"`
	ValidatedAt          time.Time                  `json:"validated_at"`
}

// Output is the JSON shape returned to callers.
type Output struct {
	DocumentID           string             `json:"document_id,omitempty"`
	Fields               map[string]string  `json:"fields"`
	FieldConfidences     map[string]float64 `json:"field_confidences"`
	OverallConfidence    float64            `json:"overall_confidence"`
	RawText              string             `json:"raw_text"`
	ValidationStatus     string             `json:"validation_status"`
	ValidationErrors     []string           `json:"validation_errors"`
	ManualReviewRequired bool               `json:"manual_review_required"`
	EngineUsed           string             `json:"engine_used"`
}

// FieldValues returns name -> normalized value.
func (r *ExtractionRecord) FieldValues() map[string]string {
	out := make(map[string]string, len(r.Fields))
	for name, f := range r.Fields {
		out[name] = f.Value
	}
	return out
}

// FieldConfidences returns name -> confidence.
func (r *ExtractionRecord) FieldConfidences() map[string]float64 {
	out := make(map[string]float64, len(r.Fields))
	for name, f := range r.Fields {
		out[name] = f.Confidence
	}
	return out
}

// FieldNames returns the present field names in sorted order.
func (r *ExtractionRecord) FieldNames() []string {
	names := make([]string, 0, len(r.Fields))
	for name := range r.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Output projects the record onto the caller-facing JSON shape.
func (r *ExtractionRecord) Output() Output {
	errs := r.ValidationErrors
	if errs == nil {
		errs = []string{}
	}
	return Output{
		DocumentID:           r.DocumentID,
		Fields:               r.FieldValues(),
		FieldConfidences:     r.FieldConfidences(),
		OverallConfidence:    r.OverallConfidence,
		RawText:              r.RawText,
		ValidationStatus:     string(r.ValidationStatus),
		ValidationErrors:     errs,
		ManualReviewRequired: r.ManualReviewRequired,
		EngineUsed:           r.EngineUsed,
	}
}
