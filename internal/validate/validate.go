// Package validate grades an extraction record and derives the manual review flag.
package validate

import (
	"regexp"

	"github.com/joseph-ayodele/ttn-extractor/constants"
	"github.com/joseph-ayodele/ttn-extractor/internal/common"
	"github.com/joseph-ayodele/ttn-extractor/internal/entity"
)

var rePlate = regexp.MustCompile(`^[А-Я]\d{3}[А-Я]{2}\d{2,3}$`)

// RequiredFields must be present on every document.
var RequiredFields = []string{
	constants.FieldDocumentNumber,
	constants.FieldDocumentDate,
	constants.FieldSender,
	constants.FieldReceiver,
}

type Config struct {
	ManualThreshold     float64 // overall confidence below this needs review
	MinFields           int
	AutoAcceptThreshold float64 // reporting only
}

func DefaultConfig() Config {
	return Config{ManualThreshold: 50, MinFields: 3, AutoAcceptThreshold: 70}
}

// Outcome is the result of one validation pass.
type Outcome struct {
	Status       constants.ValidationStatus
	Errors       []string
	ManualReview bool
	AutoAccepted bool
}

type Engine struct {
	cfg Config
}

func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Validate checks presence and format rules, then derives status and review flag.
func (e *Engine) Validate(fields map[string]entity.ExtractedField, overall float64) Outcome {
	value := func(name string) string { return fields[name].Value }

	v := common.NewValidator()
	for _, name := range RequiredFields {
		v.Field(name, value(name), common.Required)
	}
	v.Field(constants.FieldDocumentDate, value(constants.FieldDocumentDate), common.ISODate)
	v.Field(constants.FieldVehicleNumber, value(constants.FieldVehicleNumber),
		common.Matches(rePlate, "must look like А123ВС77"))

	errs := v.Messages()
	status := StatusFor(len(errs))
	manual := status != constants.ValidationValid ||
		overall < e.cfg.ManualThreshold ||
		len(fields) < e.cfg.MinFields
	return Outcome{
		Status:       status,
		Errors:       errs,
		ManualReview: manual,
		AutoAccepted: status == constants.ValidationValid && overall >= e.cfg.AutoAcceptThreshold,
	}
}

// Apply validates rec and writes the outcome onto it.
func (e *Engine) Apply(rec *entity.ExtractionRecord) Outcome {
	out := e.Validate(rec.Fields, rec.OverallConfidence)
	rec.ValidationStatus = out.Status
	rec.ValidationErrors = out.Errors
	rec.ManualReviewRequired = out.ManualReview
	return out
}

// StatusFor maps an error count to a status: none valid, one or two partial, more invalid.
func StatusFor(errorCount int) constants.ValidationStatus {
	switch {
	case errorCount == 0:
		return constants.ValidationValid
	case errorCount <= 2:
		return constants.ValidationPartial
	default:
		return constants.ValidationInvalid
	}
}
