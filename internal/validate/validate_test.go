package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/ttn-extractor/constants"
	"github.com/joseph-ayodele/ttn-extractor/internal/entity"
)

func fields(kv ...string) map[string]entity.ExtractedField {
	out := map[string]entity.ExtractedField{}
	for i := 0; i+1 < len(kv); i += 2 {
		out[kv[i]] = entity.ExtractedField{Name: kv[i], Value: kv[i+1], Confidence: 90}
	}
	return out
}

func TestValidate(t *testing.T) {
	complete := []string{
		constants.FieldDocumentNumber, "ТТН-1",
		constants.FieldDocumentDate, "2024-01-15",
		constants.FieldSender, "ООО Альфа",
		constants.FieldReceiver, "ООО Бета",
	}
	tests := []struct {
		name       string
		fields     map[string]entity.ExtractedField
		overall    float64
		wantStatus constants.ValidationStatus
		wantErrs   int
		wantManual bool
		wantAuto   bool
	}{
		{"complete", fields(complete...), 90, constants.ValidationValid, 0, false, true},
		{"complete but low confidence", fields(complete...), 45, constants.ValidationValid, 0, true, false},
		{"valid but below auto accept", fields(complete...), 60, constants.ValidationValid, 0, false, false},
		{"only document number", fields(complete[:2]...), 90, constants.ValidationInvalid, 3, true, false},
		{"missing date only", fields(append(append([]string{}, complete[:2]...), complete[4:]...)...), 90,
			constants.ValidationPartial, 1, true, false},
		{"bad date format", fields(append(append([]string{}, complete[:2]...), constants.FieldDocumentDate, "15.01.2024",
			constants.FieldSender, "A", constants.FieldReceiver, "B")...), 90, constants.ValidationPartial, 1, true, false},
		{"bad plate", fields(append(append([]string{}, complete...), constants.FieldVehicleNumber, "AB12")...), 90,
			constants.ValidationPartial, 1, true, false},
		{"nothing", fields(), 0, constants.ValidationInvalid, 4, true, false},
	}
	e := New(DefaultConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := e.Validate(tt.fields, tt.overall)
			assert.Equal(t, tt.wantStatus, out.Status)
			assert.Len(t, out.Errors, tt.wantErrs, out.Errors)
			assert.Equal(t, tt.wantManual, out.ManualReview)
			assert.Equal(t, tt.wantAuto, out.AutoAccepted)
		})
	}
}

func TestValidate_FewFieldsNeedReview(t *testing.T) {
	e := New(Config{ManualThreshold: 50, MinFields: 5})
	out := e.Validate(fields(
		constants.FieldDocumentNumber, "1",
		constants.FieldDocumentDate, "2024-01-15",
		constants.FieldSender, "ООО Альфа",
		constants.FieldReceiver, "ООО Бета",
	), 95)
	assert.Equal(t, constants.ValidationValid, out.Status)
	assert.True(t, out.ManualReview)
}

func TestApply(t *testing.T) {
	rec := &entity.ExtractionRecord{Fields: fields(constants.FieldDocumentNumber, "77"), OverallConfidence: 90}
	out := New(DefaultConfig()).Apply(rec)

	assert.Equal(t, constants.ValidationInvalid, rec.ValidationStatus)
	assert.Equal(t, out.Errors, rec.ValidationErrors)
	assert.Contains(t, rec.ValidationErrors, "document_date: is required")
	assert.True(t, rec.ManualReviewRequired)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, constants.ValidationValid, StatusFor(0))
	assert.Equal(t, constants.ValidationPartial, StatusFor(1))
	assert.Equal(t, constants.ValidationPartial, StatusFor(2))
	assert.Equal(t, constants.ValidationInvalid, StatusFor(3))
}
