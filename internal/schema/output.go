package schema

// BuildOutputJSONSchema describes the JSON returned for one document.
func BuildOutputJSONSchema() map[string]any {
	confidence := map[string]any{"type": "number", "minimum": 0.0, "maximum": 100.0}
	props := map[string]any{
		"document_id": map[string]any{"type": "string"},
		"fields": map[string]any{
			"type":                 "object",
			"additionalProperties": map[string]any{"type": "string", "minLength": 1},
		},
		"field_confidences": map[string]any{
			"type":                 "object",
			"additionalProperties": confidence,
		},
		"overall_confidence": confidence,
		"raw_text":           map[string]any{"type": "string"},
		"validation_status": map[string]any{
			"type": "string",
			"enum": []string{"valid", "partial", "invalid"},
		},
		"validation_errors": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
		"manual_review_required": map[string]any{"type": "boolean"},
		"engine_used":            map[string]any{"type": "string"},
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required": []string{
			"fields", "field_confidences", "overall_confidence", "raw_text",
			"validation_status", "validation_errors", "manual_review_required", "engine_used",
		},
	}
}

// BuildOCRSpaceResponseSchema is the subset of the OCR.space response the client relies on.
// ErrorMessage arrives either as a string or as a list of strings.
func BuildOCRSpaceResponseSchema() map[string]any {
	stringOrList := map[string]any{
		"anyOf": []any{
			map[string]any{"type": "string"},
			map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			map[string]any{"type": "null"},
		},
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"ParsedResults": map[string]any{
				"anyOf": []any{
					map[string]any{"type": "null"},
					map[string]any{
						"type": "array",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"ParsedText": map[string]any{"type": "string"},
							},
						},
					},
				},
			},
			"IsErroredOnProcessing": map[string]any{"type": "boolean"},
			"ErrorMessage":          stringOrList,
		},
		"required": []string{"IsErroredOnProcessing"},
	}
}
