package entity

import (
	"time"

	"github.com/google/uuid"
)

// RecognitionResult is one successful engine attempt.
type RecognitionResult struct {
	ID           uuid.UUID `json:"id"`
	DocumentID   string    `json:"document_id"`
	Engine       string    `json:"engine"`
	Profile      string    `json:"profile"`
	Text         string    `json:"text"`
	Confidence   float64   `json:"confidence"`
	FieldCount   int       `json:"field_count"`
	RecognizedAt time.Time `json:"recognized_at"`
}
