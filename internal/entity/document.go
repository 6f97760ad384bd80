package entity

import (
	"crypto/sha256"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/ttn-extractor/constants"
)

// RawDocument is an uploaded payload as handed to the pipeline. Immutable once created.
type RawDocument struct {
	ID        string              `json:"id"`
	Content   []byte              `json:"-"`
	MediaType constants.MediaType `json:"media_type"`
	PageCount int                 `json:"page_count"`
}

// documentNamespace scopes content-derived document ids.
var documentNamespace = uuid.MustParse("6f1c2a4e-9b3d-5e7f-8a10-2c4d6e8f0a1b")

// DocumentIDFor derives a stable document id from the SHA-256 of content.
func DocumentIDFor(content []byte) string {
	sum := sha256.Sum256(content)
	return uuid.NewSHA1(documentNamespace, sum[:]).String()
}
