package extract

import (
	"strings"

	"github.com/joseph-ayodele/ttn-extractor/constants"
)

// Classifier decides between the waybill and generic pattern sets.
type Classifier struct {
	keywords  []string
	threshold int
}

func NewClassifier(keywords []string, threshold int) *Classifier {
	if threshold < 1 {
		threshold = 1
	}
	return &Classifier{keywords: keywords, threshold: threshold}
}

// Classify counts the distinct keywords present in text.
func (c *Classifier) Classify(text string) (constants.DocumentType, []string) {
	lower := strings.ToLower(text)
	var found []string
	for _, kw := range c.keywords {
		if strings.Contains(lower, kw) {
			found = append(found, kw)
		}
	}
	if len(found) >= c.threshold {
		return constants.DocumentTTN, found
	}
	return constants.DocumentGeneric, found
}
