package detect

import "github.com/veil-sh/veil/internal/entity"

// Labeled is a raw recognizer hit before its label is mapped onto a
// redaction category.
type Labeled struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
	Label string `json:"label"`
}

// Recognizer produces labeled entity candidates for a text. Implementations
// must be safe for concurrent use.
type Recognizer interface {
	Recognize(text string) ([]Labeled, error)
}

// mapLabel translates an NER label into a redaction category.
// temporal=true means the label itself is a date/time/event class and the
// candidate must be discarded.
func mapLabel(label string) (cat entity.Category, temporal bool) {
	switch label {
	case "PERSON", "PER":
		return entity.CategoryPerson, false
	case "ORG":
		return entity.CategoryOrg, false
	case "GPE", "LOC", "FAC", "LOCATION":
		return entity.CategoryLocation, false
	case "PRODUCT":
		return entity.CategoryProductCode, false
	case "LAW":
		return entity.CategoryOther, false
	case "DATE", "TIME", "EVENT":
		return "", true
	default:
		return entity.CategoryOther, false
	}
}
