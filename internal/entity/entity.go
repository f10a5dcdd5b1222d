// Package entity defines the span and category value types shared by the
// detector, the obscure pipeline, and the persistence layer, plus the
// overlap resolver that merges competing candidate spans.
package entity

// Category classifies a sensitive span.
type Category string

const (
	CategoryPerson      Category = "PERSON"
	CategoryOrg         Category = "ORG"
	CategoryLocation    Category = "LOCATION"
	CategoryPatent      Category = "PATENT"
	CategoryProductCode Category = "PRODUCT_CODE"
	CategoryOther       Category = "OTHER"
)

// Categories lists every category in priority order, highest first.
var Categories = []Category{
	CategoryPatent,
	CategoryProductCode,
	CategoryPerson,
	CategoryOrg,
	CategoryLocation,
	CategoryOther,
}

// categoryInfo keeps the pseudonym prefix and the overlap priority for one
// category in one place so the two tables cannot drift apart.
type categoryInfo struct {
	prefix   string
	priority int
}

var categoryTable = map[Category]categoryInfo{
	CategoryPatent:      {prefix: "Patent", priority: 7},
	CategoryProductCode: {prefix: "ProductCode", priority: 6},
	CategoryPerson:      {prefix: "Person", priority: 5},
	CategoryOrg:         {prefix: "Org", priority: 4},
	CategoryLocation:    {prefix: "Location", priority: 3},
	CategoryOther:       {prefix: "Other", priority: 2},
}

// Valid reports whether c is one of the closed set of categories.
func (c Category) Valid() bool {
	_, ok := categoryTable[c]
	return ok
}

// Prefix returns the pseudonym prefix for the category ("Person_007" uses
// prefix "Person"). Unknown categories fall back to "Other".
func (c Category) Prefix() string {
	if info, ok := categoryTable[c]; ok {
		return info.prefix
	}
	return categoryTable[CategoryOther].prefix
}

// Priority returns the overlap-resolution weight. Higher wins.
func (c Category) Priority() int {
	if info, ok := categoryTable[c]; ok {
		return info.priority
	}
	return 0
}

// Span is one detected sensitive mention: a half-open byte range [Start, End)
// into the source text. Text is the exact substring at that range.
type Span struct {
	Start    int      `json:"start"`
	End      int      `json:"end"`
	Text     string   `json:"text"`
	Category Category `json:"category"`
}

// Len returns the span length in bytes.
func (s Span) Len() int {
	return s.End - s.Start
}

// Overlaps reports whether two spans share any byte position.
func (s Span) Overlaps(o Span) bool {
	return !(s.End <= o.Start || s.Start >= o.End)
}
