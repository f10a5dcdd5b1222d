package detect

import (
	"strings"

	"github.com/veil-sh/veil/internal/entity"
)

// MatchForced finds every occurrence of the given known names in text and
// returns them as PERSON candidates. Matching is case-sensitive and
// boundary-checked: an occurrence counts only when it is not flanked by
// ASCII letters or digits, so "Ann" does not fire inside "Annotation".
func MatchForced(text string, names []string) []entity.Span {
	var spans []entity.Span
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		from := 0
		for {
			i := strings.Index(text[from:], name)
			if i < 0 {
				break
			}
			start := from + i
			end := start + len(name)
			if boundaryAt(text, start-1) && boundaryAt(text, end) {
				spans = append(spans, entity.Span{
					Start:    start,
					End:      end,
					Text:     name,
					Category: entity.CategoryPerson,
				})
			}
			from = start + 1
		}
	}
	return spans
}

// boundaryAt reports whether position i is outside the text or holds a
// non-alphanumeric byte.
func boundaryAt(text string, i int) bool {
	if i < 0 || i >= len(text) {
		return true
	}
	c := text[i]
	return !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9')
}
