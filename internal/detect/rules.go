package detect

import (
	"regexp"
	"strings"

	"github.com/veil-sh/veil/internal/entity"
)

// The rule battery. Each rule scans the full text and produces candidate
// spans plus a count of candidates it discarded because they looked
// temporal. Overlaps between rules (and with recognizer output) are
// resolved later by entity.Resolve.
type ruleFunc func(text string) ([]entity.Span, int)

var ruleBattery = []ruleFunc{
	detectPatents,
	detectProductCodes,
	detectEmails,
	detectCamelCaseOrgs,
	detectGreetingNames,
	detectHandles,
	detectCodenames,
	detectNamesBeforeEmail,
}

var (
	patentCitedRe  = regexp.MustCompile(`(?i)\b(?:U\.?S\.?\s+)?Patent\s+(?:No\.|Number|#)\s*[0-9,]{4,}\b`)
	patentNumberRe = regexp.MustCompile(`(?i)\b(?:US|U\.S\.|WO|EP)\s+[0-9][0-9,./ ]+[A-Z0-9]{1,3}\b`)

	codenamedProductRe = regexp.MustCompile(`\b(?:Project|Codename)\s+[A-Z][A-Za-z0-9_-]*(?:\s+v[0-9.]+)?`)
	skuRe              = regexp.MustCompile(`\b[A-Z][A-Z0-9]+[-_][A-Z0-9]{2,}\b`)

	emailRe = regexp.MustCompile(`\b[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[A-Za-z]{2,}\b`)

	camelCaseRe = regexp.MustCompile(`\b[A-Z][a-z]+[A-Z][A-Za-z0-9]+\b`)

	greetingRe = regexp.MustCompile(`(?i)\b(?:Hi|Hey|Hello|Thanks|Thank\s+you|Dear)\s+([@\[({]?[A-Z][A-Za-z]+(?:\s+[A-Z][A-Za-z]+)?[\])}:,]?)`)

	handleRe = regexp.MustCompile(`@([A-Z][A-Za-z]+(?:\s+[A-Z][A-Za-z]+)?)`)

	codenameTriggers    = `rollout|launch|diligence|workstream|initiative|program|platform|phase|deal\s+team`
	nameBeforeTriggerRe = regexp.MustCompile(`(?i)\b([A-Z][a-zA-Z0-9]+)\s+(?:` + codenameTriggers + `)\b`)
	triggerPrepNameRe   = regexp.MustCompile(`(?i)\b(?:` + codenameTriggers + `)\s+(?:for|on|of|around)\s+([A-Z][a-zA-Z0-9]+)\b`)

	emailPart        = `[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`
	nameEmailPairRe  = regexp.MustCompile(`\b([A-Z][A-Za-z]+(?:\s+[A-Z][A-Za-z]+))\s*<\s*` + emailPart + `\s*>`)
	shortNameEmailRe = regexp.MustCompile(`\b([A-Z][A-Za-z]+)\s*<\s*` + emailPart + `\s*>`)
)

func detectPatents(text string) ([]entity.Span, int) {
	var spans []entity.Span
	for _, re := range []*regexp.Regexp{patentCitedRe, patentNumberRe} {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			spans = append(spans, entity.Span{
				Start:    loc[0],
				End:      loc[1],
				Text:     text[loc[0]:loc[1]],
				Category: entity.CategoryPatent,
			})
		}
	}
	return spans, 0
}

func detectProductCodes(text string) ([]entity.Span, int) {
	var spans []entity.Span
	skipped := 0
	for _, re := range []*regexp.Regexp{codenamedProductRe, skuRe} {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			matched := text[loc[0]:loc[1]]
			if isTemporal(matched) {
				skipped++
				continue
			}
			spans = append(spans, entity.Span{
				Start:    loc[0],
				End:      loc[1],
				Text:     matched,
				Category: entity.CategoryProductCode,
			})
		}
	}
	return spans, skipped
}

func detectEmails(text string) ([]entity.Span, int) {
	var spans []entity.Span
	for _, loc := range emailRe.FindAllStringIndex(text, -1) {
		spans = append(spans, entity.Span{
			Start:    loc[0],
			End:      loc[1],
			Text:     text[loc[0]:loc[1]],
			Category: entity.CategoryOther,
		})
	}
	return spans, 0
}

func detectCamelCaseOrgs(text string) ([]entity.Span, int) {
	var spans []entity.Span
	skipped := 0
	for _, loc := range camelCaseRe.FindAllStringIndex(text, -1) {
		matched := text[loc[0]:loc[1]]
		if isTemporal(matched) {
			skipped++
			continue
		}
		spans = append(spans, entity.Span{
			Start:    loc[0],
			End:      loc[1],
			Text:     matched,
			Category: entity.CategoryOrg,
		})
	}
	return spans, skipped
}

// greetingCutset holds the decoration characters that may wrap a greeted
// name ("Hi [Ryan]," / "Hey @Priya:"). The raw span keeps the decoration;
// the cleaned form is only used to reject non-names.
const greetingCutset = "[](){}:,>@"

func detectGreetingNames(text string) ([]entity.Span, int) {
	var spans []entity.Span
	skipped := 0
	for _, m := range greetingRe.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[2], m[3]
		raw := text[start:end]
		cleaned := strings.Trim(raw, greetingCutset)
		if cleaned == "" {
			continue
		}
		if isTemporal(cleaned) {
			skipped++
			continue
		}
		spans = append(spans, entity.Span{
			Start:    start,
			End:      end,
			Text:     raw,
			Category: entity.CategoryPerson,
		})
	}
	return spans, skipped
}

func detectHandles(text string) ([]entity.Span, int) {
	var spans []entity.Span
	for _, m := range handleRe.FindAllStringSubmatchIndex(text, -1) {
		// Span covers the whole handle including the @ sigil.
		spans = append(spans, entity.Span{
			Start:    m[0],
			End:      m[1],
			Text:     text[m[0]:m[1]],
			Category: entity.CategoryPerson,
		})
	}
	return spans, 0
}

func detectCodenames(text string) ([]entity.Span, int) {
	var spans []entity.Span
	skipped := 0
	for _, re := range []*regexp.Regexp{nameBeforeTriggerRe, triggerPrepNameRe} {
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			start, end := m[2], m[3]
			matched := text[start:end]
			if isTemporal(matched) {
				skipped++
				continue
			}
			spans = append(spans, entity.Span{
				Start:    start,
				End:      end,
				Text:     matched,
				Category: entity.CategoryProductCode,
			})
		}
	}
	return spans, skipped
}

func detectNamesBeforeEmail(text string) ([]entity.Span, int) {
	var spans []entity.Span
	seen := make(map[int]bool)
	// Two-token names first so "Ryan Chen <ryan@...>" is not reduced to
	// the trailing token by the single-token fallback.
	for _, re := range []*regexp.Regexp{nameEmailPairRe, shortNameEmailRe} {
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			start, end := m[2], m[3]
			if seen[start] {
				continue
			}
			seen[start] = true
			spans = append(spans, entity.Span{
				Start:    start,
				End:      end,
				Text:     text[start:end],
				Category: entity.CategoryPerson,
			})
		}
	}
	return spans, 0
}
