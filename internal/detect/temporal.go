package detect

import "regexp"

// Temporal guard: redaction must never touch dates, quarters, or seasons.
// Every detector that could plausibly capture one runs its candidate text
// through these checks and discards on a hit.
var (
	quarterRe  = regexp.MustCompile(`(?i)\bQ[1-4]\s+(?:FY?)?\d{4}\b`)
	monthDayRe = regexp.MustCompile(`(?i)\b(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\s+\d{1,2}(?:st|nd|rd|th)?(?:,\s*\d{4})?\b`)
	dayMonthRe = regexp.MustCompile(`(?i)\b\d{1,2}\s+(?:January|February|March|April|May|June|July|August|September|October|November|December)(?:\s+\d{4})?\b`)
	seasonRe   = regexp.MustCompile(`(?i)\b(?:Spring|Summer|Fall|Autumn|Winter)\s+\d{4}\b`)
)

// looksLikeQuarter reports whether s contains a fiscal-quarter form such as
// "Q1 2025" or "Q3 FY2024".
func looksLikeQuarter(s string) bool {
	return quarterRe.MatchString(s)
}

// looksLikeDate reports whether s contains a date, month-day(-year),
// "Season Year", or quarter form.
func looksLikeDate(s string) bool {
	return quarterRe.MatchString(s) ||
		monthDayRe.MatchString(s) ||
		dayMonthRe.MatchString(s) ||
		seasonRe.MatchString(s)
}

// isTemporal is the combined guard used by the rule battery.
func isTemporal(s string) bool {
	return looksLikeDate(s) || looksLikeQuarter(s)
}
