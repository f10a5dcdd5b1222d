package detect

import (
	"regexp"
	"strings"
)

// LexicalRecognizer is the built-in fallback used when no NER model bundle
// is configured. It only proposes multi-word capitalized sequences, leaving
// single tokens to the rule battery, and stays deliberately conservative:
// missing a name is recoverable through known-name lists, a false positive
// is not.
type LexicalRecognizer struct{}

var capitalizedSeqRe = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+){1,3}\b`)

// Sentence-leading words and generic nouns that start capitalized
// sequences without naming anyone.
var lexicalStopwords = map[string]bool{
	"The": true, "This": true, "That": true, "These": true, "Those": true,
	"Please": true, "Contact": true, "Review": true, "Regards": true,
	"Best": true, "Dear": true, "Thanks": true, "Thank": true,
	"Hi": true, "Hey": true, "Hello": true,
	"Project": true, "Codename": true, "Patent": true,
	"Monday": true, "Tuesday": true, "Wednesday": true, "Thursday": true,
	"Friday": true, "Saturday": true, "Sunday": true,
	"January": true, "February": true, "March": true, "April": true,
	"May": true, "June": true, "July": true, "August": true,
	"September": true, "October": true, "November": true, "December": true,
	"Spring": true, "Summer": true, "Fall": true, "Autumn": true, "Winter": true,
}

var orgMarkers = map[string]bool{
	"Inc": true, "Corp": true, "Corporation": true, "Company": true,
	"Ltd": true, "Limited": true, "Labs": true, "Laboratories": true,
	"Technologies": true, "Systems": true, "Group": true, "Holdings": true,
	"Partners": true, "Ventures": true, "Industries": true,
}

var locationMarkers = map[string]bool{
	"City": true, "County": true, "Valley": true, "Bay": true,
	"Island": true, "Street": true, "Avenue": true, "Park": true,
}

func (LexicalRecognizer) Recognize(text string) ([]Labeled, error) {
	var out []Labeled
	for _, loc := range capitalizedSeqRe.FindAllStringIndex(text, -1) {
		matched := text[loc[0]:loc[1]]
		tokens := strings.Fields(matched)
		if rejected(tokens) {
			continue
		}
		out = append(out, Labeled{
			Start: loc[0],
			End:   loc[1],
			Text:  matched,
			Label: classifyTokens(tokens),
		})
	}
	return out, nil
}

func rejected(tokens []string) bool {
	for _, t := range tokens {
		if lexicalStopwords[t] {
			return true
		}
	}
	return false
}

func classifyTokens(tokens []string) string {
	for _, t := range tokens {
		if orgMarkers[t] {
			return "ORG"
		}
	}
	if locationMarkers[tokens[len(tokens)-1]] {
		return "LOCATION"
	}
	return "PERSON"
}
