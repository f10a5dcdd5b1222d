package detect

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/veil-sh/veil/internal/entity"
)

// CustomRule is a user-supplied detection pattern loaded from the rules
// YAML file. If the pattern has a capture group, group 1 is the candidate
// span; otherwise the whole match is.
type CustomRule struct {
	Name     string `yaml:"name"`
	Pattern  string `yaml:"pattern"`
	Category string `yaml:"category"`

	re  *regexp.Regexp
	cat entity.Category
}

type rulesFile struct {
	Rules []CustomRule `yaml:"rules"`
}

// LoadCustomRules parses and compiles the rules file at path. Every rule
// must name a valid category and compile as a regular expression.
func LoadCustomRules(path string) ([]CustomRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}

	for i := range f.Rules {
		r := &f.Rules[i]
		if r.Name == "" {
			return nil, fmt.Errorf("rule %d: missing name", i)
		}
		cat := entity.Category(r.Category)
		if !cat.Valid() {
			return nil, fmt.Errorf("rule %q: unknown category %q", r.Name, r.Category)
		}
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", r.Name, err)
		}
		r.re = re
		r.cat = cat
	}
	return f.Rules, nil
}

// apply runs one custom rule over text, producing candidate spans and a
// count of temporal discards.
func (r CustomRule) apply(text string) ([]entity.Span, int) {
	var spans []entity.Span
	skipped := 0
	for _, m := range r.re.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[0], m[1]
		if len(m) >= 4 && m[2] >= 0 {
			start, end = m[2], m[3]
		}
		matched := text[start:end]
		if isTemporal(matched) {
			skipped++
			continue
		}
		spans = append(spans, entity.Span{
			Start:    start,
			End:      end,
			Text:     matched,
			Category: r.cat,
		})
	}
	return spans, skipped
}
