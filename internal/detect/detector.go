// Package detect finds sensitive spans in document text. Detection is
// two-pronged: a recognizer (ONNX NER model when a bundle is configured,
// a lexical fallback otherwise) proposes labeled candidates, and a fixed
// rule battery catches the structured forms models miss (patents, product
// codes, emails, handles, greeting names). Overlapping candidates are
// resolved by category priority and length.
package detect

import (
	"github.com/veil-sh/veil/internal/config"
	"github.com/veil-sh/veil/internal/entity"
)

// Detector runs the full candidate pipeline for one text. Safe for
// concurrent use.
type Detector struct {
	recognizer Recognizer
	rules      []CustomRule
	cache      *SpanCache
}

// Result holds the resolved spans plus counters the caller reports.
type Result struct {
	Spans []entity.Span
	// SkippedTemporal counts candidates discarded because they matched a
	// date, quarter, or season form.
	SkippedTemporal int
}

// New builds a Detector from configuration. An NER bundle directory enables
// the ONNX recognizer; without one the lexical fallback is used. Custom
// rules and the span cache are both optional.
func New(cfg *config.Config) (*Detector, error) {
	d := &Detector{recognizer: LexicalRecognizer{}}

	if cfg.NERBundleDir != "" {
		rec, err := LoadONNXRecognizer(cfg.NERBundleDir, cfg.NERSeqLen)
		if err != nil {
			return nil, err
		}
		d.recognizer = rec
	}

	if cfg.RulesPath != "" {
		rules, err := LoadCustomRules(cfg.RulesPath)
		if err != nil {
			return nil, err
		}
		d.rules = rules
	}

	if cfg.DetectCachePath != "" {
		cache, err := OpenSpanCache(cfg.DetectCachePath)
		if err != nil {
			return nil, err
		}
		d.cache = cache
	}

	return d, nil
}

// NewWithRecognizer builds a Detector around an explicit recognizer, with
// no custom rules or cache. Used by tests and embedding callers.
func NewWithRecognizer(rec Recognizer) *Detector {
	return &Detector{recognizer: rec}
}

func (d *Detector) Close() error {
	if d.cache != nil {
		return d.cache.Close()
	}
	return nil
}

// Detect produces the final non-overlapping span set for text.
func (d *Detector) Detect(text string) (*Result, error) {
	if text == "" {
		return &Result{}, nil
	}

	labeled, err := d.recognize(text)
	if err != nil {
		return nil, err
	}

	var candidates []entity.Span
	skipped := 0

	for _, l := range labeled {
		cat, temporal := mapLabel(l.Label)
		if temporal || isTemporal(l.Text) {
			skipped++
			continue
		}
		candidates = append(candidates, entity.Span{
			Start:    l.Start,
			End:      l.End,
			Text:     l.Text,
			Category: cat,
		})
	}

	for _, rule := range ruleBattery {
		spans, s := rule(text)
		candidates = append(candidates, spans...)
		skipped += s
	}
	for _, rule := range d.rules {
		spans, s := rule.apply(text)
		candidates = append(candidates, spans...)
		skipped += s
	}

	return &Result{
		Spans:           entity.Resolve(candidates),
		SkippedTemporal: skipped,
	}, nil
}

func (d *Detector) recognize(text string) ([]Labeled, error) {
	if d.cache != nil {
		if cached, ok := d.cache.Get(text); ok {
			return cached, nil
		}
	}
	labeled, err := d.recognizer.Recognize(text)
	if err != nil {
		return nil, err
	}
	if d.cache != nil {
		d.cache.Put(text, labeled)
	}
	return labeled, nil
}
