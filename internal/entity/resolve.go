package entity

import "sort"

// Resolve selects a non-overlapping subset of candidate spans.
//
// Candidates are ordered by (start ascending, category priority descending,
// length descending) and accepted greedily: a candidate survives only if it
// does not overlap any already-accepted span. The sweep is deterministic and
// stable under that key, so a PATENT span always beats an overlapping ORG
// span starting at the same offset, and the longer of two same-priority
// spans wins.
//
// The returned spans are sorted by ascending start offset. The input slice
// is not modified.
func Resolve(candidates []Span) []Span {
	sorted := make([]Span, len(candidates))
	copy(sorted, candidates)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.Category.Priority() != b.Category.Priority() {
			return a.Category.Priority() > b.Category.Priority()
		}
		return a.Len() > b.Len()
	})

	accepted := make([]Span, 0, len(sorted))
	for _, cand := range sorted {
		overlaps := false
		for _, kept := range accepted {
			if cand.Overlaps(kept) {
				overlaps = true
				break
			}
		}
		if !overlaps {
			accepted = append(accepted, cand)
		}
	}

	sort.Slice(accepted, func(i, j int) bool {
		return accepted[i].Start < accepted[j].Start
	})
	return accepted
}
