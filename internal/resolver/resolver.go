// Package resolver turns overlapping candidate spans from the detection
// layers into a single non-overlapping set, and exempts caller-declared
// pseudonyms from redaction.
package resolver

import (
	"github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/entity"
)

// Resolve selects a non-overlapping subset of candidates by greedy sweep.
// Candidates are ordered by start ascending, then score descending, then
// method priority descending, then longer span first; each candidate is
// accepted unless it overlaps one already accepted. The input slice is
// reordered in place; the returned spans are sorted by start and pairwise
// disjoint.
func Resolve(candidates []entity.Span) []entity.Span {
	if len(candidates) == 0 {
		return nil
	}

	entity.SortCandidates(candidates)

	accepted := make([]entity.Span, 0, len(candidates))
	for _, c := range candidates {
		conflict := false
		for _, a := range accepted {
			if c.Overlaps(a) {
				conflict = true
				break
			}
		}
		if !conflict {
			accepted = append(accepted, c)
		}
	}

	// The sweep visits candidates in start order and appends, so accepted
	// is already sorted by start.
	return accepted
}
