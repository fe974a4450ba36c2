package recognizer

import (
	"context"

	"github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/entity"
)

// nearDupTolerance is the slack, in bytes, within which a fallback hit is
// considered a duplicate of a span another layer already found.
const nearDupTolerance = 3

// FallbackLayer is the last detection layer: strict regexes with no context
// awareness, pre-assigned confidence tiers, always on. It exists so that an
// unambiguous identifier like an SSN is caught even when the model layer is
// down and no context keyword is nearby.
type FallbackLayer struct {
	patterns []compiledPattern
}

func (l *FallbackLayer) Name() string { return "fallback_regex" }

func (l *FallbackLayer) Method() entity.Method { return entity.MethodFallback }

// Detect runs every fallback pattern over text. Scores come straight from
// the pattern config; there is no context boosting in this layer. Checksum
// gates still apply, so a sixteen-digit order number does not become a
// credit card.
func (l *FallbackLayer) Detect(ctx context.Context, text string) ([]entity.Span, error) {
	var spans []entity.Span

	for _, p := range l.patterns {
		for _, loc := range p.regex.FindAllStringIndex(text, -1) {
			if !passesChecksums(p, text[loc[0]:loc[1]]) {
				continue
			}
			spans = append(spans, entity.Span{
				Start:    loc[0],
				End:      loc[1],
				Category: p.category,
				Score:    p.score,
				Method:   entity.MethodFallback,
			})
		}
	}

	return spans, nil
}

// SuppressNearDuplicates drops fallback hits that sit within nearDupTolerance
// bytes of a span an earlier layer already produced. The earlier layers carry
// context and model confidence the fallback lacks, so their span wins and the
// fallback copy would only create a conflicting duplicate for the resolver.
func SuppressNearDuplicates(existing, hits []entity.Span) []entity.Span {
	if len(existing) == 0 {
		return hits
	}
	kept := hits[:0]
	for _, h := range hits {
		dup := false
		for _, e := range existing {
			if abs(h.Start-e.Start) <= nearDupTolerance && abs(h.End-e.End) <= nearDupTolerance {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, h)
		}
	}
	return kept
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
