package resolver

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/entity"
)

// PseudonymGuard drops resolved spans that overlap caller-declared
// pseudonyms. Pseudonyms are fictional stand-in names the caller has already
// substituted into the text; redacting them destroys readability without
// protecting anyone.
type PseudonymGuard struct {
	logger zerolog.Logger
}

// NewPseudonymGuard creates a guard that logs every exemption decision.
func NewPseudonymGuard(logger zerolog.Logger) *PseudonymGuard {
	return &PseudonymGuard{logger: logger}
}

// Apply removes spans overlapping any occurrence of any pseudonym.
// Occurrence matching is case-insensitive exact substring. A span that only
// partially overlaps a pseudonym occurrence is dropped whole rather than
// trimmed: a trimmed remainder would redact a fragment of the pseudonym or
// leave a fragment of a real detection, and both are worse than logging the
// conservative drop.
func (g *PseudonymGuard) Apply(text string, pseudonyms []string, spans []entity.Span) []entity.Span {
	if len(pseudonyms) == 0 || len(spans) == 0 {
		return spans
	}

	occurrences := findOccurrences(text, pseudonyms)
	if len(occurrences) == 0 {
		return spans
	}

	kept := make([]entity.Span, 0, len(spans))
	for _, s := range spans {
		exempt := false
		for _, occ := range occurrences {
			if s.Overlaps(occ.span) {
				exempt = true
				g.logger.Debug().
					Str("pseudonym", occ.pseudonym).
					Int("span_start", s.Start).
					Int("span_end", s.End).
					Str("category", string(s.Category)).
					Msg("span exempted by pseudonym guard")
				break
			}
		}
		if !exempt {
			kept = append(kept, s)
		}
	}

	if dropped := len(spans) - len(kept); dropped > 0 {
		g.logger.Info().Int("exempted_spans", dropped).Msg("pseudonym exemptions applied")
	}
	return kept
}

type occurrence struct {
	pseudonym string
	span      entity.Span
}

// findOccurrences locates every case-insensitive occurrence of every
// pseudonym in text. Matching runs over the original text, never a
// re-encoded copy: lowercasing changes byte lengths for some runes (U+0130
// shrinks from two bytes to one) and would shift every offset after it,
// misaligning occurrences against detected spans. Overlapping occurrences
// of the same pseudonym are found by advancing one byte past each match
// start.
func findOccurrences(text string, pseudonyms []string) []occurrence {
	var out []occurrence

	for _, p := range pseudonyms {
		needle := strings.TrimSpace(p)
		if needle == "" {
			continue
		}
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(needle))
		for from := 0; from < len(text); {
			loc := re.FindStringIndex(text[from:])
			if loc == nil {
				break
			}
			start := from + loc[0]
			out = append(out, occurrence{
				pseudonym: p,
				span:      entity.Span{Start: start, End: from + loc[1]},
			})
			from = start + 1
		}
	}

	return out
}
