package anonymizer

import (
	"github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/entity"
)

// ReplacedSpan is one substitution in the audit list. Start and End are
// pre-replacement coordinates in the original text, so a caller can
// reconstruct which character ranges were redacted regardless of how the
// replacements shifted later offsets.
type ReplacedSpan struct {
	Start       int     `json:"start"`
	End         int     `json:"end"`
	EntityType  string  `json:"entity_type"`
	Score       float64 `json:"score"`
	Method      string  `json:"method"`
	Replacement string  `json:"replacement"`
}

// Replace rewrites text by substituting each span with its category's
// generic token. Spans must be non-overlapping and sorted by start (the
// resolver's output contract); they are consumed in reverse order so earlier
// substitutions never invalidate later offsets. The token lookup is total:
// categories without a mapping get the default token, never pass-through.
func Replace(text string, spans []entity.Span) (string, []ReplacedSpan) {
	if len(spans) == 0 {
		return text, nil
	}

	audit := make([]ReplacedSpan, len(spans))
	out := text
	for i := len(spans) - 1; i >= 0; i-- {
		s := spans[i]
		token := s.Category.Token()
		out = out[:s.Start] + token + out[s.End:]
		audit[i] = ReplacedSpan{
			Start:       s.Start,
			End:         s.End,
			EntityType:  string(s.Category),
			Score:       s.Score,
			Method:      string(s.Method),
			Replacement: token,
		}
	}

	return out, audit
}
