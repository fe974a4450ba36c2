package recognizer

import (
	"context"
	"strings"

	"github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/entity"
)

// PatternLayer is the context-aware detection layer. Each regex match starts
// at its pattern's base score; context keywords found within
// ContextWindowChars bytes on either side raise the score by ContextBoost,
// capped at 1.0. Matches below the recognizer's minimum score are dropped.
type PatternLayer struct {
	patterns []compiledPattern
}

func (l *PatternLayer) Name() string { return "context_pattern" }

func (l *PatternLayer) Method() entity.Method { return entity.MethodPattern }

// Detect runs every compiled pattern over text. The context check is a
// case-insensitive substring search over the surrounding window, matching
// how Presidio's LemmaContextAwareEnhancer degrades without lemmatization.
func (l *PatternLayer) Detect(ctx context.Context, text string) ([]entity.Span, error) {
	lower := strings.ToLower(text)
	var spans []entity.Span

	for _, p := range l.patterns {
		for _, loc := range p.regex.FindAllStringIndex(text, -1) {
			if !passesChecksums(p, text[loc[0]:loc[1]]) {
				continue
			}
			score := p.score
			if hasContextKeyword(lower, loc[0], loc[1], p.context) {
				score += ContextBoost
				if score > 1.0 {
					score = 1.0
				}
			}
			if score < p.minScore {
				continue
			}
			spans = append(spans, entity.Span{
				Start:    loc[0],
				End:      loc[1],
				Category: p.category,
				Score:    score,
				Method:   entity.MethodPattern,
			})
		}
	}

	return spans, nil
}

// hasContextKeyword reports whether any keyword appears in the window of
// ContextWindowChars bytes before and after the match. lower must be the
// lowercased text; keywords in registry YAML are already lowercase.
func hasContextKeyword(lower string, start, end int, keywords []string) bool {
	if len(keywords) == 0 {
		return false
	}
	winStart := start - ContextWindowChars
	if winStart < 0 {
		winStart = 0
	}
	winEnd := end + ContextWindowChars
	if winEnd > len(lower) {
		winEnd = len(lower)
	}
	window := lower[winStart:winEnd]
	for _, kw := range keywords {
		if strings.Contains(window, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
