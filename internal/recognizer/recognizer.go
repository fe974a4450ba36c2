// Package recognizer implements the three detection layers that feed the
// anonymization pipeline: the statistical model layer, the context-aware
// pattern layer, and the strict fallback regex layer. Each layer emits
// candidate spans; conflict resolution between layers lives in the resolver
// package.
package recognizer

import (
	"context"

	"github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/entity"
)

// Tuning constants for the pattern layer. Context keywords within
// ContextWindowChars bytes of a match raise its confidence by ContextBoost,
// capped at 1.0. Matches scoring below DefaultMinScore after boosting are
// discarded.
const (
	ContextWindowChars = 30
	ContextBoost       = 0.35
	DefaultMinScore    = 0.5
)

// ModelScoreThreshold filters raw model output. The statistical layer is
// recall-heavy; anything it reports below this confidence is noise.
const ModelScoreThreshold = 0.7

// Recognizer is one detection layer. Detect returns candidate spans over
// text; offsets are byte offsets. A failing layer returns an error and the
// chain drops that layer's contribution for the request instead of failing
// the request.
type Recognizer interface {
	Name() string
	Method() entity.Method
	Detect(ctx context.Context, text string) ([]entity.Span, error)
}
