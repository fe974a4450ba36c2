package recognizer

import (
	"context"
	"regexp"
	"strconv"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/entity"
	anonotel "github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/otel"
)

var tracer = anonotel.Tracer("github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/recognizer")

// Chain runs the detection layers in order and collects their candidate
// spans. A layer failure is isolated: the error is logged and the remaining
// layers still run, so one stuck recognizer degrades recall instead of
// failing the request. The fallback layer runs last and its near-duplicates
// of earlier hits are suppressed.
type Chain struct {
	layers   []Recognizer
	fallback *FallbackLayer
	logger   zerolog.Logger
}

// NewChain assembles a detection chain. layers run in the given order before
// the fallback; pass the model layer first when it is available.
func NewChain(logger zerolog.Logger, fallback *FallbackLayer, layers ...Recognizer) *Chain {
	return &Chain{layers: layers, fallback: fallback, logger: logger}
}

// Detect returns all candidate spans over text, unresolved. Invalid spans
// from any layer are dropped; AGE spans whose stated value exceeds 89 are
// promoted to AGE_OVER_89 before the candidates are handed to the resolver.
func (c *Chain) Detect(ctx context.Context, text string) []entity.Span {
	ctx, span := tracer.Start(ctx, "recognizer.chain",
		trace.WithAttributes(attribute.Int("text_len", len(text))))
	defer span.End()

	var candidates []entity.Span

	for _, layer := range c.layers {
		hits, err := layer.Detect(ctx, text)
		if err != nil {
			c.logger.Warn().Err(err).Str("layer", layer.Name()).
				Msg("detection layer failed, continuing without it")
			continue
		}
		candidates = append(candidates, validOnly(hits, len(text))...)
	}

	if c.fallback != nil {
		hits, err := c.fallback.Detect(ctx, text)
		if err != nil {
			c.logger.Warn().Err(err).Str("layer", c.fallback.Name()).
				Msg("fallback layer failed, continuing without it")
		} else {
			hits = SuppressNearDuplicates(candidates, validOnly(hits, len(text)))
			candidates = append(candidates, hits...)
		}
	}

	promoteAges(text, candidates)

	span.SetAttributes(attribute.Int("candidate_count", len(candidates)))
	return candidates
}

func validOnly(spans []entity.Span, textLen int) []entity.Span {
	kept := spans[:0]
	for _, s := range spans {
		if s.Validate(textLen) == nil {
			kept = append(kept, s)
		}
	}
	return kept
}

var ageDigits = regexp.MustCompile(`\d{1,3}`)

// promoteAges reclassifies AGE spans as AGE_OVER_89 when the first number in
// the matched text parses to a value above 89. HIPAA Safe Harbor treats such
// ages as a distinct identifier class.
func promoteAges(text string, spans []entity.Span) {
	for i, s := range spans {
		if s.Category != entity.CategoryAge {
			continue
		}
		m := ageDigits.FindString(text[s.Start:s.End])
		if m == "" {
			continue
		}
		if v, err := strconv.Atoi(m); err == nil && v > 89 {
			spans[i].Category = entity.CategoryAgeOver89
		}
	}
}
