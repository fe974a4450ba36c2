package recognizer

import (
	"context"
	"fmt"

	"github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/entity"
	"github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/ner"
)

// ModelLayer wraps the NER engine as a detection layer. Raw model output is
// filtered at ModelScoreThreshold and labels are normalized onto the internal
// taxonomy. Labels outside the taxonomy are kept, not dropped: the
// replacement table fails closed to a generic token, and dropping an
// uncertain label would leak the underlying text.
type ModelLayer struct {
	engine   ner.Engine
	language string
}

// NewModelLayer creates the model layer. Language defaults to "en".
func NewModelLayer(engine ner.Engine, language string) *ModelLayer {
	if language == "" {
		language = "en"
	}
	return &ModelLayer{engine: engine, language: language}
}

func (l *ModelLayer) Name() string { return "ml_model" }

func (l *ModelLayer) Method() entity.Method { return entity.MethodModel }

func (l *ModelLayer) Detect(ctx context.Context, text string) ([]entity.Span, error) {
	results, err := l.engine.Analyze(ctx, text, l.language)
	if err != nil {
		return nil, fmt.Errorf("model analyze: %w", err)
	}

	var spans []entity.Span
	for _, r := range results {
		if r.Score < ModelScoreThreshold {
			continue
		}
		s := entity.Span{
			Start:    r.Start,
			End:      r.End,
			Category: entity.Parse(r.Label),
			Score:    r.Score,
			Method:   entity.MethodModel,
		}
		if s.Validate(len(text)) != nil {
			continue
		}
		spans = append(spans, s)
	}

	return spans, nil
}
