package anonymizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/entity"
)

func TestReplaceEmpty(t *testing.T) {
	out, audit := Replace("nothing sensitive here", nil)
	assert.Equal(t, "nothing sensitive here", out)
	assert.Nil(t, audit)
}

func TestReplaceSingleSpan(t *testing.T) {
	text := "Call John today"
	spans := []entity.Span{
		{Start: 5, End: 9, Category: entity.CategoryPerson, Score: 0.9, Method: entity.MethodModel},
	}

	out, audit := Replace(text, spans)
	assert.Equal(t, "Call person today", out)
	require.Len(t, audit, 1)
	assert.Equal(t, 5, audit[0].Start)
	assert.Equal(t, 9, audit[0].End)
	assert.Equal(t, "PERSON", audit[0].EntityType)
	assert.Equal(t, "person", audit[0].Replacement)
	assert.Equal(t, "ml_model", audit[0].Method)
}

func TestReplaceMultipleSpansPreservesOffsets(t *testing.T) {
	text := "John emailed jane@x.com yesterday"
	spans := []entity.Span{
		{Start: 0, End: 4, Category: entity.CategoryPerson, Score: 0.9},
		{Start: 13, End: 23, Category: entity.CategoryEmailAddress, Score: 0.5},
	}

	out, audit := Replace(text, spans)
	assert.Equal(t, "person emailed email yesterday", out)

	// Audit offsets stay in pre-replacement coordinates even though the
	// first substitution shifted everything after it.
	require.Len(t, audit, 2)
	assert.Equal(t, 0, audit[0].Start)
	assert.Equal(t, 13, audit[1].Start)
	assert.Equal(t, 23, audit[1].End)
}

func TestReplaceAdjacentSpans(t *testing.T) {
	text := "ab"
	spans := []entity.Span{
		{Start: 0, End: 1, Category: entity.CategoryPerson},
		{Start: 1, End: 2, Category: entity.CategorySSN},
	}
	out, _ := Replace(text, spans)
	assert.Equal(t, "personidentifier", out)
}

func TestReplaceUnknownCategoryFailsClosed(t *testing.T) {
	text := "code XYZZY end"
	spans := []entity.Span{
		{Start: 5, End: 10, Category: entity.Category("NOVEL_THING"), Score: 0.8},
	}
	out, audit := Replace(text, spans)
	assert.Equal(t, "code entity end", out, "unmapped categories get the generic token, never pass-through")
	assert.Equal(t, entity.DefaultToken, audit[0].Replacement)
}

func TestReplaceWholeText(t *testing.T) {
	text := "123-45-6789"
	spans := []entity.Span{
		{Start: 0, End: len(text), Category: entity.CategorySSN, Score: 0.8},
	}
	out, _ := Replace(text, spans)
	assert.Equal(t, "identifier", out)
}
