package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/entity"
)

func TestResolveEmpty(t *testing.T) {
	assert.Nil(t, Resolve(nil))
	assert.Nil(t, Resolve([]entity.Span{}))
}

func TestResolveKeepsDisjointSpans(t *testing.T) {
	in := []entity.Span{
		{Start: 20, End: 30, Category: entity.CategorySSN, Score: 0.8},
		{Start: 0, End: 10, Category: entity.CategoryPerson, Score: 0.9},
	}
	out := Resolve(in)
	require.Len(t, out, 2)
	assert.Equal(t, 0, out[0].Start, "output is sorted by start")
	assert.Equal(t, 20, out[1].Start)
}

func TestResolveHigherScoreWinsOverlap(t *testing.T) {
	in := []entity.Span{
		{Start: 0, End: 10, Category: entity.CategoryPerson, Score: 0.7, Method: entity.MethodModel},
		{Start: 5, End: 15, Category: entity.CategorySSN, Score: 0.95, Method: entity.MethodPattern},
	}
	out := Resolve(in)
	require.Len(t, out, 1)
	assert.Equal(t, entity.CategoryPerson, out[0].Category,
		"earlier start is accepted first; the overlapping later span is rejected")

	// Same overlap, same start: score decides.
	in = []entity.Span{
		{Start: 0, End: 10, Category: entity.CategoryPerson, Score: 0.7, Method: entity.MethodModel},
		{Start: 0, End: 15, Category: entity.CategorySSN, Score: 0.95, Method: entity.MethodPattern},
	}
	out = Resolve(in)
	require.Len(t, out, 1)
	assert.Equal(t, entity.CategorySSN, out[0].Category)
}

func TestResolveMethodPriorityBreaksScoreTie(t *testing.T) {
	in := []entity.Span{
		{Start: 0, End: 10, Category: entity.CategorySSN, Score: 0.8, Method: entity.MethodFallback},
		{Start: 0, End: 10, Category: entity.CategoryPerson, Score: 0.8, Method: entity.MethodModel},
	}
	out := Resolve(in)
	require.Len(t, out, 1)
	assert.Equal(t, entity.MethodModel, out[0].Method)
}

func TestResolveLongerSpanBreaksFullTie(t *testing.T) {
	in := []entity.Span{
		{Start: 0, End: 5, Category: entity.CategoryPerson, Score: 0.8, Method: entity.MethodModel},
		{Start: 0, End: 12, Category: entity.CategoryPerson, Score: 0.8, Method: entity.MethodModel},
	}
	out := Resolve(in)
	require.Len(t, out, 1)
	assert.Equal(t, 12, out[0].End)
}

func TestResolveOutputPairwiseDisjoint(t *testing.T) {
	in := []entity.Span{
		{Start: 0, End: 8, Score: 0.9},
		{Start: 4, End: 12, Score: 0.8},
		{Start: 10, End: 20, Score: 0.95},
		{Start: 18, End: 25, Score: 0.5},
		{Start: 30, End: 35, Score: 0.6},
	}
	out := Resolve(in)
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			assert.False(t, out[i].Overlaps(out[j]),
				"resolved spans %d and %d overlap", i, j)
		}
	}
	for i := 1; i < len(out); i++ {
		assert.LessOrEqual(t, out[i-1].End, out[i].Start)
	}
}
