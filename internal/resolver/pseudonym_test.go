package resolver

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/entity"
)

func TestPseudonymGuardExemptsExactMatch(t *testing.T) {
	guard := NewPseudonymGuard(zerolog.Nop())
	text := "Contact Jane Doe about the case"
	spans := []entity.Span{
		{Start: 8, End: 16, Category: entity.CategoryPerson, Score: 0.9}, // "Jane Doe"
	}

	kept := guard.Apply(text, []string{"Jane Doe"}, spans)
	assert.Empty(t, kept, "a span covering the pseudonym is exempt from redaction")
}

func TestPseudonymGuardCaseInsensitive(t *testing.T) {
	guard := NewPseudonymGuard(zerolog.Nop())
	text := "Contact JANE DOE about the case"
	spans := []entity.Span{
		{Start: 8, End: 16, Category: entity.CategoryPerson, Score: 0.9},
	}

	kept := guard.Apply(text, []string{"jane doe"}, spans)
	assert.Empty(t, kept)
}

func TestPseudonymGuardPartialOverlapDropsWhole(t *testing.T) {
	guard := NewPseudonymGuard(zerolog.Nop())
	text := "Dr. Jane Doe Smith attended"
	spans := []entity.Span{
		// Detection covers "Jane Doe Smith"; pseudonym is only "Jane Doe".
		{Start: 4, End: 18, Category: entity.CategoryPerson, Score: 0.9},
	}

	kept := guard.Apply(text, []string{"Jane Doe"}, spans)
	assert.Empty(t, kept, "partial overlaps drop the whole span, never trim it")
}

func TestPseudonymGuardKeepsUnrelatedSpans(t *testing.T) {
	guard := NewPseudonymGuard(zerolog.Nop())
	text := "Jane Doe called from 555-123-4567"
	spans := []entity.Span{
		{Start: 0, End: 8, Category: entity.CategoryPerson, Score: 0.9},
		{Start: 21, End: 33, Category: entity.CategoryPhoneNumber, Score: 0.5},
	}

	kept := guard.Apply(text, []string{"Jane Doe"}, spans)
	require.Len(t, kept, 1)
	assert.Equal(t, entity.CategoryPhoneNumber, kept[0].Category)
}

func TestPseudonymGuardMultipleOccurrences(t *testing.T) {
	guard := NewPseudonymGuard(zerolog.Nop())
	text := "Jane Doe spoke; later Jane Doe left"
	spans := []entity.Span{
		{Start: 0, End: 8, Category: entity.CategoryPerson, Score: 0.9},
		{Start: 22, End: 30, Category: entity.CategoryPerson, Score: 0.9},
	}

	kept := guard.Apply(text, []string{"Jane Doe"}, spans)
	assert.Empty(t, kept, "every occurrence of the pseudonym is exempt")
}

func TestPseudonymGuardNoOccurrences(t *testing.T) {
	guard := NewPseudonymGuard(zerolog.Nop())
	spans := []entity.Span{{Start: 0, End: 5, Category: entity.CategoryPerson, Score: 0.9}}

	kept := guard.Apply("Alice spoke", []string{"Jane Doe"}, spans)
	assert.Equal(t, spans, kept, "absent pseudonyms change nothing")
}

func TestPseudonymGuardBlankPseudonymIgnored(t *testing.T) {
	guard := NewPseudonymGuard(zerolog.Nop())
	spans := []entity.Span{{Start: 0, End: 5, Category: entity.CategoryPerson, Score: 0.9}}

	kept := guard.Apply("Alice spoke", []string{"   "}, spans)
	assert.Equal(t, spans, kept)
}

func TestPseudonymGuardMultibyteTextKeepsOffsets(t *testing.T) {
	guard := NewPseudonymGuard(zerolog.Nop())
	// Two 2-byte 'İ' runes before the SSN. Lowercasing this text would
	// shrink it and shift every offset after the runes.
	text := "İİ 123-45-6789 ab"
	spans := []entity.Span{
		{Start: 5, End: 16, Category: entity.CategorySSN, Score: 0.8},     // "123-45-6789"
		{Start: 17, End: 19, Category: entity.CategoryPerson, Score: 0.9}, // "ab"
	}

	kept := guard.Apply(text, []string{"ab"}, spans)
	require.Len(t, kept, 1, "the SSN must survive; only the pseudonym is exempt")
	assert.Equal(t, entity.CategorySSN, kept[0].Category)

	occs := findOccurrences(text, []string{"ab"})
	require.Len(t, occs, 1)
	assert.Equal(t, 17, occs[0].span.Start, "occurrence offsets are original-text offsets")
	assert.Equal(t, 19, occs[0].span.End)
}

func TestFindOccurrencesLiteralMetacharacters(t *testing.T) {
	occs := findOccurrences("J. Doe and JX Doe", []string{"J. Doe"})
	require.Len(t, occs, 1, "the dot matches literally, not as a wildcard")
	assert.Equal(t, 0, occs[0].span.Start)
	assert.Equal(t, 6, occs[0].span.End)
}

func TestFindOccurrencesOverlapping(t *testing.T) {
	occs := findOccurrences("aaaa", []string{"aa"})
	require.Len(t, occs, 3, "overlapping occurrences are all found")
	assert.Equal(t, 0, occs[0].span.Start)
	assert.Equal(t, 1, occs[1].span.Start)
	assert.Equal(t, 2, occs[2].span.Start)
}
