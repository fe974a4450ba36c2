package entity

import (
	"fmt"
	"sort"
)

// Method identifies which detection layer produced a span.
type Method string

const (
	MethodModel    Method = "ml_model"
	MethodPattern  Method = "custom_recognizer"
	MethodFallback Method = "fallback_regex"
)

// Priority orders detection methods for conflict resolution: the model wins
// over context-aware patterns, which win over the strict fallback regexes.
func (m Method) Priority() int {
	switch m {
	case MethodModel:
		return 3
	case MethodPattern:
		return 2
	case MethodFallback:
		return 1
	default:
		return 0
	}
}

// Span is one labeled character range detected as sensitive. Offsets are
// byte offsets into the analyzed text. Immutable once created; spans from
// different recognizers stay independent until resolved.
type Span struct {
	Start    int      `json:"start"`
	End      int      `json:"end"`
	Category Category `json:"category"`
	Score    float64  `json:"score"`
	Method   Method   `json:"method"`
}

// Validate checks the span invariant 0 <= Start < End <= len(text).
func (s Span) Validate(textLen int) error {
	if s.Start < 0 || s.Start >= s.End || s.End > textLen {
		return fmt.Errorf("invalid span [%d,%d) for text length %d", s.Start, s.End, textLen)
	}
	return nil
}

// Len returns the span length in bytes.
func (s Span) Len() int { return s.End - s.Start }

// Overlaps reports whether two spans share at least one byte.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// SortCandidates orders candidate spans for resolution: start ascending,
// then score descending, then method priority descending, then longer first.
// The resolver relies on this order for its greedy sweep.
func SortCandidates(spans []Span) {
	sort.SliceStable(spans, func(i, j int) bool {
		a, b := spans[i], spans[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if pa, pb := a.Method.Priority(), b.Method.Priority(); pa != pb {
			return pa > pb
		}
		return a.Len() > b.Len()
	})
}
