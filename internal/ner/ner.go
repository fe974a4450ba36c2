// Package ner defines the external NER capability consumed by the model
// detection layer. The statistical model itself is a black box behind an
// HTTP sidecar: given text and a language, it returns labeled spans with
// confidence scores.
package ner

import "context"

// Result is one raw entity returned by the NER capability. Label is the
// model's entity type string, not yet normalized to the internal taxonomy.
type Result struct {
	Start int     `json:"start"`
	End   int     `json:"end"`
	Label string  `json:"entity_type"`
	Score float64 `json:"score"`
}

// Engine is the NER capability contract. Analyze may fail per call (the
// caller drops that layer's contribution for the request); Health failing at
// process start puts the whole pipeline in degraded mode.
type Engine interface {
	Analyze(ctx context.Context, text, language string) ([]Result, error)
	Health(ctx context.Context) error
	ModelID() string
}
