// Package patterns provides embedded default recognizer definitions.
// YAML files in this directory use the Presidio-compatible recognizer format:
// each recognizer declares a supported_entity, regex patterns with base
// scores, and optional context words used for proximity score boosting.
package patterns

import _ "embed"

//go:embed recognizers.yaml
var recognizersYAML []byte

//go:embed fallback.yaml
var fallbackYAML []byte

// RecognizersYAML returns the embedded context-aware recognizer definitions
// used by the pattern detection layer.
func RecognizersYAML() []byte { return recognizersYAML }

// FallbackYAML returns the embedded strict-regex definitions used by the
// fallback detection layer. These carry no context words and keep detection
// alive when both the model and pattern layers are unavailable.
func FallbackYAML() []byte { return fallbackYAML }
