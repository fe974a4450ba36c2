package recognizer

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/lakhansamani/coach-sophia-ai-anonymizer/internal/entity"
	"github.com/lakhansamani/coach-sophia-ai-anonymizer/patterns"
)

// File is the top-level YAML structure for a recognizer config file.
// Mirrors Presidio's recognizer registry YAML format.
type File struct {
	Recognizers []Config `yaml:"recognizers"`
}

// Config is one recognizer definition. Context lists proximity keywords that
// boost a match's confidence when they appear near it.
type Config struct {
	Name            string          `yaml:"name" json:"name"`
	SupportedEntity string          `yaml:"supported_entity" json:"supported_entity"`
	Enabled         *bool           `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Patterns        []PatternConfig `yaml:"patterns,omitempty" json:"patterns,omitempty"`
	Context         []string        `yaml:"context,omitempty" json:"context,omitempty"`
	MinScore        float64         `yaml:"min_score,omitempty" json:"min_score,omitempty"`
}

// PatternConfig is a single regex pattern within a recognizer. The validate
// flags gate matches behind a checksum before they become candidates: a
// credit-card regex matches any 16 digits, Luhn decides which are cards.
type PatternConfig struct {
	Name         string  `yaml:"name" json:"name"`
	Regex        string  `yaml:"regex" json:"regex"`
	Score        float64 `yaml:"score" json:"score"`
	ValidateLuhn bool    `yaml:"validate_luhn,omitempty" json:"validate_luhn,omitempty"`
	ValidateIBAN bool    `yaml:"validate_iban,omitempty" json:"validate_iban,omitempty"`
}

func (c *Config) isEnabled() bool {
	if c.Enabled == nil {
		return true
	}
	return *c.Enabled
}

// ParseFile parses recognizer YAML bytes.
func ParseFile(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing recognizer YAML: %w", err)
	}
	return &f, nil
}

// LoadFile reads and parses a recognizer YAML file from disk. Returns nil
// (not an error) if the file does not exist, so callers can treat a missing
// operator config as a no-op.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading recognizer file %s: %w", path, err)
	}
	return ParseFile(data)
}

// Merge performs a layered merge: embedded defaults, then the operator file,
// then per-request custom recognizers. Later layers override earlier ones by
// matching on Name. New recognizers are appended.
func Merge(layers ...[]Config) []Config {
	index := make(map[string]int)
	var merged []Config

	for _, layer := range layers {
		for _, c := range layer {
			if idx, exists := index[c.Name]; exists {
				merged[idx] = c
			} else {
				index[c.Name] = len(merged)
				merged = append(merged, c)
			}
		}
	}

	return merged
}

// FilterByEntities applies enabled/disabled entity filters. If enabled is
// non-empty, only recognizers with a matching supported_entity are kept;
// then any recognizer whose entity appears in disabled is removed.
func FilterByEntities(configs []Config, enabled, disabled []string) []Config {
	result := configs

	if len(enabled) > 0 {
		allowed := make(map[string]bool, len(enabled))
		for _, e := range enabled {
			allowed[string(entity.Parse(e))] = true
		}
		var filtered []Config
		for _, c := range result {
			if allowed[string(entity.Parse(c.SupportedEntity))] {
				filtered = append(filtered, c)
			}
		}
		result = filtered
	}

	if len(disabled) > 0 {
		blocked := make(map[string]bool, len(disabled))
		for _, e := range disabled {
			blocked[string(entity.Parse(e))] = true
		}
		var filtered []Config
		for _, c := range result {
			if !blocked[string(entity.Parse(c.SupportedEntity))] {
				filtered = append(filtered, c)
			}
		}
		result = filtered
	}

	return result
}

// compiledPattern is one regex ready for matching, with its recognizer's
// context words attached.
type compiledPattern struct {
	recognizer   string
	category     entity.Category
	regex        *regexp.Regexp
	score        float64
	context      []string
	minScore     float64
	validateLuhn bool
	validateIBAN bool
}

// compile converts recognizer configs into compiled patterns. Disabled
// recognizers are skipped; each regex in a recognizer produces one entry.
func compile(configs []Config) ([]compiledPattern, error) {
	var compiled []compiledPattern

	for _, c := range configs {
		if !c.isEnabled() {
			continue
		}
		minScore := c.MinScore
		if minScore == 0 {
			minScore = DefaultMinScore
		}
		for _, p := range c.Patterns {
			re, err := regexp.Compile(p.Regex)
			if err != nil {
				return nil, fmt.Errorf("compiling pattern %q in recognizer %q: %w", p.Name, c.Name, err)
			}
			compiled = append(compiled, compiledPattern{
				recognizer:   c.Name,
				category:     entity.Parse(c.SupportedEntity),
				regex:        re,
				score:        p.Score,
				context:      c.Context,
				minScore:     minScore,
				validateLuhn: p.ValidateLuhn,
				validateIBAN: p.ValidateIBAN,
			})
		}
	}

	return compiled, nil
}

// Registry holds the merged recognizer configs for both regex layers.
type Registry struct {
	patternConfigs  []Config
	fallbackConfigs []Config
}

// LoadRegistry builds a registry from the embedded defaults, optionally
// overridden by an operator YAML file. Pass an empty path to use the
// defaults alone.
func LoadRegistry(operatorPath string) (*Registry, error) {
	defaults, err := ParseFile(patterns.RecognizersYAML())
	if err != nil {
		return nil, fmt.Errorf("embedded recognizers: %w", err)
	}
	fallback, err := ParseFile(patterns.FallbackYAML())
	if err != nil {
		return nil, fmt.Errorf("embedded fallback patterns: %w", err)
	}

	layers := [][]Config{defaults.Recognizers}
	if operatorPath != "" {
		operator, err := LoadFile(operatorPath)
		if err != nil {
			return nil, err
		}
		if operator != nil {
			layers = append(layers, operator.Recognizers)
		}
	}

	return &Registry{
		patternConfigs:  Merge(layers...),
		fallbackConfigs: fallback.Recognizers,
	}, nil
}

// PatternConfigs returns the merged context-aware recognizer configs.
func (r *Registry) PatternConfigs() []Config { return r.patternConfigs }

// NewPatternLayer compiles the context-aware layer, merging in per-request
// custom recognizers and entity filters. Custom recognizers override
// same-named defaults for this request only.
func (r *Registry) NewPatternLayer(custom []Config, enabled, disabled []string) (*PatternLayer, error) {
	configs := Merge(r.patternConfigs, custom)
	configs = FilterByEntities(configs, enabled, disabled)
	compiled, err := compile(configs)
	if err != nil {
		return nil, err
	}
	return &PatternLayer{patterns: compiled}, nil
}

// NewFallbackLayer compiles the strict fallback layer with entity filters
// applied. Fallback patterns are not overridable per request; they are the
// safety net under everything else.
func (r *Registry) NewFallbackLayer(enabled, disabled []string) (*FallbackLayer, error) {
	configs := FilterByEntities(r.fallbackConfigs, enabled, disabled)
	compiled, err := compile(configs)
	if err != nil {
		return nil, err
	}
	return &FallbackLayer{patterns: compiled}, nil
}
