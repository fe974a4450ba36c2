package recognizer

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// recognizerSchema is the JSON Schema for recognizer registry YAML files.
// It mirrors the Presidio recognizer format plus the min_score extension.
const recognizerSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "Recognizer Registry",
  "type": "object",
  "required": ["recognizers"],
  "additionalProperties": false,
  "properties": {
    "recognizers": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "supported_entity", "patterns"],
        "additionalProperties": false,
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "supported_entity": {"type": "string", "minLength": 1},
          "enabled": {"type": "boolean"},
          "min_score": {"type": "number", "minimum": 0, "maximum": 1},
          "context": {"type": "array", "items": {"type": "string", "minLength": 1}},
          "patterns": {
            "type": "array",
            "minItems": 1,
            "items": {
              "type": "object",
              "required": ["name", "regex", "score"],
              "additionalProperties": false,
              "properties": {
                "name": {"type": "string", "minLength": 1},
                "regex": {"type": "string", "minLength": 1},
                "score": {"type": "number", "minimum": 0, "maximum": 1},
                "validate_luhn": {"type": "boolean"},
                "validate_iban": {"type": "boolean"}
              }
            }
          }
        }
      }
    }
  }
}`

// ValidateSchema validates recognizer registry YAML bytes against the JSON
// schema, then checks that every regex actually compiles. The YAML is first
// converted to JSON because gojsonschema operates on JSON.
func ValidateSchema(yamlBytes []byte) error {
	var raw interface{}
	if err := yaml.Unmarshal(yamlBytes, &raw); err != nil {
		return fmt.Errorf("parsing YAML for schema validation: %w", err)
	}

	jsonBytes, err := json.Marshal(normalizeYAML(raw))
	if err != nil {
		return fmt.Errorf("converting YAML to JSON: %w", err)
	}

	schemaLoader := gojsonschema.NewStringLoader(recognizerSchema)
	documentLoader := gojsonschema.NewBytesLoader(jsonBytes)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if !result.Valid() {
		var errMsg string
		for _, verr := range result.Errors() {
			errMsg += fmt.Sprintf("- %s\n", verr)
		}
		return fmt.Errorf("schema validation errors:\n%s", errMsg)
	}

	f, err := ParseFile(yamlBytes)
	if err != nil {
		return err
	}
	for _, rec := range f.Recognizers {
		for _, p := range rec.Patterns {
			if _, err := regexp.Compile(p.Regex); err != nil {
				return fmt.Errorf("recognizer %q pattern %q: %w", rec.Name, p.Name, err)
			}
		}
	}

	return nil
}

// normalizeYAML recursively converts map[interface{}]interface{} to
// map[string]interface{} so that json.Marshal can handle it.
func normalizeYAML(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, v := range val {
			out[k] = normalizeYAML(v)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, v := range val {
			out[fmt.Sprintf("%v", k)] = normalizeYAML(v)
		}
		return out
	case []interface{}:
		for i, item := range val {
			val[i] = normalizeYAML(item)
		}
		return val
	default:
		return v
	}
}
