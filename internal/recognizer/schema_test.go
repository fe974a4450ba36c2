package recognizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakhansamani/coach-sophia-ai-anonymizer/patterns"
)

func TestValidateSchemaEmbeddedFiles(t *testing.T) {
	require.NoError(t, ValidateSchema(patterns.RecognizersYAML()),
		"embedded context recognizers must conform to the schema")
	require.NoError(t, ValidateSchema(patterns.FallbackYAML()),
		"embedded fallback patterns must conform to the schema")
}

func TestValidateSchemaValid(t *testing.T) {
	yaml := `
recognizers:
  - name: "Employee ID"
    supported_entity: "EMPLOYEE_ID"
    min_score: 0.4
    context: ["employee", "badge"]
    patterns:
      - name: "emp id"
        regex: '\bEMP-\d{6}\b'
        score: 0.95
`
	assert.NoError(t, ValidateSchema([]byte(yaml)))
}

func TestValidateSchemaRejectsMissingFields(t *testing.T) {
	yaml := `
recognizers:
  - name: "No Patterns"
    supported_entity: "SSN"
`
	err := ValidateSchema([]byte(yaml))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "patterns")
}

func TestValidateSchemaRejectsUnknownKeys(t *testing.T) {
	yaml := `
recognizers:
  - name: "Extra"
    supported_entity: "SSN"
    surprise: true
    patterns:
      - name: "p"
        regex: '\d+'
        score: 0.5
`
	require.Error(t, ValidateSchema([]byte(yaml)))
}

func TestValidateSchemaRejectsOutOfRangeScore(t *testing.T) {
	yaml := `
recognizers:
  - name: "Bad Score"
    supported_entity: "SSN"
    patterns:
      - name: "p"
        regex: '\d+'
        score: 1.5
`
	require.Error(t, ValidateSchema([]byte(yaml)))
}

func TestValidateSchemaRejectsBadRegex(t *testing.T) {
	yaml := `
recognizers:
  - name: "Bad Regex"
    supported_entity: "SSN"
    patterns:
      - name: "p"
        regex: '[unclosed'
        score: 0.5
`
	err := ValidateSchema([]byte(yaml))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"Bad Regex"`)
}

func TestValidateSchemaRejectsNonYAML(t *testing.T) {
	require.Error(t, ValidateSchema([]byte("\t{{{")))
}
