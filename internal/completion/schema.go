package completion

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// FieldError is a single schema violation.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists every violation found in a document.
type ValidationError struct {
	Errors []FieldError
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("schema validation failed:")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf(" %d. %s: %s;", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// ValidateSchema validates document against schema, both given as JSON strings.
func ValidateSchema(schema, document string) error {
	if strings.TrimSpace(document) == "" {
		return &ValidationError{Errors: []FieldError{{Field: "(root)", Message: "empty document"}}}
	}
	result, err := gojsonschema.Validate(gojsonschema.NewStringLoader(schema), gojsonschema.NewStringLoader(document))
	if err != nil {
		return fmt.Errorf("loading schema or document: %w", err)
	}
	if result.Valid() {
		return nil
	}
	ve := &ValidationError{Errors: make([]FieldError, 0, len(result.Errors()))}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		ve.Errors = append(ve.Errors, FieldError{Field: field, Message: desc.Description()})
	}
	return ve
}

// Schemas for the structured responses the pipeline insists on.
const (
	ModerationSchema = `{
  "type": "object",
  "required": ["score"],
  "properties": {
    "score": {"type": "number"},
    "improvements": {"type": "array", "items": {"type": "string"}},
    "rewrite": {"type": ["string", "null"]}
  }
}`

	ScheduleSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "properties": {
      "content_piece_id": {"type": "string"},
      "content_type": {"type": "string"},
      "platform": {"type": ["string", "null"]},
      "scheduled_datetime": {"type": "string"},
      "reason": {"type": "string"}
    }
  }
}`

	KeywordSchema = `{
  "type": "object",
  "required": ["top_keywords"],
  "properties": {
    "top_keywords": {
      "type": "array",
      "items": {"type": "object", "required": ["keyword"], "properties": {"keyword": {"type": "string"}}}
    },
    "long_tail_phrases": {"type": "array", "items": {"type": "string"}},
    "optimization_tips": {"type": "array", "items": {"type": "string"}}
  }
}`
)
