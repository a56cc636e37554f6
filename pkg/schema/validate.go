package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// ErrValidation marks every schema violation.
var ErrValidation = errors.New("schema: question failed validation")

// Violation identifies which rule a question broke.
type Violation string

const (
	ViolationMissingField      Violation = "missing_field"
	ViolationInvalidDifficulty Violation = "invalid_difficulty"
	ViolationOptionCount       Violation = "option_count"
	ViolationCorrectCount      Violation = "correct_count"
)

// ValidationError describes the first rule a question broke.
type ValidationError struct {
	Kind    Violation
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("schema: %s: %s", e.Field, e.Message)
	}
	return "schema: " + e.Message
}

// Is reports ErrValidation so callers can match every violation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

const questionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["title", "stem", "difficulty", "teachingPoint", "options"],
  "properties": {
    "title": {"type": "string", "minLength": 1},
    "stem": {"type": "string", "minLength": 1},
    "difficulty": {"type": "string", "enum": ["easy", "medium", "hard"]},
    "teachingPoint": {"type": "string", "minLength": 1},
    "references": {"type": "array", "items": {"type": "string"}},
    "suggestedTags": {"type": "array", "items": {"type": "string"}},
    "options": {
      "type": "array",
      "minItems": 4,
      "maxItems": 4,
      "items": {
        "type": "object",
        "required": ["text", "isCorrect"],
        "properties": {
          "id": {"type": "string"},
          "text": {"type": "string", "minLength": 1},
          "isCorrect": {"type": "boolean"},
          "explanation": {"type": "string"}
        }
      }
    }
  }
}`

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(questionSchema))
})

// Validate normalizes obj and checks it against the question contract:
// required fields and difficulty first, then the option count, then the
// number of correct options.
func Validate(obj map[string]any) (Question, error) {
	if obj == nil {
		return Question{}, &ValidationError{Kind: ViolationMissingField, Message: "question is empty"}
	}
	obj = Normalize(obj)

	s, err := compiledSchema()
	if err != nil {
		return Question{}, fmt.Errorf("schema: compile question schema: %w", err)
	}
	result, err := s.Validate(gojsonschema.NewGoLoader(obj))
	if err != nil {
		return Question{}, fmt.Errorf("schema: validate question: %w", err)
	}
	if !result.Valid() {
		return Question{}, firstViolation(result.Errors())
	}

	data, err := json.Marshal(obj)
	if err != nil {
		return Question{}, fmt.Errorf("schema: encode question: %w", err)
	}
	var q Question
	if err := json.Unmarshal(data, &q); err != nil {
		return Question{}, fmt.Errorf("schema: decode question: %w", err)
	}

	correct := 0
	for _, opt := range q.Options {
		if opt.IsCorrect {
			correct++
		}
	}
	if correct != 1 {
		return Question{}, &ValidationError{
			Kind:    ViolationCorrectCount,
			Field:   "options",
			Message: fmt.Sprintf("expected exactly 1 correct option, got %d", correct),
		}
	}
	return q, nil
}

var violationRank = map[Violation]int{
	ViolationMissingField:      0,
	ViolationInvalidDifficulty: 1,
	ViolationOptionCount:       2,
}

func firstViolation(errs []gojsonschema.ResultError) *ValidationError {
	var best *ValidationError
	for _, re := range errs {
		v := toViolation(re)
		if best == nil || violationRank[v.Kind] < violationRank[best.Kind] {
			best = v
		}
	}
	if best == nil {
		best = &ValidationError{Kind: ViolationMissingField, Message: "question does not match schema"}
	}
	return best
}

func toViolation(re gojsonschema.ResultError) *ValidationError {
	field := resultField(re)
	switch {
	case re.Type() == "required":
		return &ValidationError{Kind: ViolationMissingField, Field: field, Message: "required field is missing"}
	case field == "difficulty":
		return &ValidationError{Kind: ViolationInvalidDifficulty, Field: field, Message: "difficulty must be one of easy, medium, hard"}
	case field == "options" && (re.Type() == "array_min_items" || re.Type() == "array_max_items"):
		n := 0
		if arr, ok := re.Value().([]any); ok {
			n = len(arr)
		}
		return &ValidationError{
			Kind:    ViolationOptionCount,
			Field:   field,
			Message: fmt.Sprintf("expected exactly %d options, got %d", OptionCount, n),
		}
	default:
		return &ValidationError{Kind: ViolationMissingField, Field: field, Message: re.Description()}
	}
}

func resultField(re gojsonschema.ResultError) string {
	field := re.Field()
	if field == gojsonschema.STRING_ROOT_SCHEMA_PROPERTY {
		field = ""
	}
	if re.Type() == "required" {
		if prop, ok := re.Details()["property"].(string); ok && prop != "" {
			if field == "" {
				return prop
			}
			return field + "." + prop
		}
	}
	return strings.TrimPrefix(field, ".")
}
