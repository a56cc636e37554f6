package generator

import (
	"context"
	"fmt"

	"github.com/zen-systems/questforge/pkg/adapter"
	"github.com/zen-systems/questforge/pkg/extract"
	"github.com/zen-systems/questforge/pkg/prompt"
	"github.com/zen-systems/questforge/pkg/schema"
)

// StructuredResult is a Result whose content parsed and validated into T.
type StructuredResult[T any] struct {
	Result
	Parsed T `json:"parsed"`
}

// GenerateStructured generates, extracts the JSON object from the reply and
// runs validate on it. Output that does not parse or validate moves on to
// the next fallback model.
func GenerateStructured[T any](ctx context.Context, s *Service, req adapter.Request, validate func(map[string]any) (T, error), fallbacks ...string) (*StructuredResult[T], error) {
	if validate == nil {
		return nil, fmt.Errorf("generator: nil validator")
	}

	var parsed T
	res, err := s.run(ctx, req, fallbacks, func(content string) error {
		obj, err := extract.Object(content)
		if err != nil {
			return err
		}
		v, err := validate(obj)
		if err != nil {
			return err
		}
		parsed = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &StructuredResult[T]{Result: *res, Parsed: parsed}, nil
}

// GenerateQuestion generates one schema-valid question. The question
// system prompt is used when req has none.
func (s *Service) GenerateQuestion(ctx context.Context, req adapter.Request, fallbacks []string) (*StructuredResult[schema.Question], error) {
	if req.SystemPrompt == "" {
		req.SystemPrompt = prompt.SystemPrompt
	}
	return GenerateStructured(ctx, s, req, schema.Validate, fallbacks...)
}
