package adapter

import (
	"context"
)

// MockQuestion is the canned answer of the mock adapter: a valid question
// wrapped in prose and a code fence, the way real models tend to reply.
const MockQuestion = "Here is the question you asked for:\n\n```json\n" + `{
  "title": "Mock question",
  "stem": "Which option is correct?",
  "difficulty": "easy",
  "teachingPoint": "The mock adapter always marks option B as correct.",
  "references": ["questforge mock adapter"],
  "options": [
    {"text": "Option A", "isCorrect": false, "explanation": "A is a distractor."},
    {"text": "Option B", "isCorrect": true, "explanation": "B is correct."},
    {"text": "Option C", "isCorrect": false, "explanation": "C is a distractor."},
    {"text": "Option D", "isCorrect": false, "explanation": "D is a distractor."}
  ]
}` + "\n```\n"

// MockAdapter returns deterministic responses for local runs and tests.
type MockAdapter struct {
	responses       map[string]string
	defaultResponse string
	Usage           *Usage
}

// NewMockAdapter creates a mock adapter that answers with MockQuestion.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{
		responses:       make(map[string]string),
		defaultResponse: MockQuestion,
	}
}

// NewMockAdapterWithResponses creates a mock adapter with predefined responses.
func NewMockAdapterWithResponses(responses map[string]string, defaultResponse string) *MockAdapter {
	if defaultResponse == "" {
		defaultResponse = MockQuestion
	}
	return &MockAdapter{responses: responses, defaultResponse: defaultResponse}
}

// Provider returns the adapter identifier.
func (a *MockAdapter) Provider() Provider {
	return ProviderMock
}

// Generate returns the canned response for the prompt.
func (a *MockAdapter) Generate(ctx context.Context, req Request, _ string) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, Classify(Failure{Provider: ProviderMock, Err: err})
	}
	if response, ok := a.responses[req.Prompt]; ok {
		return &Response{Content: response, Usage: a.Usage}, nil
	}
	return &Response{Content: a.defaultResponse, Usage: a.Usage}, nil
}
