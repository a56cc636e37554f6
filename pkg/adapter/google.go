package adapter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GoogleAdapter implements the Adapter interface for Gemini models.
type GoogleAdapter struct {
	opts Options
}

// NewGoogleAdapter creates a new Google Gemini adapter.
func NewGoogleAdapter(opts Options) *GoogleAdapter {
	return &GoogleAdapter{opts: opts.withDefaults()}
}

// Provider returns the adapter identifier.
func (a *GoogleAdapter) Provider() Provider {
	return ProviderGoogle
}

// Generate sends the prompt to Gemini's generateContent endpoint.
func (a *GoogleAdapter) Generate(ctx context.Context, req Request, apiKey string) (*Response, error) {
	ctx, cancel := withTimeout(ctx, a.opts.Timeout)
	defer cancel()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  a.opts.HTTPClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: a.opts.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create google client: %w", err)
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(a.opts.temperature(req))),
		MaxOutputTokens: int32(a.opts.maxTokens(req)),
	}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.SystemPrompt}}}
	}

	resp, err := client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return nil, classifyGoogleError(err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("google returned no candidates")
	}

	var sb strings.Builder
	if resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			sb.WriteString(part.Text)
		}
	}

	out := &Response{Content: sb.String()}
	if md := resp.UsageMetadata; md != nil {
		out.Usage = (&Usage{
			PromptTokens:     int(md.PromptTokenCount),
			CompletionTokens: int(md.CandidatesTokenCount),
			TotalTokens:      int(md.TotalTokenCount),
		}).Normalize()
	}
	return out, nil
}

func classifyGoogleError(err error) *ClassifiedError {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return Classify(Failure{Provider: ProviderGoogle, Status: apiErr.Code, Body: apiErr.Message, Err: err})
	}
	return Classify(Failure{Provider: ProviderGoogle, Err: err})
}
