package adapter

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicAdapter implements the Adapter interface for Claude models.
type AnthropicAdapter struct {
	opts   Options
	client anthropic.Client
}

// NewAnthropicAdapter creates a new Anthropic adapter.
func NewAnthropicAdapter(opts Options) *AnthropicAdapter {
	opts = opts.withDefaults()

	clientOpts := []option.RequestOption{
		option.WithHTTPClient(opts.HTTPClient),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}

	return &AnthropicAdapter{opts: opts, client: anthropic.NewClient(clientOpts...)}
}

// Provider returns the adapter identifier.
func (a *AnthropicAdapter) Provider() Provider {
	return ProviderAnthropic
}

// Generate sends the request to Claude and concatenates the text blocks.
func (a *AnthropicAdapter) Generate(ctx context.Context, req Request, apiKey string) (*Response, error) {
	ctx, cancel := withTimeout(ctx, a.opts.Timeout)
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Model),
		MaxTokens:   int64(a.opts.maxTokens(req)),
		Temperature: anthropic.Float(a.opts.temperature(req)),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}

	resp, err := a.client.Messages.New(ctx, params, option.WithAPIKey(apiKey))
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return nil, Classify(Failure{Provider: ProviderAnthropic, Status: apiErr.StatusCode, Err: err})
		}
		return nil, Classify(Failure{Provider: ProviderAnthropic, Err: err})
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	return &Response{
		Content: sb.String(),
		Usage: (&Usage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
		}).Normalize(),
	}, nil
}
