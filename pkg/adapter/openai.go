package adapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIAdapter implements the Adapter interface for OpenAI models.
type OpenAIAdapter struct {
	chat chatCompletions
}

// NewOpenAIAdapter creates a new OpenAI adapter.
func NewOpenAIAdapter(opts Options) *OpenAIAdapter {
	return &OpenAIAdapter{chat: newChatCompletions(ProviderOpenAI, opts, "", true)}
}

// Provider returns the adapter identifier.
func (a *OpenAIAdapter) Provider() Provider {
	return ProviderOpenAI
}

// Generate sends the request to OpenAI chat completions.
func (a *OpenAIAdapter) Generate(ctx context.Context, req Request, apiKey string) (*Response, error) {
	return a.chat.generate(ctx, req, apiKey)
}

// chatCompletions drives any vendor that speaks the OpenAI chat
// completions protocol through the openai-go client.
type chatCompletions struct {
	provider Provider
	opts     Options
	client   openai.Client
	// completionTokens selects max_completion_tokens over max_tokens.
	completionTokens bool
}

func newChatCompletions(p Provider, opts Options, defaultBaseURL string, completionTokens bool) chatCompletions {
	opts = opts.withDefaults()

	clientOpts := []option.RequestOption{
		option.WithHTTPClient(opts.HTTPClient),
		option.WithMaxRetries(0),
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(baseURL))
	}

	return chatCompletions{
		provider:         p,
		opts:             opts,
		client:           openai.NewClient(clientOpts...),
		completionTokens: completionTokens,
	}
}

func (c chatCompletions) generate(ctx context.Context, req Request, apiKey string) (*Response, error) {
	ctx, cancel := withTimeout(ctx, c.opts.Timeout)
	defer cancel()

	var messages []openai.ChatCompletionMessageParamUnion
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(req.Model),
		Messages:    messages,
		Temperature: openai.Float(c.opts.temperature(req)),
	}
	if c.completionTokens {
		params.MaxCompletionTokens = openai.Int(int64(c.opts.maxTokens(req)))
	} else {
		params.MaxTokens = openai.Int(int64(c.opts.maxTokens(req)))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, c.classify(err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s returned no choices", c.provider)
	}

	out := &Response{Content: resp.Choices[0].Message.Content}
	if resp.Usage.TotalTokens > 0 || resp.Usage.PromptTokens > 0 {
		out.Usage = (&Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		}).Normalize()
	}
	return out, nil
}

func (c chatCompletions) classify(err error) *ClassifiedError {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return Classify(Failure{Provider: c.provider, Status: apiErr.StatusCode, Err: err})
	}
	return Classify(Failure{Provider: c.provider, Err: err})
}
