package adapter

import "context"

const deepseekBaseURL = "https://api.deepseek.com/v1"

// DeepSeekAdapter implements the Adapter interface for DeepSeek models.
// DeepSeek uses an OpenAI-compatible API format with max_tokens.
type DeepSeekAdapter struct {
	chat chatCompletions
}

// NewDeepSeekAdapter creates a new DeepSeek adapter.
func NewDeepSeekAdapter(opts Options) *DeepSeekAdapter {
	return &DeepSeekAdapter{chat: newChatCompletions(ProviderDeepSeek, opts, deepseekBaseURL, false)}
}

// Provider returns the adapter identifier.
func (a *DeepSeekAdapter) Provider() Provider {
	return ProviderDeepSeek
}

// Generate sends the request to DeepSeek chat completions.
func (a *DeepSeekAdapter) Generate(ctx context.Context, req Request, apiKey string) (*Response, error) {
	return a.chat.generate(ctx, req, apiKey)
}
