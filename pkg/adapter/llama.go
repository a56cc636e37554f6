package adapter

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

const llamaBaseURL = "https://api.llama.com/v1"

// LlamaAdapter implements the Adapter interface for Meta's Llama API.
// The API answers either in its native completion_message envelope or in
// the OpenAI-compatible choices envelope.
type LlamaAdapter struct {
	opts    Options
	baseURL string
}

type llamaRequest struct {
	Model               string        `json:"model"`
	Messages            []chatMessage `json:"messages"`
	MaxCompletionTokens int           `json:"max_completion_tokens"`
	Temperature         float64       `json:"temperature"`
}

var (
	llamaContentPaths = []string{
		"completion_message.content.text",
		"completion_message.content",
		"choices.0.message.content",
	}
	llamaUsagePaths = []string{
		"usage",
		"token_usage",
		"completion_message.usage",
	}
)

// NewLlamaAdapter creates a new Llama adapter.
func NewLlamaAdapter(opts Options) *LlamaAdapter {
	opts = opts.withDefaults()
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = llamaBaseURL
	}
	return &LlamaAdapter{opts: opts, baseURL: strings.TrimRight(baseURL, "/")}
}

// Provider returns the adapter identifier.
func (a *LlamaAdapter) Provider() Provider {
	return ProviderLlama
}

// Generate sends the request to the Llama chat completions endpoint.
func (a *LlamaAdapter) Generate(ctx context.Context, req Request, apiKey string) (*Response, error) {
	ctx, cancel := withTimeout(ctx, a.opts.Timeout)
	defer cancel()

	body := llamaRequest{
		Model:               req.Model,
		Messages:            chatMessages(req),
		MaxCompletionTokens: a.opts.maxTokens(req),
		Temperature:         a.opts.temperature(req),
	}

	data, err := postJSON(ctx, a.opts.HTTPClient, ProviderLlama, a.baseURL+"/chat/completions", bearer(apiKey), body)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("llama returned invalid JSON")
	}

	return &Response{
		Content: firstString(data, llamaContentPaths),
		Usage:   llamaUsage(data),
	}, nil
}

func firstString(data []byte, paths []string) string {
	for _, path := range paths {
		if r := gjson.GetBytes(data, path); r.Type == gjson.String && r.Str != "" {
			return r.Str
		}
	}
	return ""
}

func llamaUsage(data []byte) *Usage {
	for _, path := range llamaUsagePaths {
		if r := gjson.GetBytes(data, path); r.IsObject() {
			return openAIStyleUsage(r)
		}
	}

	// Native responses report counters as a metrics list.
	metrics := gjson.GetBytes(data, "metrics")
	if !metrics.IsArray() {
		return nil
	}
	u := &Usage{
		PromptTokens:     int(metrics.Get(`#(metric=="num_prompt_tokens").value`).Int()),
		CompletionTokens: int(metrics.Get(`#(metric=="num_completion_tokens").value`).Int()),
		TotalTokens:      int(metrics.Get(`#(metric=="num_total_tokens").value`).Int()),
	}
	if *u == (Usage{}) {
		return nil
	}
	return u.Normalize()
}

func openAIStyleUsage(r gjson.Result) *Usage {
	u := &Usage{
		PromptTokens:     int(r.Get("prompt_tokens").Int()),
		CompletionTokens: int(r.Get("completion_tokens").Int()),
		TotalTokens:      int(r.Get("total_tokens").Int()),
	}
	return u.Normalize()
}
