package adapter

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

const mistralBaseURL = "https://api.mistral.ai/v1"

// MistralAdapter implements the Adapter interface for Mistral models.
// Reasoning models (magistral-*) may answer with a list of content chunks
// or wrap their reasoning in <think> tags; only the answer text is kept.
type MistralAdapter struct {
	opts    Options
	baseURL string
}

type mistralRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// NewMistralAdapter creates a new Mistral adapter.
func NewMistralAdapter(opts Options) *MistralAdapter {
	opts = opts.withDefaults()
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = mistralBaseURL
	}
	return &MistralAdapter{opts: opts, baseURL: strings.TrimRight(baseURL, "/")}
}

// Provider returns the adapter identifier.
func (a *MistralAdapter) Provider() Provider {
	return ProviderMistral
}

// Generate sends the request to the Mistral chat completions endpoint.
func (a *MistralAdapter) Generate(ctx context.Context, req Request, apiKey string) (*Response, error) {
	ctx, cancel := withTimeout(ctx, a.opts.Timeout)
	defer cancel()

	body := mistralRequest{
		Model:       req.Model,
		Messages:    chatMessages(req),
		MaxTokens:   a.opts.maxTokens(req),
		Temperature: a.opts.temperature(req),
	}

	data, err := postJSON(ctx, a.opts.HTTPClient, ProviderMistral, a.baseURL+"/chat/completions", bearer(apiKey), body)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("mistral returned invalid JSON")
	}

	resp := &Response{Content: mistralContent(gjson.GetBytes(data, "choices.0.message.content"))}
	if usage := gjson.GetBytes(data, "usage"); usage.IsObject() {
		resp.Usage = openAIStyleUsage(usage)
	}
	return resp, nil
}

func mistralContent(content gjson.Result) string {
	if content.IsArray() {
		var sb strings.Builder
		for _, chunk := range content.Array() {
			if chunk.Get("type").String() != "text" {
				continue
			}
			sb.WriteString(chunk.Get("text").String())
		}
		return strings.TrimSpace(sb.String())
	}

	text := content.String()
	if strings.Contains(text, "</think>") {
		text = thinkBlock.ReplaceAllString(text, "")
	}
	return strings.TrimSpace(text)
}
