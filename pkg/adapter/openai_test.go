package adapter

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tidwall/gjson"
)

const chatCompletionReply = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"created": 1700000000,
	"model": "gpt-4o-mini",
	"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "openai says hi"}}],
	"usage": {"prompt_tokens": 3, "completion_tokens": 4, "total_tokens": 7}
}`

func chatServer(t *testing.T, status int, body string, seen *[]byte, auth *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		if seen != nil {
			*seen = data
		}
		if auth != nil {
			*auth = r.Header.Get("Authorization")
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body) //nolint:errcheck
	}))
}

func TestOpenAIGenerate(t *testing.T) {
	var body []byte
	var auth string
	srv := chatServer(t, http.StatusOK, chatCompletionReply, &body, &auth)
	defer srv.Close()

	resp, err := NewOpenAIAdapter(Options{BaseURL: srv.URL}).Generate(context.Background(), Request{
		Model:        "gpt-4o-mini",
		Prompt:       "hello",
		SystemPrompt: "system",
	}, "openai-key")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if resp.Content != "openai says hi" {
		t.Fatalf("unexpected content %q", resp.Content)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 7 {
		t.Fatalf("unexpected usage %+v", resp.Usage)
	}
	if auth != "Bearer openai-key" {
		t.Fatalf("unexpected auth header %q", auth)
	}
	if got := gjson.GetBytes(body, "max_completion_tokens").Int(); got != DefaultMaxTokens {
		t.Fatalf("expected max_completion_tokens=%d, got %d (%s)", DefaultMaxTokens, got, body)
	}
	if gjson.GetBytes(body, "messages.#").Int() != 2 {
		t.Fatalf("expected system and user messages: %s", body)
	}
}

func TestDeepSeekUsesMaxTokens(t *testing.T) {
	var body []byte
	srv := chatServer(t, http.StatusOK, chatCompletionReply, &body, nil)
	defer srv.Close()

	_, err := NewDeepSeekAdapter(Options{BaseURL: srv.URL}).Generate(context.Background(), Request{Model: "deepseek-chat", Prompt: "hello", MaxTokens: 128}, "k")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got := gjson.GetBytes(body, "max_tokens").Int(); got != 128 {
		t.Fatalf("expected max_tokens=128, got %d (%s)", got, body)
	}
	if gjson.GetBytes(body, "max_completion_tokens").Exists() {
		t.Fatalf("deepseek must not send max_completion_tokens: %s", body)
	}
}

func TestOpenAIRateLimitIsClassified(t *testing.T) {
	srv := chatServer(t, http.StatusTooManyRequests, `{"error":{"message":"Rate limit reached","type":"requests","code":"rate_limit_exceeded"}}`, nil, nil)
	defer srv.Close()

	_, err := NewOpenAIAdapter(Options{BaseURL: srv.URL}).Generate(context.Background(), Request{Model: "gpt-4o-mini", Prompt: "hello"}, "k")
	var ce *ClassifiedError
	if !errors.As(err, &ce) {
		t.Fatalf("expected classified error, got %v", err)
	}
	if ce.Kind != KindRateLimited || ce.HTTPStatus != 429 || ce.Provider != ProviderOpenAI {
		t.Fatalf("unexpected classification %+v", ce)
	}
}

func TestDeepSeekQuotaIsClassified(t *testing.T) {
	srv := chatServer(t, http.StatusPaymentRequired, `{"error":{"message":"Insufficient Balance"}}`, nil, nil)
	defer srv.Close()

	_, err := NewDeepSeekAdapter(Options{BaseURL: srv.URL}).Generate(context.Background(), Request{Model: "deepseek-chat", Prompt: "hello"}, "k")
	if KindOf(err) != KindQuotaExceeded {
		t.Fatalf("expected quota exceeded, got %v", err)
	}
	if IsRetryable(err) {
		t.Fatalf("quota errors are not retryable")
	}
}
