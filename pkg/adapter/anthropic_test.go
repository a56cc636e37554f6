package adapter

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tidwall/gjson"
)

func TestAnthropicGenerate(t *testing.T) {
	var body []byte
	var key string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		key = r.Header.Get("X-Api-Key")
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-5-haiku-latest",
			"content": [{"type": "text", "text": "claude "}, {"type": "text", "text": "answers"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 9, "output_tokens": 11}
		}`) //nolint:errcheck
	}))
	defer srv.Close()

	resp, err := NewAnthropicAdapter(Options{BaseURL: srv.URL}).Generate(context.Background(), Request{
		Model:        "claude-3-5-haiku-latest",
		Prompt:       "hello",
		SystemPrompt: "be terse",
	}, "anthropic-key")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if resp.Content != "claude answers" {
		t.Fatalf("unexpected content %q", resp.Content)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 20 {
		t.Fatalf("unexpected usage %+v", resp.Usage)
	}
	if key != "anthropic-key" {
		t.Fatalf("unexpected api key header %q", key)
	}
	if got := gjson.GetBytes(body, "system.0.text").String(); got != "be terse" {
		t.Fatalf("unexpected system prompt %q (%s)", got, body)
	}
}

func TestAnthropicServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(529)
		io.WriteString(w, `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`) //nolint:errcheck
	}))
	defer srv.Close()

	_, err := NewAnthropicAdapter(Options{BaseURL: srv.URL}).Generate(context.Background(), Request{Model: "claude-3-5-haiku-latest", Prompt: "hello"}, "k")
	if KindOf(err) != KindServerError || !IsRetryable(err) {
		t.Fatalf("expected retryable server error, got %v", err)
	}
}
