package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLlamaNativeEnvelope(t *testing.T) {
	var got llamaRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" || r.Method != http.MethodPost {
			http.Error(w, "unexpected path", http.StatusNotFound)
			return
		}
		if r.Header.Get("Authorization") != "Bearer llama-key" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got) //nolint:errcheck
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "resp-1",
			"completion_message": {"role": "assistant", "content": {"type": "text", "text": "hello from llama"}},
			"metrics": [
				{"metric": "num_completion_tokens", "value": 7, "unit": "tokens"},
				{"metric": "num_prompt_tokens", "value": 5, "unit": "tokens"},
				{"metric": "num_total_tokens", "value": 12, "unit": "tokens"}
			]
		}`) //nolint:errcheck
	}))
	defer srv.Close()

	a := NewLlamaAdapter(Options{BaseURL: srv.URL})
	temp := 0.2
	resp, err := a.Generate(context.Background(), Request{
		Model:        "Llama-3.3-70B-Instruct",
		Prompt:       "hi",
		SystemPrompt: "be brief",
		Temperature:  &temp,
	}, "llama-key")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if resp.Content != "hello from llama" {
		t.Fatalf("unexpected content %q", resp.Content)
	}
	if diff := cmp.Diff(&Usage{PromptTokens: 5, CompletionTokens: 7, TotalTokens: 12}, resp.Usage); diff != "" {
		t.Fatalf("usage mismatch (-want +got):\n%s", diff)
	}

	want := llamaRequest{
		Model: "Llama-3.3-70B-Instruct",
		Messages: []chatMessage{
			{Role: "system", Content: "be brief"},
			{Role: "user", Content: "hi"},
		},
		MaxCompletionTokens: DefaultMaxTokens,
		Temperature:         0.2,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("request mismatch (-want +got):\n%s", diff)
	}
}

func TestLlamaOpenAICompatibleEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"compat"}}],"token_usage":{"prompt_tokens":2,"completion_tokens":3}}`) //nolint:errcheck
	}))
	defer srv.Close()

	resp, err := NewLlamaAdapter(Options{BaseURL: srv.URL}).Generate(context.Background(), Request{Model: "llama-x", Prompt: "p"}, "k")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if resp.Content != "compat" {
		t.Fatalf("unexpected content %q", resp.Content)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 5 {
		t.Fatalf("expected normalized usage, got %+v", resp.Usage)
	}
}

func TestLlamaNon2xxIsClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"slow down"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewLlamaAdapter(Options{BaseURL: srv.URL}).Generate(context.Background(), Request{Model: "llama-x", Prompt: "p"}, "k")
	var ce *ClassifiedError
	if !errors.As(err, &ce) {
		t.Fatalf("expected classified error, got %v", err)
	}
	if ce.Kind != KindRateLimited || !ce.Retryable || ce.HTTPStatus != 429 || ce.Provider != ProviderLlama {
		t.Fatalf("unexpected classification: %+v", ce)
	}
}

func TestLlamaTimeoutIsClassified(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	a := NewLlamaAdapter(Options{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	_, err := a.Generate(context.Background(), Request{Model: "llama-x", Prompt: "p"}, "k")
	if KindOf(err) != KindTimeout {
		t.Fatalf("expected timeout, got %v (%s)", err, KindOf(err))
	}
	if !IsRetryable(err) {
		t.Fatalf("timeouts are retryable")
	}
}
