package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"google.golang.org/genai"
)

func TestGoogleGenerate(t *testing.T) {
	var key string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key = r.Header.Get("X-Goog-Api-Key")
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"candidates": [{
				"content": {"role": "model", "parts": [
					{"text": "thinking out loud", "thought": true},
					{"text": "gemini answer"}
				]},
				"finishReason": "STOP"
			}],
			"usageMetadata": {"promptTokenCount": 6, "candidatesTokenCount": 8, "totalTokenCount": 14}
		}`) //nolint:errcheck
	}))
	defer srv.Close()

	resp, err := NewGoogleAdapter(Options{BaseURL: srv.URL}).Generate(context.Background(), Request{Model: "gemini-2.0-flash", Prompt: "hello"}, "gemini-key")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if resp.Content != "gemini answer" {
		t.Fatalf("unexpected content %q", resp.Content)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 14 {
		t.Fatalf("unexpected usage %+v", resp.Usage)
	}
	if key != "gemini-key" {
		t.Fatalf("unexpected api key header %q", key)
	}
}

func TestClassifyGoogleError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind ErrorKind
	}{
		{"rate limited", genai.APIError{Code: 429, Message: "Resource has been exhausted"}, KindRateLimited},
		{"wrapped unauthorized", fmt.Errorf("generate: %w", genai.APIError{Code: 401, Message: "API key not valid"}), KindUnauthorized},
		{"unavailable", genai.APIError{Code: 503, Message: "The model is overloaded"}, KindServerError},
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"other", errors.New("boom"), KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce := classifyGoogleError(tt.err)
			if ce.Kind != tt.kind {
				t.Fatalf("kind: got %s want %s", ce.Kind, tt.kind)
			}
			if ce.Provider != ProviderGoogle {
				t.Fatalf("unexpected provider %s", ce.Provider)
			}
		})
	}
}
