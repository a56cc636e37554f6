package adapter

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tidwall/gjson"
)

func mistralServer(t *testing.T, status int, body string, seen *mistralRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			data, _ := io.ReadAll(r.Body)
			json.Unmarshal(data, seen) //nolint:errcheck
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body) //nolint:errcheck
	}))
}

func TestMistralStringContent(t *testing.T) {
	var seen mistralRequest
	srv := mistralServer(t, http.StatusOK, `{"choices":[{"message":{"content":"plain answer"}}],"usage":{"prompt_tokens":4,"completion_tokens":6,"total_tokens":10}}`, &seen)
	defer srv.Close()

	resp, err := NewMistralAdapter(Options{BaseURL: srv.URL}).Generate(context.Background(), Request{Model: "mistral-small-latest", Prompt: "q", MaxTokens: 256}, "k")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if resp.Content != "plain answer" {
		t.Fatalf("unexpected content %q", resp.Content)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 10 {
		t.Fatalf("unexpected usage %+v", resp.Usage)
	}
	if seen.MaxTokens != 256 || seen.Model != "mistral-small-latest" {
		t.Fatalf("unexpected request %+v", seen)
	}
}

func TestMistralStripsThinkBlocks(t *testing.T) {
	srv := mistralServer(t, http.StatusOK, `{"choices":[{"message":{"content":"<think>\nlet me see\n</think>{\"a\":1}"}}]}`, nil)
	defer srv.Close()

	resp, err := NewMistralAdapter(Options{BaseURL: srv.URL}).Generate(context.Background(), Request{Model: "magistral-medium-latest", Prompt: "q"}, "k")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if resp.Content != `{"a":1}` {
		t.Fatalf("unexpected content %q", resp.Content)
	}
	if resp.Usage != nil {
		t.Fatalf("expected no usage, got %+v", resp.Usage)
	}
}

func TestMistralContentChunks(t *testing.T) {
	content := gjson.Parse(`[
		{"type": "thinking", "thinking": [{"type": "text", "text": "hidden"}]},
		{"type": "text", "text": "visible "},
		{"type": "text", "text": "answer"}
	]`)
	if got := mistralContent(content); got != "visible answer" {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestMistralUnauthorized(t *testing.T) {
	srv := mistralServer(t, http.StatusUnauthorized, `{"message":"Unauthorized"}`, nil)
	defer srv.Close()

	_, err := NewMistralAdapter(Options{BaseURL: srv.URL}).Generate(context.Background(), Request{Model: "mistral-small-latest", Prompt: "q"}, "bad")
	if KindOf(err) != KindUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if IsRetryable(err) {
		t.Fatalf("unauthorized must not be retryable")
	}
}
