package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// postJSON sends body to url and returns the raw response body of a 2xx
// reply. Every other outcome comes back as a *ClassifiedError.
func postJSON(ctx context.Context, client *http.Client, provider Provider, url string, header http.Header, body any) ([]byte, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, Classify(Failure{Provider: provider, Err: err})
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Classify(Failure{Provider: provider, Status: statusIfError(resp.StatusCode), Err: err})
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, Classify(Failure{Provider: provider, Status: resp.StatusCode, Body: string(data)})
	}
	return data, nil
}

func statusIfError(code int) int {
	if code >= 200 && code < 300 {
		return 0
	}
	return code
}

func bearer(apiKey string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+apiKey)
	return h
}

// chatMessage is the message shape shared by the chat-completions vendors.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func chatMessages(req Request) []chatMessage {
	messages := make([]chatMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	return append(messages, chatMessage{Role: "user", Content: req.Prompt})
}
