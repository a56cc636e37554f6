package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/zen-systems/questforge/pkg/adapter"
	"github.com/zen-systems/questforge/pkg/config"
	"github.com/zen-systems/questforge/pkg/generator"
	"github.com/zen-systems/questforge/pkg/prompt"
	"github.com/zen-systems/questforge/pkg/schema"
)

// QuestionRequest is the body of POST /v1/questions.
type QuestionRequest struct {
	Content           prompt.Content `json:"content"`
	Instructions      string         `json:"instructions"`
	AdditionalContext string         `json:"additionalContext"`
	Model             string         `json:"model"`
	FallbackModels    []string       `json:"fallbackModels"`
}

// QuestionMetadata describes how a question was produced.
type QuestionMetadata struct {
	GeneratedAt      string               `json:"generatedAt"`
	GenerationTimeMs int64                `json:"generationTimeMs"`
	Model            string               `json:"model"`
	Provider         adapter.Provider     `json:"provider"`
	TokenUsage       *adapter.Usage       `json:"tokenUsage,omitempty"`
	Cost             adapter.Cost         `json:"cost"`
	Attempts         []adapter.CallReport `json:"attempts"`
}

// QuestionResponse is the success body of POST /v1/questions.
type QuestionResponse struct {
	Success  bool             `json:"success"`
	Question schema.Question  `json:"question"`
	Metadata QuestionMetadata `json:"metadata"`
}

func (s *Server) createQuestion(w http.ResponseWriter, r *http.Request) {
	var req QuestionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	if strings.TrimSpace(req.Content.Text) == "" && strings.TrimSpace(req.Content.Topic) == "" {
		writeError(w, http.StatusBadRequest, "content.text or content.topic is required", "")
		return
	}
	if err := s.checkModels(append([]string{req.Model}, req.FallbackModels...)...); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	genReq := adapter.Request{
		Model:        req.Model,
		Prompt:       prompt.Question(req.Content, req.Instructions, req.AdditionalContext),
		SystemPrompt: prompt.SystemPrompt,
	}
	res, err := s.gen.GenerateQuestion(r.Context(), genReq, req.FallbackModels)
	if err != nil {
		s.writeGenerationError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, QuestionResponse{
		Success:  true,
		Question: res.Parsed,
		Metadata: QuestionMetadata{
			GeneratedAt:      s.now().UTC().Format(time.RFC3339),
			GenerationTimeMs: res.ResponseTimeMs,
			Model:            res.Model,
			Provider:         res.Provider,
			TokenUsage:       res.Usage,
			Cost:             generator.TotalCost(res.Attempts),
			Attempts:         res.Attempts,
		},
	})
}

// GenerateRequest is the body of POST /v1/generate.
type GenerateRequest struct {
	Model          string   `json:"model"`
	Prompt         string   `json:"prompt"`
	SystemPrompt   string   `json:"systemPrompt"`
	Temperature    *float64 `json:"temperature"`
	MaxTokens      int      `json:"maxTokens"`
	FallbackModels []string `json:"fallbackModels"`
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "prompt is required", "")
		return
	}
	if req.MaxTokens < 0 {
		writeError(w, http.StatusBadRequest, "maxTokens must not be negative", "")
		return
	}
	if err := s.checkModels(append([]string{req.Model}, req.FallbackModels...)...); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	res, err := s.gen.GenerateWithFallback(r.Context(), adapter.Request{
		Model:        req.Model,
		Prompt:       req.Prompt,
		SystemPrompt: req.SystemPrompt,
		Temperature:  req.Temperature,
		MaxTokens:    req.MaxTokens,
	}, req.FallbackModels)
	if err != nil {
		s.writeGenerationError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ModelInfo is one entry of GET /v1/models.
type ModelInfo struct {
	config.Model
	HasKey bool `json:"hasKey"`
}

// ModelsResponse is the body of GET /v1/models.
type ModelsResponse struct {
	DefaultModel string            `json:"defaultModel"`
	Models       []ModelInfo       `json:"models"`
	Aliases      map[string]string `json:"aliases,omitempty"`
}

func (s *Server) listModels(w http.ResponseWriter, r *http.Request) {
	resp := ModelsResponse{DefaultModel: s.gen.DefaultModel(), Models: []ModelInfo{}}
	if s.catalog != nil {
		resp.Aliases = s.catalog.Aliases
		for _, m := range s.catalog.Models {
			resp.Models = append(resp.Models, ModelInfo{
				Model:  m,
				HasKey: s.keys != nil && s.keys.HasProvider(m.Provider),
			})
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
