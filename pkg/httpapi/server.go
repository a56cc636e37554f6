// Package httpapi exposes question generation over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zen-systems/questforge/pkg/adapter"
	"github.com/zen-systems/questforge/pkg/config"
	"github.com/zen-systems/questforge/pkg/generator"
)

const maxBodyBytes = 1 << 20

// KeyChecker reports which providers have credentials.
type KeyChecker interface {
	HasProvider(p adapter.Provider) bool
}

// Server holds the handlers' dependencies.
type Server struct {
	gen     *generator.Service
	catalog *config.Catalog
	keys    KeyChecker
	logger  *slog.Logger
	now     func() time.Time
}

// NewServer creates a Server. A nil logger means slog.Default.
func NewServer(gen *generator.Service, catalog *config.Catalog, keys KeyChecker, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{gen: gen, catalog: catalog, keys: keys, logger: logger, now: time.Now}
}

// Routes builds the router.
func (s *Server) Routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/questions", s.createQuestion) // POST /v1/questions
		r.Post("/generate", s.generate)        // POST /v1/generate
		r.Get("/models", s.listModels)         // GET /v1/models
	})
	return r
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Reason  string `json:"reason,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, reason string) {
	writeJSON(w, status, errorResponse{Success: false, Error: msg, Reason: reason})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// checkModels rejects model names the catalog lists as disabled or does
// not know at all. Without a catalog every name is accepted.
func (s *Server) checkModels(models ...string) error {
	if s.catalog == nil {
		return nil
	}
	for _, name := range models {
		if name == "" {
			continue
		}
		m, ok := s.catalog.Lookup(s.catalog.Resolve(name))
		if !ok {
			return fmt.Errorf("unknown model %q", name)
		}
		if !m.Available {
			return fmt.Errorf("model %q is not available", name)
		}
	}
	return nil
}

// writeGenerationError maps a failed chain onto an HTTP status.
func (s *Server) writeGenerationError(w http.ResponseWriter, r *http.Request, err error) {
	var chainErr *generator.ChainError
	if !errors.As(err, &chainErr) {
		s.logger.Error("generation request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}

	status := http.StatusBadGateway
	switch chainErr.Reason() {
	case generator.ReasonNoProviderConfigured:
		status = http.StatusServiceUnavailable
	case generator.ReasonAllRateLimited:
		status = http.StatusTooManyRequests
	}
	s.logger.Warn("generation request failed",
		"path", r.URL.Path,
		"status", status,
		"reason", chainErr.Reason(),
		"candidates_tried", len(chainErr.Attempts),
	)
	writeError(w, status, chainErr.Error(), string(chainErr.Reason()))
}
