// Package generator dispatches generation requests to providers, retries
// transient failures and walks an ordered fallback chain of models.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/zen-systems/questforge/pkg/adapter"
	"github.com/zen-systems/questforge/pkg/config"
	"github.com/zen-systems/questforge/pkg/retry"
)

// KeySource supplies provider credentials. *config.Config implements it.
type KeySource interface {
	APIKey(p adapter.Provider) string
}

// ErrNoAdapter reports that no adapter is registered for a provider.
var ErrNoAdapter = errors.New("no adapter registered for provider")

// Options configures a Service.
type Options struct {
	Adapters adapter.Registry
	Keys     KeySource

	// Catalog resolves aliases, providers, pricing and the TPM fallback
	// order. Nil means name-prefix provider rules and no pricing.
	Catalog *config.Catalog

	// Retry defaults to retry.DefaultPolicy.
	Retry *retry.Policy

	// DefaultModel is used when a request names no model.
	DefaultModel string

	Logger *slog.Logger
}

// Service is the generation entry point. It holds no per-call state and is
// safe for concurrent use.
type Service struct {
	adapters     adapter.Registry
	keys         KeySource
	catalog      *config.Catalog
	retry        retry.Policy
	defaultModel string
	logger       *slog.Logger
}

// Result is the outcome of a successful generation.
type Result struct {
	Content        string               `json:"content"`
	Usage          *adapter.Usage       `json:"tokenUsage,omitempty"`
	ResponseTimeMs int64                `json:"responseTimeMs"`
	Model          string               `json:"model"`
	Provider       adapter.Provider     `json:"provider"`
	Attempts       []adapter.CallReport `json:"attempts"`
}

// New creates a Service.
func New(opts Options) (*Service, error) {
	if len(opts.Adapters) == 0 {
		return nil, fmt.Errorf("generator: no adapters configured")
	}
	if opts.Keys == nil {
		return nil, fmt.Errorf("generator: no key source configured")
	}

	policy := retry.DefaultPolicy()
	if opts.Retry != nil {
		policy = *opts.Retry
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	defaultModel := opts.DefaultModel
	if defaultModel == "" {
		defaultModel = config.DefaultModel
	}

	return &Service{
		adapters:     opts.Adapters,
		keys:         opts.Keys,
		catalog:      opts.Catalog,
		retry:        policy,
		defaultModel: defaultModel,
		logger:       logger,
	}, nil
}

// Generate calls the requested model with retries and no fallback.
func (s *Service) Generate(ctx context.Context, req adapter.Request) (*Result, error) {
	return s.run(ctx, req, nil, nil)
}

// GenerateWithFallback tries req.Model, then each fallback model in order.
func (s *Service) GenerateWithFallback(ctx context.Context, req adapter.Request, fallbacks []string) (*Result, error) {
	return s.run(ctx, req, fallbacks, nil)
}

// GenerateWithCatalogFallback falls back along the catalog's TPM-ordered
// model list, skipping the requested model.
func (s *Service) GenerateWithCatalogFallback(ctx context.Context, req adapter.Request) (*Result, error) {
	return s.run(ctx, req, s.CatalogFallbacks(s.model(req)), nil)
}

// CatalogFallbacks returns the TPM-ordered fallback list without primary.
func (s *Service) CatalogFallbacks(primary string) []string {
	primary = s.catalog.Resolve(primary)
	var out []string
	for _, m := range s.catalog.FallbackOrder() {
		if m != primary {
			out = append(out, m)
		}
	}
	return out
}

// DefaultModel is the model used when a request names none.
func (s *Service) DefaultModel() string {
	return s.defaultModel
}

// ProviderFor resolves the provider serving model.
func (s *Service) ProviderFor(model string) adapter.Provider {
	return s.catalog.ProviderFor(model)
}

func (s *Service) model(req adapter.Request) string {
	if req.Model == "" {
		return s.defaultModel
	}
	return req.Model
}

// acceptFunc inspects a successful response. A non-nil error rejects the
// output and moves on to the next candidate without retrying.
type acceptFunc func(content string) error

func (s *Service) run(ctx context.Context, req adapter.Request, fallbacks []string, accept acceptFunc) (*Result, error) {
	start := time.Now()
	candidates := append([]string{s.model(req)}, fallbacks...)

	var reports []adapter.CallReport
	var errs []error

	for idx, requested := range candidates {
		if requested == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		model := s.catalog.Resolve(requested)
		res, report, err := s.tryCandidate(ctx, req, model, idx > 0, accept)
		reports = append(reports, report)
		if err == nil {
			res.ResponseTimeMs = time.Since(start).Milliseconds()
			res.Attempts = reports
			s.logger.Info("generation succeeded",
				"model", res.Model,
				"provider", res.Provider,
				"candidates_tried", len(reports),
				"response_time_ms", res.ResponseTimeMs,
			)
			return res, nil
		}
		errs = append(errs, err)

		if ctx.Err() != nil {
			break
		}
		if idx < len(candidates)-1 {
			s.logger.Info("falling back to next model", "failed_model", model, "next_model", candidates[idx+1])
		}
	}

	chainErr := newChainError(reports, errs)
	s.logger.Error("generation failed", "reason", chainErr.Reason(), "candidates_tried", len(reports), "error", chainErr.Err)
	return nil, chainErr
}

func (s *Service) tryCandidate(ctx context.Context, req adapter.Request, model string, fallback bool, accept acceptFunc) (*Result, adapter.CallReport, error) {
	provider := s.ProviderFor(model)
	report := adapter.CallReport{
		Provider:     provider,
		Model:        model,
		FallbackUsed: fallback,
		Cost:         adapter.Cost{Currency: "USD"},
	}
	log := s.logger.With("model", model, "provider", provider)

	fail := func(err error) (*Result, adapter.CallReport, error) {
		report.Error = err.Error()
		if !errors.Is(err, ErrInvalidOutput) {
			report.ErrorKind = adapter.KindOf(err)
		}
		if report.ErrorKind == adapter.KindUnauthorized {
			log.Error("provider rejected credentials", "error", err)
		} else {
			log.Warn("candidate failed", "error", err, "exhausted", report.Exhausted)
		}
		return nil, report, err
	}

	a, ok := s.adapters.Get(provider)
	if !ok {
		return fail(fmt.Errorf("%w: %s", ErrNoAdapter, provider))
	}
	apiKey := s.keys.APIKey(provider)
	if apiKey == "" {
		return fail(adapter.NewMissingKeyError(provider))
	}

	callReq := req
	callReq.Model = model

	policy := s.retry
	policy.OnRetry = func(attempt int, err error, wait time.Duration) {
		log.Warn("retrying provider call", "attempt", attempt, "wait", wait, "kind", adapter.KindOf(err), "error", err)
	}

	callStart := time.Now()
	var resp *adapter.Response
	state, err := retry.Do(ctx, policy, func(ctx context.Context) error {
		r, err := a.Generate(ctx, callReq, apiKey)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	report.OperationID = state.OperationID
	report.Attempts = state.Attempts
	report.Retries = state.Retries
	report.Exhausted = state.Exhausted
	report.DurationMs = time.Since(callStart).Milliseconds()
	if err != nil {
		return fail(err)
	}

	if resp.Usage != nil {
		report.Usage = *resp.Usage.Normalize()
		if pricing, ok := s.catalog.Pricing(model); ok {
			report.Cost = estimateCost(pricing, report.Usage)
		}
	}

	if accept != nil {
		if err := accept(resp.Content); err != nil {
			return fail(fmt.Errorf("%w from %s: %w", ErrInvalidOutput, model, err))
		}
	}

	return &Result{
		Content:  resp.Content,
		Usage:    resp.Usage,
		Model:    model,
		Provider: provider,
	}, report, nil
}
