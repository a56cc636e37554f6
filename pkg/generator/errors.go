package generator

import (
	"errors"
	"fmt"

	"github.com/zen-systems/questforge/pkg/adapter"
)

// ErrInvalidOutput marks a response that could not be parsed or failed
// validation. It ends the candidate without retrying.
var ErrInvalidOutput = errors.New("invalid structured output")

// Reason summarizes why a whole chain failed.
type Reason string

const (
	ReasonNoProviderConfigured Reason = "no_provider_configured"
	ReasonAllRateLimited       Reason = "all_rate_limited"
	ReasonNoValidOutput        Reason = "no_valid_output"
	ReasonProviderFailure      Reason = "provider_failure"
)

// ChainError is returned when every candidate model failed. Err is the
// last candidate's error.
type ChainError struct {
	Attempts []adapter.CallReport
	Err      error

	reason Reason
}

func newChainError(reports []adapter.CallReport, errs []error) *ChainError {
	e := &ChainError{Attempts: reports, reason: reasonFor(errs)}
	if len(errs) > 0 {
		e.Err = errs[len(errs)-1]
	} else {
		e.Err = errors.New("no candidate model to try")
	}
	return e
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("generation failed after %d candidate(s) (%s): %v", len(e.Attempts), e.reason, e.Err)
}

func (e *ChainError) Unwrap() error {
	return e.Err
}

// Reason reports why the chain failed.
func (e *ChainError) Reason() Reason {
	if e.reason == "" {
		return ReasonProviderFailure
	}
	return e.reason
}

// Kind is the classified kind of the last error, if any.
func (e *ChainError) Kind() adapter.ErrorKind {
	return adapter.KindOf(e.Err)
}

func reasonFor(errs []error) Reason {
	var configured []error
	for _, err := range errs {
		if errors.Is(err, adapter.ErrNoAPIKey) || errors.Is(err, ErrNoAdapter) {
			continue
		}
		configured = append(configured, err)
	}
	if len(errs) > 0 && len(configured) == 0 {
		return ReasonNoProviderConfigured
	}
	if len(configured) == 0 {
		return ReasonProviderFailure
	}

	rateLimited := true
	invalidOutput := false
	for _, err := range configured {
		switch adapter.KindOf(err) {
		case adapter.KindRateLimited, adapter.KindQuotaExceeded:
		default:
			rateLimited = false
		}
		if errors.Is(err, ErrInvalidOutput) {
			invalidOutput = true
		}
	}
	switch {
	case rateLimited:
		return ReasonAllRateLimited
	case invalidOutput:
		return ReasonNoValidOutput
	default:
		return ReasonProviderFailure
	}
}
