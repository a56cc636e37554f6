package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"syscall"
	"unicode/utf8"
)

// ErrorKind is the closed taxonomy of provider failures.
type ErrorKind string

const (
	KindUnauthorized  ErrorKind = "unauthorized"
	KindRateLimited   ErrorKind = "rate_limit"
	KindQuotaExceeded ErrorKind = "quota_exceeded"
	KindTimeout       ErrorKind = "timeout"
	KindServerError   ErrorKind = "server_error"
	KindUnknown       ErrorKind = "unknown"
)

// ErrNoAPIKey reports that no credential is configured for a provider.
var ErrNoAPIKey = errors.New("no API key configured")

// ClassifiedError is a provider failure mapped onto ErrorKind.
type ClassifiedError struct {
	Message    string
	Kind       ErrorKind
	HTTPStatus int
	Retryable  bool
	Provider   Provider
	Err        error
}

func (e *ClassifiedError) Error() string {
	if e == nil {
		return "provider error"
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("provider error (kind=%s status=%d)", e.Kind, e.HTTPStatus)
}

func (e *ClassifiedError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Failure is an unclassified provider failure. Any combination of fields
// may be set; a zero Failure is treated as an empty failure.
type Failure struct {
	Provider Provider
	Status   int
	Body     string
	Err      error
}

const maxBodySnippet = 512

// Classify maps a failure onto the error taxonomy. Errors that are already
// classified are returned unchanged.
func Classify(f Failure) *ClassifiedError {
	var classified *ClassifiedError
	if f.Err != nil && errors.As(f.Err, &classified) {
		return classified
	}

	ce := &ClassifiedError{
		Provider:   f.Provider,
		HTTPStatus: f.Status,
		Err:        f.Err,
	}

	switch {
	case f.Status == 401:
		ce.Kind = KindUnauthorized
	case f.Status == 429:
		ce.Kind, ce.Retryable = KindRateLimited, true
	case f.Status == 402:
		ce.Kind = KindQuotaExceeded
	case f.Status >= 500:
		ce.Kind, ce.Retryable = KindServerError, true
	case isTimeout(f.Err):
		ce.Kind, ce.Retryable = KindTimeout, true
	case isTransport(f.Err):
		ce.Kind, ce.Retryable = KindServerError, true
	default:
		ce.Kind = KindUnknown
	}

	ce.Message = failureMessage(f, ce.Kind)
	return ce
}

// NewMissingKeyError returns the terminal configuration error for p.
func NewMissingKeyError(p Provider) *ClassifiedError {
	return &ClassifiedError{
		Message:  fmt.Sprintf("no API key found for provider %s", p),
		Kind:     KindUnauthorized,
		Provider: p,
		Err:      ErrNoAPIKey,
	}
}

// IsRetryable reports whether an error is worth retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified.Retryable
	}
	return Classify(Failure{Err: err}).Retryable
}

// KindOf returns the classified kind of err, or KindUnknown.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified.Kind
	}
	return KindUnknown
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isTransport(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED)
}

func failureMessage(f Failure, kind ErrorKind) string {
	name := string(f.Provider)
	if name == "" {
		name = "provider"
	}
	body := strings.TrimSpace(f.Body)
	if len(body) > maxBodySnippet {
		cut := maxBodySnippet
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut]
	}

	switch {
	case f.Status != 0 && body != "":
		return fmt.Sprintf("%s API error: %d %s", name, f.Status, body)
	case f.Status != 0 && f.Err != nil:
		return fmt.Sprintf("%s API error: %d %v", name, f.Status, f.Err)
	case f.Status != 0:
		return fmt.Sprintf("%s API error: %d", name, f.Status)
	case kind == KindTimeout:
		return fmt.Sprintf("%s request timeout: %v", name, f.Err)
	case f.Err != nil:
		return fmt.Sprintf("%s request failed: %v", name, f.Err)
	case body != "":
		return fmt.Sprintf("%s API error: %s", name, body)
	default:
		return fmt.Sprintf("%s: empty failure from provider", name)
	}
}
