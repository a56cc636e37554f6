package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestClassifyStatusPriority(t *testing.T) {
	tests := []struct {
		name      string
		failure   Failure
		kind      ErrorKind
		retryable bool
	}{
		{"unauthorized", Failure{Status: 401, Body: "bad key"}, KindUnauthorized, false},
		{"rate limited", Failure{Status: 429}, KindRateLimited, true},
		{"quota", Failure{Status: 402}, KindQuotaExceeded, false},
		{"server error", Failure{Status: 500}, KindServerError, true},
		{"bad gateway", Failure{Status: 502}, KindServerError, true},
		{"status wins over timeout", Failure{Status: 429, Err: context.DeadlineExceeded}, KindRateLimited, true},
		{"other client error", Failure{Status: 400, Body: "bad request"}, KindUnknown, false},
		{"deadline", Failure{Err: context.DeadlineExceeded}, KindTimeout, true},
		{"wrapped deadline", Failure{Err: fmt.Errorf("post: %w", context.DeadlineExceeded)}, KindTimeout, true},
		{"transport", Failure{Err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}}, KindServerError, true},
		{"short body", Failure{Err: io.ErrUnexpectedEOF}, KindServerError, true},
		{"canceled", Failure{Err: context.Canceled}, KindUnknown, false},
		{"plain error", Failure{Err: errors.New("boom")}, KindUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce := Classify(tt.failure)
			if ce.Kind != tt.kind {
				t.Fatalf("kind: got %s want %s", ce.Kind, tt.kind)
			}
			if ce.Retryable != tt.retryable {
				t.Fatalf("retryable: got %v want %v", ce.Retryable, tt.retryable)
			}
			if ce.Message == "" {
				t.Fatalf("expected a message")
			}
		})
	}
}

func TestClassifyKeepsHTTPStatusAndProvider(t *testing.T) {
	ce := Classify(Failure{Provider: ProviderMistral, Status: 503, Body: "overloaded"})
	if ce.HTTPStatus != 503 || ce.Provider != ProviderMistral {
		t.Fatalf("unexpected error: %+v", ce)
	}
	if !strings.Contains(ce.Error(), "mistral API error: 503 overloaded") {
		t.Fatalf("unexpected message: %q", ce.Error())
	}
}

func TestClassifyPassesThroughClassifiedErrors(t *testing.T) {
	original := &ClassifiedError{Kind: KindQuotaExceeded, Message: "quota"}
	wrapped := fmt.Errorf("call: %w", original)

	if got := Classify(Failure{Err: wrapped}); got != original {
		t.Fatalf("expected the original error back, got %+v", got)
	}
}

// An empty failure carries no information about what went wrong. It is
// surfaced as a non-retryable Unknown error instead of being dropped.
func TestClassifyEmptyFailureIsSurfaced(t *testing.T) {
	ce := Classify(Failure{})
	if ce == nil {
		t.Fatalf("empty failure must not be swallowed")
	}
	if ce.Kind != KindUnknown || ce.Retryable {
		t.Fatalf("unexpected classification: %+v", ce)
	}
	if !strings.Contains(ce.Error(), "empty failure") {
		t.Fatalf("unexpected message: %q", ce.Error())
	}
}

func TestClassifyTruncatesLongBodies(t *testing.T) {
	ce := Classify(Failure{Status: 500, Body: strings.Repeat("x", 4*maxBodySnippet)})
	if len(ce.Message) > maxBodySnippet+64 {
		t.Fatalf("message not truncated: %d bytes", len(ce.Message))
	}
}

func TestClassifyTruncatesOnRuneBoundary(t *testing.T) {
	body := "x" + strings.Repeat("é", maxBodySnippet)
	ce := Classify(Failure{Status: 502, Body: body})
	if !utf8.ValidString(ce.Message) {
		t.Fatalf("truncated message is not valid UTF-8: %q", ce.Message[len(ce.Message)-8:])
	}
	if !strings.HasSuffix(ce.Message, "é") {
		t.Fatalf("message should end on a whole rune: %q", ce.Message[len(ce.Message)-8:])
	}
}

func TestMissingKeyError(t *testing.T) {
	err := NewMissingKeyError(ProviderLlama)
	if !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("expected ErrNoAPIKey")
	}
	if IsRetryable(err) {
		t.Fatalf("missing key must not be retryable")
	}
	if KindOf(err) != KindUnauthorized {
		t.Fatalf("unexpected kind %s", KindOf(err))
	}
}

func TestIsRetryableUnclassified(t *testing.T) {
	if !IsRetryable(context.DeadlineExceeded) {
		t.Fatalf("deadline should be retryable")
	}
	if IsRetryable(errors.New("nope")) {
		t.Fatalf("plain errors are not retryable")
	}
	if IsRetryable(nil) {
		t.Fatalf("nil is not retryable")
	}
}
