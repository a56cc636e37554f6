// Package retry runs an operation with bounded exponential backoff and
// jitter. All retry bookkeeping lives in the State returned by Do; nothing
// is shared between calls.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/zen-systems/questforge/pkg/adapter"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = time.Second
	DefaultMaxDelay   = 10 * time.Second
	DefaultMaxJitter  = time.Second
)

// Policy controls how Do retries.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// BaseDelay is doubled for every retry and capped at MaxDelay.
	BaseDelay time.Duration
	MaxDelay  time.Duration

	// MaxJitter bounds the random delay added to every wait.
	MaxJitter time.Duration

	// Jitter returns a value in [0, max). Defaults to a uniform source.
	Jitter func(max time.Duration) time.Duration

	// Retryable decides whether a failure is worth another attempt.
	// Defaults to adapter.IsRetryable.
	Retryable func(error) bool

	// OnRetry is called before every wait.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// DefaultPolicy returns the standard retry policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		MaxDelay:   DefaultMaxDelay,
		MaxJitter:  DefaultMaxJitter,
	}
}

// NoJitter disables the random part of the delay.
func NoJitter(time.Duration) time.Duration { return 0 }

func uniformJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return rand.N(max)
}

// Backoff returns min(BaseDelay*2^n, MaxDelay) for the n-th retry
// (0-indexed), without jitter.
func (p Policy) Backoff(n int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	limit := p.MaxDelay
	if limit < p.BaseDelay {
		limit = p.BaseDelay
	}
	d := p.BaseDelay
	for i := 0; i < n && d < limit; i++ {
		d *= 2
	}
	if d > limit {
		d = limit
	}
	return d
}

// Delay returns the wait before the n-th retry, jitter included.
func (p Policy) Delay(n int) time.Duration {
	jitter := p.Jitter
	if jitter == nil {
		jitter = uniformJitter
	}
	d := p.Backoff(n)
	if p.MaxJitter > 0 {
		d += jitter(p.MaxJitter)
	}
	return d
}

func (p Policy) retryable(err error) bool {
	if p.Retryable != nil {
		return p.Retryable(err)
	}
	return adapter.IsRetryable(err)
}

// State describes one Do call.
type State struct {
	OperationID string
	Attempts    int
	Retries     int
	// Exhausted is set when the last attempt failed with a retryable
	// error and no retries were left.
	Exhausted bool
}

// schedule adapts a Policy to backoff.BackOff.
type schedule struct {
	policy Policy
	n      int
}

func (s *schedule) NextBackOff() time.Duration {
	if s.n >= s.policy.MaxRetries {
		return backoff.Stop
	}
	d := s.policy.Delay(s.n)
	s.n++
	return d
}

func (s *schedule) Reset() {
	s.n = 0
}

// Do runs op until it succeeds, fails with a non-retryable error, or the
// policy runs out of retries. Cancelling ctx stops any pending wait.
func Do(ctx context.Context, p Policy, op func(context.Context) error) (State, error) {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	state := State{OperationID: uuid.NewString()}

	var lastErr error
	operation := func() error {
		state.Attempts++
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if !p.retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		if p.OnRetry != nil {
			p.OnRetry(state.Attempts, err, wait)
		}
	}

	b := backoff.WithContext(&schedule{policy: p}, ctx)
	err := backoff.RetryNotify(operation, b, notify)
	state.Retries = state.Attempts - 1
	if state.Retries < 0 {
		state.Retries = 0
	}
	if err == nil {
		return state, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) && lastErr != nil && !errors.Is(lastErr, ctxErr) {
		return state, fmt.Errorf("retry aborted after %d attempts: %w: %w", state.Attempts, ctxErr, lastErr)
	}
	state.Exhausted = p.retryable(err) && state.Retries >= p.MaxRetries
	return state, err
}
