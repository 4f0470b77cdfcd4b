// Package resilience provides generic retry, circuit-breaking, hedging, and
// rate-limiting primitives used to wrap every outbound call this service
// makes to an STT, translation, TTS, LLM, weather, or geocoding provider.
package resilience

import (
	"context"
	"math/rand"
	"time"

	"github.com/Hurricane0017/agri-advisor/core"
)

// RetryPolicy configures Retry's backoff schedule and which errors it
// considers worth retrying.
type RetryPolicy struct {
	MaxAttempts     int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	BackoffFactor   float64
	Jitter          bool
	RetryableErrors []core.ErrorCode
}

// DefaultRetryPolicy returns the policy used when a caller hasn't tuned one:
// three attempts, 500ms initial backoff doubling up to 30s, with jitter.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		BackoffFactor:  2.0,
		Jitter:         true,
	}
}

func (p RetryPolicy) normalize() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = 500 * time.Millisecond
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = 30 * time.Second
	}
	if p.BackoffFactor <= 0 {
		p.BackoffFactor = 2.0
	}
	return p
}

func (p RetryPolicy) retryable(err error) bool {
	if core.IsRetryable(err) {
		return true
	}
	if len(p.RetryableErrors) == 0 {
		return false
	}
	var e *core.Error
	for _, code := range p.RetryableErrors {
		if asCoreError(err, &e) && e.Code == code {
			return true
		}
	}
	return false
}

func asCoreError(err error, target **core.Error) bool {
	type unwrapper interface{ Unwrap() error }
	for err != nil {
		if e, ok := err.(*core.Error); ok {
			*target = e
			return true
		}
		u, ok := err.(unwrapper)
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Retry runs fn, retrying with exponential backoff while the policy
// considers the returned error retryable and attempts remain. It returns
// as soon as fn succeeds, the policy is exhausted, or ctx is cancelled.
func Retry[T any](ctx context.Context, policy RetryPolicy, fn func(context.Context) (T, error)) (T, error) {
	policy = policy.normalize()

	var zero T
	backoff := policy.InitialBackoff

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if attempt == policy.MaxAttempts || !policy.retryable(err) {
			return zero, err
		}

		wait := backoff
		if policy.Jitter {
			wait = time.Duration(float64(wait) * (0.5 + rand.Float64()))
		}
		if wait > policy.MaxBackoff {
			wait = policy.MaxBackoff
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(wait):
		}

		backoff = time.Duration(float64(backoff) * policy.BackoffFactor)
		if backoff > policy.MaxBackoff {
			backoff = policy.MaxBackoff
		}
	}

	return zero, nil
}
