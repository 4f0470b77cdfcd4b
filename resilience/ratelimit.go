package resilience

import (
	"context"
	"sync"
	"time"
)

// ProviderLimits configures a RateLimiter. A zero value for any field means
// that dimension is unlimited.
type ProviderLimits struct {
	RPM             int
	TPM             int
	MaxConcurrent   int
	CooldownOnRetry time.Duration
}

// RateLimiter enforces a requests-per-minute token bucket, a
// tokens-per-minute token bucket, and a concurrency cap, for a single
// upstream provider.
type RateLimiter struct {
	limits ProviderLimits

	mu sync.Mutex

	rpmTokens    float64
	rpmLastFill  time.Time
	tpmTokens    float64
	tpmLastFill  time.Time
	concurrent   int
}

// NewRateLimiter creates a limiter, with both token buckets starting full.
func NewRateLimiter(limits ProviderLimits) *RateLimiter {
	now := time.Now()
	rl := &RateLimiter{
		limits:      limits,
		rpmLastFill: now,
		tpmLastFill: now,
	}
	if limits.RPM > 0 {
		rl.rpmTokens = float64(limits.RPM)
	}
	if limits.TPM > 0 {
		rl.tpmTokens = float64(limits.TPM)
	}
	return rl
}

func (rl *RateLimiter) refillLocked(now time.Time) {
	if rl.limits.RPM > 0 {
		elapsed := now.Sub(rl.rpmLastFill).Seconds()
		rl.rpmTokens += elapsed * (float64(rl.limits.RPM) / 60.0)
		if rl.rpmTokens > float64(rl.limits.RPM) {
			rl.rpmTokens = float64(rl.limits.RPM)
		}
		rl.rpmLastFill = now
	}
	if rl.limits.TPM > 0 {
		elapsed := now.Sub(rl.tpmLastFill).Seconds()
		rl.tpmTokens += elapsed * (float64(rl.limits.TPM) / 60.0)
		if rl.tpmTokens > float64(rl.limits.TPM) {
			rl.tpmTokens = float64(rl.limits.TPM)
		}
		rl.tpmLastFill = now
	}
}

// Allow blocks until an RPM token and a concurrency slot are both available,
// or ctx is done. Every successful Allow must be paired with a Release.
func (rl *RateLimiter) Allow(ctx context.Context) error {
	for {
		rl.mu.Lock()
		rl.refillLocked(time.Now())

		rpmOK := rl.limits.RPM <= 0 || rl.rpmTokens >= 1.0
		concOK := rl.limits.MaxConcurrent <= 0 || rl.concurrent < rl.limits.MaxConcurrent

		if rpmOK && concOK {
			if rl.limits.RPM > 0 {
				rl.rpmTokens -= 1.0
			}
			rl.concurrent++
			rl.mu.Unlock()
			return nil
		}
		rl.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
}

// Release frees a concurrency slot acquired by Allow. It never drives the
// counter below zero.
func (rl *RateLimiter) Release() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.concurrent > 0 {
		rl.concurrent--
	}
}

// Wait blocks for the configured cooldown, used after a retryable failure
// before the next attempt against the same provider.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl.limits.CooldownOnRetry <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(rl.limits.CooldownOnRetry):
		return nil
	}
}

// ConsumeTokens blocks until count tokens are available in the TPM budget,
// or ctx is done. A zero TPM limit means unlimited.
func (rl *RateLimiter) ConsumeTokens(ctx context.Context, count int) error {
	if count <= 0 {
		return nil
	}
	for {
		rl.mu.Lock()
		rl.refillLocked(time.Now())

		if rl.limits.TPM <= 0 || rl.tpmTokens >= float64(count) {
			if rl.limits.TPM > 0 {
				rl.tpmTokens -= float64(count)
			}
			rl.mu.Unlock()
			return nil
		}
		rl.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
}
