package providers

import (
	"context"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
)

// retryPolicy controls how a client retries failed calls.
type retryPolicy struct {
	attempts uint
	delay    time.Duration
	limiter  *RateLimiter
	logger   *slog.Logger
}

// do runs fn until it succeeds, returns a final error, or attempts run out.
// A rate limit honors the provider's Retry-After and drains the limiter.
// It returns the number of attempts made.
func (p retryPolicy) do(ctx context.Context, provider string, fn func() error) (int, error) {
	attempts := 0
	err := retry.Do(
		func() error {
			if p.limiter != nil {
				if err := p.limiter.Wait(ctx); err != nil {
					return retry.Unrecoverable(err)
				}
			}
			attempts++
			err := fn()
			if rle, ok := IsRateLimitError(err); ok && p.limiter != nil {
				p.limiter.Record429(rle.RetryAfter)
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(max(p.attempts, 1)),
		retry.Delay(p.delay),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			if rle, ok := IsRateLimitError(err); ok && rle.RetryAfter > 0 {
				return rle.RetryAfter
			}
			return retry.BackOffDelay(n, err, config)
		}),
		retry.RetryIf(retryable),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			if p.logger != nil {
				p.logger.Warn("provider call failed, retrying", "provider", provider, "attempt", n+1, "error", err)
			}
		}),
	)
	return attempts, err
}
