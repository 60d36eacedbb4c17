package providers

import (
	"context"
	"sync"
	"time"
)

// DefaultRPM is used when a provider has no configured rate limit.
const DefaultRPM = 60

// RateLimiter is a token bucket refilled continuously at rpm tokens per
// minute, holding at most rpm tokens.
type RateLimiter struct {
	mu sync.Mutex

	rpm        int
	tokens     float64
	lastUpdate time.Time

	consumed  int64
	waited    time.Duration
	last429At time.Time
}

// RateLimiterStatus reports current limiter state.
type RateLimiterStatus struct {
	TokensAvailable int           `json:"tokens_available"`
	RPM             int           `json:"rpm"`
	TotalConsumed   int64         `json:"total_consumed"`
	TotalWaited     time.Duration `json:"total_waited"`
	Last429Time     time.Time     `json:"last_429_time,omitempty"`
}

// NewRateLimiter creates a full bucket. Non-positive rpm uses DefaultRPM.
func NewRateLimiter(rpm int) *RateLimiter {
	if rpm <= 0 {
		rpm = DefaultRPM
	}
	return &RateLimiter{rpm: rpm, tokens: float64(rpm), lastUpdate: time.Now()}
}

// Wait blocks until a token is available or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		r.refill()
		if r.tokens >= 1 {
			r.tokens--
			r.consumed++
			r.mu.Unlock()
			return nil
		}
		wait := r.untilNextToken()
		r.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
			r.mu.Lock()
			r.waited += wait
			r.mu.Unlock()
		}
	}
}

// Record429 notes a rate limit response. A known Retry-After drains the
// bucket so queued callers back off too.
func (r *RateLimiter) Record429(retryAfter time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last429At = time.Now()
	if retryAfter > 0 {
		r.tokens = 0
	}
}

// Status returns current limiter status.
func (r *RateLimiter) Status() RateLimiterStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refill()
	return RateLimiterStatus{
		TokensAvailable: int(r.tokens),
		RPM:             r.rpm,
		TotalConsumed:   r.consumed,
		TotalWaited:     r.waited,
		Last429Time:     r.last429At,
	}
}

// refill must be called with mu held.
func (r *RateLimiter) refill() {
	now := time.Now()
	r.tokens += now.Sub(r.lastUpdate).Minutes() * float64(r.rpm)
	r.lastUpdate = now
	if r.tokens > float64(r.rpm) {
		r.tokens = float64(r.rpm)
	}
}

func (r *RateLimiter) untilNextToken() time.Duration {
	perToken := time.Minute / time.Duration(r.rpm)
	return time.Duration((1 - r.tokens) * float64(perToken))
}
