package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMockClient(t *testing.T) {
	t.Run("chat", func(t *testing.T) {
		c := NewMockClient()
		c.ResponseText = "hello world"

		result, err := c.Chat(context.Background(), &ChatRequest{
			Model:    "test-model",
			Messages: []Message{{Role: RoleUser, Content: "test"}},
		})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if result.Content != "hello world" {
			t.Errorf("Content = %q, want %q", result.Content, "hello world")
		}
		if c.RequestCount() != 1 {
			t.Errorf("RequestCount = %d, want 1", c.RequestCount())
		}
		if c.LastRequest().Model != "test-model" {
			t.Errorf("request not recorded")
		}
	})

	t.Run("fail after", func(t *testing.T) {
		c := NewMockClient()
		c.FailAfter = 1

		if _, err := c.Chat(context.Background(), &ChatRequest{}); err != nil {
			t.Fatalf("first request error = %v", err)
		}
		if _, err := c.Chat(context.Background(), &ChatRequest{}); err == nil {
			t.Error("second request should fail")
		}
	})

	t.Run("empty response", func(t *testing.T) {
		c := NewMockClient()
		c.ResponseText = ""
		if _, err := c.Chat(context.Background(), &ChatRequest{}); !errors.Is(err, ErrEmptyResponse) {
			t.Errorf("expected ErrEmptyResponse, got %v", err)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		c := NewMockClient()
		c.Latency = time.Second
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := c.Chat(ctx, &ChatRequest{}); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestRateLimiter(t *testing.T) {
	t.Run("full bucket does not wait", func(t *testing.T) {
		limiter := NewRateLimiter(600)
		start := time.Now()
		for i := 0; i < 5; i++ {
			if err := limiter.Wait(context.Background()); err != nil {
				t.Fatalf("Wait() error = %v", err)
			}
		}
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Errorf("took too long: %v", elapsed)
		}
	})

	t.Run("default rpm", func(t *testing.T) {
		if got := NewRateLimiter(0).Status().RPM; got != DefaultRPM {
			t.Errorf("RPM = %d, want %d", got, DefaultRPM)
		}
	})

	t.Run("record 429 drains", func(t *testing.T) {
		limiter := NewRateLimiter(60)
		limiter.Record429(time.Second)

		status := limiter.Status()
		if status.Last429Time.IsZero() {
			t.Error("Last429Time should be set")
		}
		if status.TokensAvailable != 0 {
			t.Errorf("TokensAvailable = %d, want 0", status.TokensAvailable)
		}
	})

	t.Run("respects cancellation", func(t *testing.T) {
		limiter := NewRateLimiter(1)
		limiter.Wait(context.Background())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := limiter.Wait(ctx); err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("concurrent requests", func(t *testing.T) {
		limiter := NewRateLimiter(6000)

		var wg sync.WaitGroup
		var failures atomic.Int32
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := limiter.Wait(context.Background()); err != nil {
					failures.Add(1)
				}
			}()
		}
		wg.Wait()

		if failures.Load() > 0 {
			t.Errorf("had %d errors", failures.Load())
		}
		if got := limiter.Status().TotalConsumed; got != 10 {
			t.Errorf("TotalConsumed = %d, want 10", got)
		}
	})
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"3", 3 * time.Second},
		{"0.5", 500 * time.Millisecond},
		{"-1", 0},
		{"soon", 0},
		{time.Now().Add(-time.Hour).UTC().Format(http.TimeFormat), 0},
	}
	for _, tt := range tests {
		if got := parseRetryAfter(tt.in); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	future := time.Now().Add(time.Hour).UTC().Format(http.TimeFormat)
	if got := parseRetryAfter(future); got < 58*time.Minute || got > time.Hour {
		t.Errorf("parseRetryAfter(date) = %v, want about an hour", got)
	}
}

func TestRetryPolicy(t *testing.T) {
	policy := retryPolicy{attempts: 3, delay: time.Millisecond}

	tests := []struct {
		name         string
		errs         []error
		wantAttempts int
		wantErr      bool
	}{
		{"success", []error{nil}, 1, false},
		{"server error then success", []error{&StatusError{Provider: "p", StatusCode: 503}, nil}, 2, false},
		{"rate limit then success", []error{&RateLimitError{Message: "slow down", StatusCode: 429}, nil}, 2, false},
		{"client error is final", []error{&StatusError{Provider: "p", StatusCode: 400}}, 1, true},
		{"empty response is final", []error{fmt.Errorf("p: %w", ErrEmptyResponse)}, 1, true},
		{"exhausted", []error{errors.New("reset"), errors.New("reset"), errors.New("reset")}, 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call := 0
			attempts, err := policy.do(context.Background(), "p", func() error {
				e := tt.errs[min(call, len(tt.errs)-1)]
				call++
				return e
			})
			if (err != nil) != tt.wantErr {
				t.Fatalf("do() error = %v, wantErr %v", err, tt.wantErr)
			}
			if attempts != tt.wantAttempts {
				t.Errorf("attempts = %d, want %d", attempts, tt.wantAttempts)
			}
		})
	}
}
