package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hiddenpath/relay/core"
)

func TestRetryBackoffMonotonicAndClamped(t *testing.T) {
	p := NewRetryPolicy(RetryPolicy{
		MaxRetries: 8,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   2 * time.Second,
		Multiplier: 2,
		Jitter:     JitterNone,
	})

	prev := time.Duration(0)
	for attempt := 1; attempt <= 8; attempt++ {
		d := p.backoff(attempt)
		if d < prev {
			t.Errorf("backoff(%d) = %v, decreased from %v", attempt, d, prev)
		}
		if d > p.MaxDelay {
			t.Errorf("backoff(%d) = %v, exceeds max %v", attempt, d, p.MaxDelay)
		}
		prev = d
	}

	if got := p.backoff(1); got != 100*time.Millisecond {
		t.Errorf("backoff(1) = %v, want base delay", got)
	}
	if got := p.backoff(8); got != 2*time.Second {
		t.Errorf("backoff(8) = %v, want clamped to max", got)
	}
}

func TestRetryDelayJitterBounds(t *testing.T) {
	base := NewRetryPolicy(RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  100 * time.Millisecond,
		MinDelay:   time.Millisecond,
		MaxDelay:   time.Second,
		Multiplier: 2,
	})
	err := errors.New("boom")

	full := *base
	full.Jitter = JitterFull
	for i := 0; i < 50; i++ {
		d := full.Delay(2, err)
		if d < 0 || d > 200*time.Millisecond {
			t.Fatalf("full jitter Delay = %v, want within [0, 200ms]", d)
		}
	}

	equal := *base
	equal.Jitter = JitterEqual
	for i := 0; i < 50; i++ {
		d := equal.Delay(2, err)
		if d < 100*time.Millisecond || d > 200*time.Millisecond {
			t.Fatalf("equal jitter Delay = %v, want within [100ms, 200ms]", d)
		}
	}
}

func TestRetryDelayHonorsRetryAfterHint(t *testing.T) {
	p := NewRetryPolicy(RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond, Jitter: JitterNone})

	err := &core.ProviderError{
		Provider:   "openai",
		Status:     429,
		Kind:       core.KindRateLimited,
		RetryAfter: 5 * time.Second,
	}

	if got := p.Delay(1, err); got != 5*time.Second {
		t.Errorf("Delay() = %v, want retry-after hint 5s", got)
	}
}

func TestRetryShouldRetryByKind(t *testing.T) {
	p := NewRetryPolicy(RetryPolicy{MaxRetries: 2})

	tests := []struct {
		name    string
		err     error
		attempt int
		want    bool
	}{
		{"retryable kind", &core.ProviderError{Kind: core.KindRateLimited}, 1, true},
		{"server error kind", &core.ProviderError{Kind: core.KindServerError}, 2, true},
		{"non-retryable kind", &core.ProviderError{Kind: core.KindInvalidRequest}, 1, false},
		{"quota exhausted", &core.ProviderError{Kind: core.KindQuotaExhausted}, 1, false},
		{"cancelled", context.Canceled, 1, false},
		{"unclassified", errors.New("mystery"), 1, false},
		{"attempts exhausted", &core.ProviderError{Kind: core.KindRateLimited}, 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.ShouldRetry(tt.err, tt.attempt); got != tt.want {
				t.Errorf("ShouldRetry() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRetryWaitAbortsOnCancel(t *testing.T) {
	p := NewRetryPolicy(RetryPolicy{MaxRetries: 1})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := p.Wait(ctx, time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() = %v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Wait() did not abort promptly on cancellation")
	}
}
