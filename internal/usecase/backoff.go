package usecase

import (
	"math/rand"
	"time"
)

// RetryPolicy bounds the retry loop run against a single provider before the
// service falls through to the next one.
type RetryPolicy struct {
	MaxRetries int           // retries after the first attempt; total calls = MaxRetries+1
	BackoffMin time.Duration
	BackoffMax time.Duration
	Timeout    time.Duration // per-call timeout; 0 disables
}

// DefaultRetryPolicy is used when config supplies nothing.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries: 2,
	BackoffMin: 100 * time.Millisecond,
	BackoffMax: 2 * time.Second,
	Timeout:    15 * time.Second,
}

// retryState is the explicit retry state machine: attempt count, last error,
// next backoff. No I/O, so the bound and termination are testable alone.
type retryState struct {
	policy  RetryPolicy
	attempt int
	lastErr error
}

func newRetryState(policy RetryPolicy) *retryState {
	return &retryState{policy: policy}
}

// Record notes a failed attempt.
func (s *retryState) Record(err error) {
	s.attempt++
	s.lastErr = err
}

// CanRetry reports whether another attempt is allowed.
func (s *retryState) CanRetry() bool {
	return s.attempt <= s.policy.MaxRetries
}

// LastErr returns the most recent recorded error.
func (s *retryState) LastErr() error {
	return s.lastErr
}

// NextBackoff returns the wait before the next attempt: exponential from
// BackoffMin, capped at BackoffMax, minus up to 50% jitter.
func (s *retryState) NextBackoff() time.Duration {
	return backoffWithJitter(s.policy.BackoffMin, s.policy.BackoffMax, s.attempt)
}

func backoffWithJitter(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	if attempt < 1 {
		attempt = 1
	}
	exp := min * time.Duration(1<<uint(attempt-1))
	if exp > max || exp <= 0 {
		exp = max
	}
	jitter := time.Duration(rand.Int63n(int64(exp)/2 + 1))
	return exp - jitter
}
