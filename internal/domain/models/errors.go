package models

import "errors"

// Failure taxonomy shared by providers and the data service. Providers wrap
// these with %w and context; callers classify with errors.Is.
var (
	// ErrInvalid marks a malformed request. Never retried, no fallback.
	ErrInvalid = errors.New("invalid request")

	// ErrUnavailable marks a transient failure (network, timeout). Retried
	// within a provider, then falls through to the next one.
	ErrUnavailable = errors.New("provider unavailable")

	// ErrRateLimited marks an upstream throttle. Retried after backoff.
	ErrRateLimited = errors.New("provider rate limited")

	// ErrNotFound means the provider holds no data for this (entity,
	// indicator). Falls through without retry.
	ErrNotFound = errors.New("no data found")

	// ErrNoProviders means no provider is registered for the indicator.
	ErrNoProviders = errors.New("no providers registered for indicator")

	// ErrExhausted is the terminal failure after the whole priority list
	// was tried without success.
	ErrExhausted = errors.New("all providers exhausted")
)

// IsTransient reports whether an error is worth retrying on the same provider.
func IsTransient(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrRateLimited)
}
