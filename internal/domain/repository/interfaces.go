package repository

import (
	"context"

	"macropull/internal/domain/models"
)

// Provider is the capability contract every backing data source implements.
// New sources plug in by implementing this and registering; the data service
// never changes.
type Provider interface {
	// Name identifies the provider in provenance and logs.
	Name() string

	// Indicators lists the indicator IDs this provider can serve.
	// Pure, no I/O; the registry builds its index from it at startup.
	Indicators() []string

	// Validate is a cheap pre-check run before Fetch to avoid wasted I/O.
	// A non-nil error wraps one of the models sentinel errors.
	Validate(req models.DataRequest) error

	// Fetch retrieves the series. Safe for concurrent use. Errors wrap
	// ErrUnavailable, ErrNotFound, ErrRateLimited or ErrInvalid.
	Fetch(ctx context.Context, req models.DataRequest) (*models.TimeSeries, error)
}

// EventPublisher announces freshly fetched series to downstream consumers.
// Best effort: publish failures never fail the originating request.
type EventPublisher interface {
	PublishSeries(ctx context.Context, series *models.TimeSeries) error
	Close() error
}

// Metrics records cache and provider behavior for observability.
type Metrics interface {
	RecordCacheHit(indicator string)
	RecordCacheMiss(indicator string)
	RecordProviderAttempt(provider, indicator string)
	RecordProviderError(provider, kind string)
	RecordFetchLatency(provider string, seconds float64)
	RecordOutcome(outcome string)
}
