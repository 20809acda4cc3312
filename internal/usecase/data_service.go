// Package usecase holds the data service: the orchestration and fallback
// state machine that turns a (entity, indicator) request into a response via
// cache, registry and providers.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"macropull/internal/cache"
	"macropull/internal/domain/models"
	drepo "macropull/internal/domain/repository"
	"macropull/internal/registry"
	applogger "macropull/pkg/logger"
)

// Option configures the DataService.
type Option func(*DataService)

// WithRetryPolicy sets the service-wide retry defaults.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(s *DataService) {
		s.defaults = policy
	}
}

// WithProviderPolicy overrides the retry policy for one provider.
func WithProviderPolicy(name string, policy RetryPolicy) Option {
	return func(s *DataService) {
		s.perProvider[name] = policy
	}
}

// WithPublisher announces successful fetches downstream, best effort.
func WithPublisher(pub drepo.EventPublisher) Option {
	return func(s *DataService) {
		s.publisher = pub
	}
}

// WithMetrics records cache and provider behavior.
func WithMetrics(m drepo.Metrics) Option {
	return func(s *DataService) {
		s.metrics = m
	}
}

// WithLogger sets the service logger.
func WithLogger(l *applogger.Logger) Option {
	return func(s *DataService) {
		s.logger = l
	}
}

// WithFrequencyResolver maps indicators to frequency classes for TTL
// selection. Unresolved indicators default to annual.
func WithFrequencyResolver(freq func(indicator string) models.FrequencyClass) Option {
	return func(s *DataService) {
		s.freq = freq
	}
}

// WithDedupe shares one in-flight fetch among concurrent same-key misses.
// Off by default: racing fetches write idempotently, dedup only saves I/O.
func WithDedupe(enabled bool) Option {
	return func(s *DataService) {
		if enabled {
			s.flight = &singleflight.Group{}
		} else {
			s.flight = nil
		}
	}
}

// WithBatchConcurrency bounds GetBatch fan-out.
func WithBatchConcurrency(n int) Option {
	return func(s *DataService) {
		if n > 0 {
			s.batchLimit = n
		}
	}
}

// DataService is the single public entry point of the orchestration core.
// One shared instance is safe for many concurrent callers: it holds only the
// read-mostly registry and the internally synchronized cache.
type DataService struct {
	registry    *registry.Registry
	cache       *cache.Manager
	publisher   drepo.EventPublisher
	metrics     drepo.Metrics
	logger      *applogger.Logger
	defaults    RetryPolicy
	perProvider map[string]RetryPolicy
	freq        func(indicator string) models.FrequencyClass
	flight      *singleflight.Group
	batchLimit  int
}

// NewDataService creates the service over an already-populated registry and
// cache manager.
func NewDataService(reg *registry.Registry, cm *cache.Manager, opts ...Option) *DataService {
	s := &DataService{
		registry:    reg,
		cache:       cm,
		metrics:     nopMetrics{},
		defaults:    DefaultRetryPolicy,
		perProvider: make(map[string]RetryPolicy),
		freq:        func(string) models.FrequencyClass { return models.FrequencyAnnual },
		batchLimit:  8,
	}

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry exposes the registry for capability discovery surfaces.
func (s *DataService) Registry() *registry.Registry { return s.registry }

// Cache exposes the cache manager for the administration surface.
func (s *DataService) Cache() *cache.Manager { return s.cache }

// Close releases the publisher and the cache tiers.
func (s *DataService) Close() error {
	var errs []error
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.cache.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Get resolves one request. Terminal outcomes only: success (fetched or
// cached), success with a substituted default, or failure carrying the last
// error detail. Transient provider errors never cross this boundary.
func (s *DataService) Get(ctx context.Context, req models.DataRequest) models.DataResponse {
	if err := req.Validate(); err != nil {
		s.metrics.RecordOutcome("invalid")
		return models.FailureResponse(err)
	}

	key := req.Key()
	if series, ok := s.cache.Get(ctx, key); ok {
		s.metrics.RecordCacheHit(req.Indicator)
		s.metrics.RecordOutcome("cache_hit")
		return models.SuccessResponse(series.Span(req.From, req.To), true)
	}
	s.metrics.RecordCacheMiss(req.Indicator)

	series, err := s.fetchSeries(ctx, req)
	if err != nil {
		if req.Default != nil {
			s.metrics.RecordOutcome("default")
			return models.DefaultResponse(*req.Default, err)
		}
		s.metrics.RecordOutcome("exhausted")
		return models.FailureResponse(err)
	}

	s.metrics.RecordOutcome("fetched")
	return models.SuccessResponse(series.Span(req.From, req.To), false)
}

// GetBatch resolves independent requests concurrently with bounded fan-out.
// Responses come back in request order.
func (s *DataService) GetBatch(ctx context.Context, reqs []models.DataRequest) []models.DataResponse {
	responses := make([]models.DataResponse, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batchLimit)
	for i := range reqs {
		g.Go(func() error {
			responses[i] = s.Get(gctx, reqs[i])
			return nil
		})
	}
	_ = g.Wait()
	return responses
}

// fetchSeries walks the provider priority list, optionally deduplicating
// same-key in-flight fetches.
func (s *DataService) fetchSeries(ctx context.Context, req models.DataRequest) (*models.TimeSeries, error) {
	if s.flight == nil {
		return s.fetchFromProviders(ctx, req)
	}

	// Range bounds join the key so callers asking for different windows
	// never share a flight.
	flightKey := req.Key()
	if req.From != nil {
		flightKey += "|" + req.From.Format(time.RFC3339)
	}
	if req.To != nil {
		flightKey += "|" + req.To.Format(time.RFC3339)
	}

	v, err, _ := s.flight.Do(flightKey, func() (interface{}, error) {
		return s.fetchFromProviders(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.TimeSeries).Clone(), nil
}

// fetchFromProviders iterates providers in priority order. The first
// non-empty series wins, is cached and announced. NotFound and Invalid fall
// through immediately; Unavailable and RateLimited are retried per policy
// before falling through.
func (s *DataService) fetchFromProviders(ctx context.Context, req models.DataRequest) (*models.TimeSeries, error) {
	providers := s.registry.ProvidersFor(req.Indicator)
	if len(providers) == 0 {
		return nil, fmt.Errorf("%w: %w: %s", models.ErrExhausted, models.ErrNoProviders, req.Indicator)
	}

	var lastErr error
	for _, p := range providers {
		series, err := s.tryProvider(ctx, p, req)
		if err != nil {
			lastErr = err
			s.logWarn("provider failed",
				applogger.String("provider", p.Name()),
				applogger.String("indicator", req.Indicator),
				applogger.Error(err))
			continue
		}
		if series.IsEmpty() {
			lastErr = fmt.Errorf("%w: provider %s returned an empty series", models.ErrNotFound, p.Name())
			continue
		}

		series.Provider = p.Name()
		series.Normalize()

		class := s.freq(req.Indicator)
		if err := s.cache.Set(ctx, req.Key(), series, class); err != nil {
			s.logWarn("cache write failed",
				applogger.String("key", req.Key()),
				applogger.Error(err))
		}
		s.announce(ctx, series)

		return series, nil
	}

	return nil, fmt.Errorf("%w: %w", models.ErrExhausted, lastErr)
}

// tryProvider runs validate then the bounded fetch/retry loop for one
// provider. A per-call timeout counts as Unavailable.
func (s *DataService) tryProvider(ctx context.Context, p drepo.Provider, req models.DataRequest) (*models.TimeSeries, error) {
	if err := p.Validate(req); err != nil {
		s.metrics.RecordProviderError(p.Name(), errorKind(err))
		return nil, err
	}

	policy := s.policyFor(p.Name())
	state := newRetryState(policy)

	for {
		s.metrics.RecordProviderAttempt(p.Name(), req.Indicator)
		start := time.Now()

		fetchCtx := ctx
		cancel := func() {}
		if policy.Timeout > 0 {
			fetchCtx, cancel = context.WithTimeout(ctx, policy.Timeout)
		}
		series, err := p.Fetch(fetchCtx, req)
		cancel()

		s.metrics.RecordFetchLatency(p.Name(), time.Since(start).Seconds())

		if err == nil {
			return series, nil
		}
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("%w: %s fetch timed out after %s", models.ErrUnavailable, p.Name(), policy.Timeout)
		}
		s.metrics.RecordProviderError(p.Name(), errorKind(err))

		if !models.IsTransient(err) {
			return nil, err
		}

		state.Record(err)
		if !state.CanRetry() {
			return nil, state.LastErr()
		}

		select {
		case <-time.After(state.NextBackoff()):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", models.ErrUnavailable, ctx.Err())
		}
	}
}

func (s *DataService) policyFor(provider string) RetryPolicy {
	if policy, ok := s.perProvider[provider]; ok {
		return policy
	}
	return s.defaults
}

// announce pushes the series downstream, best effort.
func (s *DataService) announce(ctx context.Context, series *models.TimeSeries) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishSeries(ctx, series); err != nil {
		s.logWarn("series publish failed",
			applogger.String("entity", series.Entity),
			applogger.String("indicator", series.Indicator),
			applogger.Error(err))
	}
}

func (s *DataService) logWarn(msg string, fields ...applogger.Field) {
	if s.logger != nil {
		s.logger.Warn(msg, fields...)
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, models.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, models.ErrUnavailable):
		return "unavailable"
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	case errors.Is(err, models.ErrInvalid):
		return "invalid"
	default:
		return "other"
	}
}

// nopMetrics is the default Metrics sink.
type nopMetrics struct{}

func (nopMetrics) RecordCacheHit(string)                {}
func (nopMetrics) RecordCacheMiss(string)               {}
func (nopMetrics) RecordProviderAttempt(string, string) {}
func (nopMetrics) RecordProviderError(string, string)   {}
func (nopMetrics) RecordFetchLatency(string, float64)   {}
func (nopMetrics) RecordOutcome(string)                 {}
