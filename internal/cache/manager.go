// Package cache implements the two-tier cache manager for fetched time
// series: a fast in-memory tier backed by an optional durable tier, with
// per-indicator-frequency TTLs.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"macropull/internal/domain/models"
	pkgcache "macropull/pkg/cache"
)

// Stats are monotonically accumulated counters, reset only on request.
type Stats struct {
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate"`
	Entries int     `json:"entries"`
}

// Option configures the Manager.
type Option func(*Manager)

// WithTTL sets the lifetime for one frequency class.
func WithTTL(class models.FrequencyClass, ttl time.Duration) Option {
	return func(m *Manager) {
		m.ttls[class] = ttl
	}
}

// WithClock overrides the time source, used by expiry tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithEnabled toggles the whole cache. Disabled, Get always misses and Set
// is a no-op, so the service degrades to fetch-always.
func WithEnabled(enabled bool) Option {
	return func(m *Manager) {
		m.enabled = enabled
	}
}

// Manager coordinates the fast and durable tiers. Read path: fast, then
// durable with promotion into fast. Write path: durable first, then fast.
// Expired entries count as misses but stay in place until the next write to
// the same key or an explicit Sweep.
type Manager struct {
	fast    pkgcache.Tier
	durable pkgcache.Tier // nil when no durable tier is configured
	ttls    map[models.FrequencyClass]time.Duration
	now     func() time.Time
	enabled bool

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewManager creates a manager over the given tiers. durable may be nil.
func NewManager(fast pkgcache.Tier, durable pkgcache.Tier, opts ...Option) *Manager {
	m := &Manager{
		fast:    fast,
		durable: durable,
		now:     time.Now,
		enabled: true,
		ttls: map[models.FrequencyClass]time.Duration{
			models.FrequencyRealtime:  time.Minute,
			models.FrequencyDaily:     6 * time.Hour,
			models.FrequencyMonthly:   3 * 24 * time.Hour,
			models.FrequencyQuarterly: 7 * 24 * time.Hour,
			models.FrequencyAnnual:    30 * 24 * time.Hour,
		},
	}

	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TTL returns the configured lifetime for a frequency class.
func (m *Manager) TTL(class models.FrequencyClass) time.Duration {
	if ttl, ok := m.ttls[class]; ok {
		return ttl
	}
	return m.ttls[models.FrequencyAnnual]
}

// Get returns the cached series for key, or a miss when the key is absent,
// expired, or the cache is disabled. Fresh durable-tier entries are promoted
// into the fast tier before returning.
func (m *Manager) Get(ctx context.Context, key string) (*models.TimeSeries, bool) {
	if !m.enabled {
		return nil, false
	}

	now := m.now()

	if entry, err := m.fast.Get(ctx, key); err == nil {
		if !entry.Expired(now) {
			if series, err := decodeSeries(entry.Payload); err == nil {
				m.hits.Add(1)
				return series, true
			}
		}
		// Expired or undecodable in the fast tier: the durable tier holds
		// the same write, so there is nothing fresher below.
		m.misses.Add(1)
		return nil, false
	}

	if m.durable != nil {
		if entry, err := m.durable.Get(ctx, key); err == nil && !entry.Expired(now) {
			if series, err := decodeSeries(entry.Payload); err == nil {
				_ = m.fast.Set(ctx, entry)
				m.hits.Add(1)
				return series, true
			}
		}
	}

	m.misses.Add(1)
	return nil, false
}

// Entry returns the raw entry for key from the first tier that has it,
// without expiry checks or stat accounting. Used by administration and tests.
func (m *Manager) Entry(ctx context.Context, key string) (*pkgcache.Entry, error) {
	if entry, err := m.fast.Get(ctx, key); err == nil {
		return entry, nil
	}
	if m.durable != nil {
		return m.durable.Get(ctx, key)
	}
	return nil, pkgcache.ErrCacheMiss
}

// Set writes the series to both tiers with a TTL chosen by frequency class.
// Write-through: durable first, then fast.
func (m *Manager) Set(ctx context.Context, key string, series *models.TimeSeries, class models.FrequencyClass) error {
	if !m.enabled {
		return nil
	}

	payload, err := json.Marshal(series)
	if err != nil {
		return fmt.Errorf("encode series: %w", err)
	}

	now := m.now()
	entry := &pkgcache.Entry{
		Key:       key,
		Payload:   payload,
		StoredAt:  now,
		ExpiresAt: now.Add(m.TTL(class)),
	}

	if m.durable != nil {
		if err := m.durable.Set(ctx, entry); err != nil {
			return fmt.Errorf("durable tier set: %w", err)
		}
	}
	if err := m.fast.Set(ctx, entry); err != nil {
		return fmt.Errorf("fast tier set: %w", err)
	}
	return nil
}

// Invalidate evicts one key from both tiers.
func (m *Manager) Invalidate(ctx context.Context, key string) error {
	var errs []error
	if err := m.fast.Delete(ctx, key); err != nil {
		errs = append(errs, err)
	}
	if m.durable != nil {
		if err := m.durable.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Clear evicts everything from both tiers.
func (m *Manager) Clear(ctx context.Context) error {
	var errs []error
	if err := m.fast.Clear(ctx); err != nil {
		errs = append(errs, err)
	}
	if m.durable != nil {
		if err := m.durable.Clear(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Sweep removes expired entries from both tiers and reports how many were
// dropped. Triggered externally; the manager never self-schedules it.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	now := m.now()
	removed, err := m.fast.SweepExpired(ctx, now)
	if err != nil {
		return removed, err
	}
	if m.durable != nil {
		n, err := m.durable.SweepExpired(ctx, now)
		removed += n
		if err != nil {
			return removed, err
		}
	}
	return removed, nil
}

// Stats reports accumulated counters. Entry count comes from the durable
// tier when present, since the fast tier is a bounded subset of it.
func (m *Manager) Stats(ctx context.Context) Stats {
	s := Stats{
		Hits:   m.hits.Load(),
		Misses: m.misses.Load(),
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}

	tier := m.fast
	if m.durable != nil {
		tier = m.durable
	}
	if n, err := tier.Len(ctx); err == nil {
		s.Entries = n
	}
	return s
}

// ResetStats zeroes the hit and miss counters.
func (m *Manager) ResetStats() {
	m.hits.Store(0)
	m.misses.Store(0)
}

// Close closes both tiers.
func (m *Manager) Close() error {
	var errs []error
	if err := m.fast.Close(); err != nil {
		errs = append(errs, err)
	}
	if m.durable != nil {
		if err := m.durable.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func decodeSeries(payload []byte) (*models.TimeSeries, error) {
	var series models.TimeSeries
	if err := json.Unmarshal(payload, &series); err != nil {
		return nil, fmt.Errorf("decode series: %w", err)
	}
	return &series, nil
}
