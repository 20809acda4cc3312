package cache_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"macropull/pkg/cache"
)

func entry(key string, expiresAt time.Time) *cache.Entry {
	return &cache.Entry{
		Key:       key,
		Payload:   []byte(`{"v":1}`),
		StoredAt:  expiresAt.Add(-time.Hour),
		ExpiresAt: expiresAt,
	}
}

func TestMemoryTierRoundTrip(t *testing.T) {
	t.Parallel()

	tier := cache.NewMemoryTier()
	ctx := t.Context()
	e := entry("germany:gdp", time.Now().Add(time.Hour))

	require.NoError(t, tier.Set(ctx, e))

	got, err := tier.Get(ctx, "germany:gdp")
	require.NoError(t, err)
	require.Equal(t, e.Payload, got.Payload)
	require.True(t, e.ExpiresAt.Equal(got.ExpiresAt))

	_, err = tier.Get(ctx, "missing")
	require.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestMemoryTierReturnsExpiredEntries(t *testing.T) {
	t.Parallel()

	// The tier stores, the caller decides freshness.
	tier := cache.NewMemoryTier()
	ctx := t.Context()
	e := entry("stale", time.Now().Add(-time.Hour))

	require.NoError(t, tier.Set(ctx, e))

	got, err := tier.Get(ctx, "stale")
	require.NoError(t, err)
	require.True(t, got.Expired(time.Now()))
}

func TestMemoryTierGetReturnsClone(t *testing.T) {
	t.Parallel()

	tier := cache.NewMemoryTier()
	ctx := t.Context()
	require.NoError(t, tier.Set(ctx, entry("k", time.Now().Add(time.Hour))))

	first, err := tier.Get(ctx, "k")
	require.NoError(t, err)
	first.Payload[0] = 'X'

	second, err := tier.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, byte('{'), second.Payload[0])
}

func TestMemoryTierEvictsLRUWhenFull(t *testing.T) {
	t.Parallel()

	tier := cache.NewMemoryTier(cache.WithMemoryMaxSize(2))
	ctx := t.Context()
	exp := time.Now().Add(time.Hour)

	require.NoError(t, tier.Set(ctx, entry("a", exp)))
	require.NoError(t, tier.Set(ctx, entry("b", exp)))

	// Touch "a" so "b" becomes least recently used.
	_, err := tier.Get(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, tier.Set(ctx, entry("c", exp)))

	n, err := tier.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	_, err = tier.Get(ctx, "b")
	require.ErrorIs(t, err, cache.ErrCacheMiss)
	_, err = tier.Get(ctx, "a")
	require.NoError(t, err)
}

func TestMemoryTierSweepExpired(t *testing.T) {
	t.Parallel()

	tier := cache.NewMemoryTier()
	ctx := t.Context()
	now := time.Now()

	require.NoError(t, tier.Set(ctx, entry("fresh", now.Add(time.Hour))))
	require.NoError(t, tier.Set(ctx, entry("stale1", now.Add(-time.Minute))))
	require.NoError(t, tier.Set(ctx, entry("stale2", now.Add(-time.Hour))))

	removed, err := tier.SweepExpired(ctx, now)
	require.NoError(t, err)
	require.Equal(t, 2, removed)

	n, err := tier.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestMemoryTierDeleteAndClear(t *testing.T) {
	t.Parallel()

	tier := cache.NewMemoryTier()
	ctx := t.Context()
	exp := time.Now().Add(time.Hour)

	require.NoError(t, tier.Set(ctx, entry("a", exp)))
	require.NoError(t, tier.Set(ctx, entry("b", exp)))

	require.NoError(t, tier.Delete(ctx, "a"))
	_, err := tier.Get(ctx, "a")
	require.ErrorIs(t, err, cache.ErrCacheMiss)

	require.NoError(t, tier.Clear(ctx))
	n, err := tier.Len(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}
