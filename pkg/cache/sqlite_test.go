package cache_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"macropull/pkg/cache"
)

func newSQLiteTier(t *testing.T) *cache.SQLiteTier {
	t.Helper()

	tier, err := cache.NewSQLiteTier(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, tier.Close()) })
	return tier
}

func TestSQLiteTierRoundTrip(t *testing.T) {
	t.Parallel()

	tier := newSQLiteTier(t)
	ctx := t.Context()

	stored := time.Date(2026, time.March, 1, 12, 0, 0, 123456789, time.UTC)
	e := &cache.Entry{
		Key:       "germany:gdp",
		Payload:   []byte(`{"entity":"germany"}`),
		StoredAt:  stored,
		ExpiresAt: stored.Add(720 * time.Hour),
	}

	require.NoError(t, tier.Set(ctx, e))

	got, err := tier.Get(ctx, "germany:gdp")
	require.NoError(t, err)
	require.Equal(t, e.Payload, got.Payload)
	require.True(t, e.StoredAt.Equal(got.StoredAt))
	require.True(t, e.ExpiresAt.Equal(got.ExpiresAt))

	_, err = tier.Get(ctx, "missing")
	require.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestSQLiteTierUpsertOverwrites(t *testing.T) {
	t.Parallel()

	tier := newSQLiteTier(t)
	ctx := t.Context()
	now := time.Now().UTC()

	require.NoError(t, tier.Set(ctx, &cache.Entry{
		Key: "k", Payload: []byte("old"), StoredAt: now, ExpiresAt: now.Add(time.Hour),
	}))
	require.NoError(t, tier.Set(ctx, &cache.Entry{
		Key: "k", Payload: []byte("new"), StoredAt: now.Add(time.Minute), ExpiresAt: now.Add(2 * time.Hour),
	}))

	got, err := tier.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("new"), got.Payload)

	n, err := tier.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestSQLiteTierSurvivesReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := t.Context()
	now := time.Now().UTC()

	tier, err := cache.NewSQLiteTier(path)
	require.NoError(t, err)
	require.NoError(t, tier.Set(ctx, &cache.Entry{
		Key: "k", Payload: []byte("persisted"), StoredAt: now, ExpiresAt: now.Add(time.Hour),
	}))
	require.NoError(t, tier.Close())

	reopened, err := cache.NewSQLiteTier(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("persisted"), got.Payload)
}

func TestSQLiteTierSweepExpired(t *testing.T) {
	t.Parallel()

	tier := newSQLiteTier(t)
	ctx := t.Context()
	now := time.Now().UTC()

	require.NoError(t, tier.Set(ctx, &cache.Entry{
		Key: "fresh", Payload: []byte("a"), StoredAt: now, ExpiresAt: now.Add(time.Hour),
	}))
	require.NoError(t, tier.Set(ctx, &cache.Entry{
		Key: "stale", Payload: []byte("b"), StoredAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour),
	}))

	removed, err := tier.SweepExpired(ctx, now)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	_, err = tier.Get(ctx, "stale")
	require.ErrorIs(t, err, cache.ErrCacheMiss)
	_, err = tier.Get(ctx, "fresh")
	require.NoError(t, err)
}

func TestSQLiteTierDeleteAndClear(t *testing.T) {
	t.Parallel()

	tier := newSQLiteTier(t)
	ctx := t.Context()
	now := time.Now().UTC()

	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, tier.Set(ctx, &cache.Entry{
			Key: key, Payload: []byte(key), StoredAt: now, ExpiresAt: now.Add(time.Hour),
		}))
	}

	require.NoError(t, tier.Delete(ctx, "a", "b"))
	n, err := tier.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.NoError(t, tier.Clear(ctx))
	n, err = tier.Len(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}
