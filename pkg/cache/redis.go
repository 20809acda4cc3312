package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTier is an alternative durable tier for deployments that already run
// redis. Entries are stored as JSON under a prefixed key. Redis TTL is not
// used for expiry: expiry lives in the entry so stale reads stay observable
// to the manager, matching the lazy-purge policy of the other tiers.
type RedisTier struct {
	client *redis.Client
	prefix string
}

// NewRedisTier creates a redis tier and verifies connectivity.
func NewRedisTier(opts ...RedisOption) (*RedisTier, error) {
	cfg := &RedisConfig{
		Addr:         "localhost:6379",
		DB:           0,
		PoolSize:     10,
		PoolTimeout:  30 * time.Second,
		MinIdleConns: 5,
		Prefix:       "macropull",
	}

	for _, opt := range opts {
		opt(cfg)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		PoolTimeout:  cfg.PoolTimeout,
		MinIdleConns: cfg.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisTier{
		client: client,
		prefix: cfg.Prefix,
	}, nil
}

func (rt *RedisTier) Get(ctx context.Context, key string) (*Entry, error) {
	data, err := rt.client.Get(ctx, rt.wrapKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("redis get: decode: %w", err)
	}
	return &entry, nil
}

func (rt *RedisTier) Set(ctx context.Context, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("redis set: encode: %w", err)
	}
	if err := rt.client.Set(ctx, rt.wrapKey(entry.Key), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (rt *RedisTier) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	wrapped := make([]string, len(keys))
	for i, key := range keys {
		wrapped[i] = rt.wrapKey(key)
	}
	return rt.client.Unlink(ctx, wrapped...).Err()
}

func (rt *RedisTier) Clear(ctx context.Context) error {
	keys, err := rt.client.Keys(ctx, rt.prefix+":*").Result()
	if err != nil {
		return fmt.Errorf("redis clear: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return rt.client.Unlink(ctx, keys...).Err()
}

func (rt *RedisTier) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	keys, err := rt.client.Keys(ctx, rt.prefix+":*").Result()
	if err != nil {
		return 0, fmt.Errorf("redis sweep: %w", err)
	}

	removed := 0
	for _, wrapped := range keys {
		entry, err := rt.Get(ctx, rt.unwrapKey(wrapped))
		if err != nil {
			continue
		}
		if entry.Expired(now) {
			if err := rt.client.Unlink(ctx, wrapped).Err(); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

func (rt *RedisTier) Len(ctx context.Context) (int, error) {
	keys, err := rt.client.Keys(ctx, rt.prefix+":*").Result()
	if err != nil {
		return 0, fmt.Errorf("redis len: %w", err)
	}
	return len(keys), nil
}

// Close closes the redis connection.
func (rt *RedisTier) Close() error {
	return rt.client.Close()
}

func (rt *RedisTier) wrapKey(key string) string {
	return fmt.Sprintf("%s:%s", rt.prefix, key)
}

func (rt *RedisTier) unwrapKey(key string) string {
	return strings.TrimPrefix(key, rt.prefix+":")
}
