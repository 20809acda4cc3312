package cache

import (
	"context"
	"errors"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Entry is one stored record. Payload is an opaque serialized value;
// expiration policy lives with the caller, tiers only persist the bounds.
type Entry struct {
	Key       string    `json:"key"`
	Payload   []byte    `json:"payload"`
	StoredAt  time.Time `json:"stored_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the entry is past its lifetime at now.
func (e *Entry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// Clone returns an independent copy of the entry.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Payload = make([]byte, len(e.Payload))
	copy(clone.Payload, e.Payload)
	return &clone
}

// Tier defines one cache storage tier. Get returns entries regardless of
// expiry; stale entries are removed only by Set overwrite, Delete, Clear or
// SweepExpired, never eagerly on read.
type Tier interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, entry *Entry) error
	Delete(ctx context.Context, keys ...string) error
	Clear(ctx context.Context) error
	SweepExpired(ctx context.Context, now time.Time) (int, error)
	Len(ctx context.Context) (int, error)
	Close() error
}
