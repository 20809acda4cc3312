package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryTier is the bounded in-process tier with LRU eviction. Contents are
// lost on restart; the durable tier repopulates it on read.
type MemoryTier struct {
	data    map[string]*Entry
	access  map[string]time.Time
	mutex   sync.RWMutex
	maxSize int
}

// NewMemoryTier creates an in-memory tier.
func NewMemoryTier(opts ...MemoryOption) *MemoryTier {
	cfg := &MemoryConfig{
		MaxSize: 1000,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return &MemoryTier{
		data:    make(map[string]*Entry),
		access:  make(map[string]time.Time),
		maxSize: cfg.MaxSize,
	}
}

func (mt *MemoryTier) Get(_ context.Context, key string) (*Entry, error) {
	mt.mutex.Lock()
	defer mt.mutex.Unlock()

	entry, exists := mt.data[key]
	if !exists {
		return nil, ErrCacheMiss
	}

	mt.access[key] = time.Now()
	return entry.Clone(), nil
}

func (mt *MemoryTier) Set(_ context.Context, entry *Entry) error {
	mt.mutex.Lock()
	defer mt.mutex.Unlock()

	if _, exists := mt.data[entry.Key]; !exists && len(mt.data) >= mt.maxSize {
		mt.evictLRU()
	}

	mt.data[entry.Key] = entry.Clone()
	mt.access[entry.Key] = time.Now()
	return nil
}

func (mt *MemoryTier) Delete(_ context.Context, keys ...string) error {
	mt.mutex.Lock()
	defer mt.mutex.Unlock()

	for _, key := range keys {
		delete(mt.data, key)
		delete(mt.access, key)
	}
	return nil
}

func (mt *MemoryTier) Clear(_ context.Context) error {
	mt.mutex.Lock()
	defer mt.mutex.Unlock()

	mt.data = make(map[string]*Entry)
	mt.access = make(map[string]time.Time)
	return nil
}

func (mt *MemoryTier) SweepExpired(_ context.Context, now time.Time) (int, error) {
	mt.mutex.Lock()
	defer mt.mutex.Unlock()

	removed := 0
	for key, entry := range mt.data {
		if entry.Expired(now) {
			delete(mt.data, key)
			delete(mt.access, key)
			removed++
		}
	}
	return removed, nil
}

func (mt *MemoryTier) Len(_ context.Context) (int, error) {
	mt.mutex.RLock()
	defer mt.mutex.RUnlock()
	return len(mt.data), nil
}

func (mt *MemoryTier) evictLRU() {
	if len(mt.data) == 0 {
		return
	}

	var oldestKey string
	oldestTime := time.Now().Add(time.Hour)

	for key, accessTime := range mt.access {
		if accessTime.Before(oldestTime) {
			oldestTime = accessTime
			oldestKey = key
		}
	}

	if oldestKey != "" {
		delete(mt.data, oldestKey)
		delete(mt.access, oldestKey)
	}
}

// Close is a no-op for the memory tier.
func (mt *MemoryTier) Close() error {
	return nil
}
