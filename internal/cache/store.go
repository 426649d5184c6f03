package cache

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrMiss is returned by Get for an absent or expired key
var ErrMiss = errors.New("cache miss")

// Store is a small TTL key/value cache with fixed-window counters. Redis
// backs it in production; MemoryStore stands in when Redis is not configured.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

type memoryEntry struct {
	value     []byte
	count     int64
	expiresAt time.Time
}

// pruneInterval spaces out the full sweeps of expired entries
const pruneInterval = time.Minute

// MemoryStore is a process-local Store. Expired entries are dropped when
// read, and all of them are swept at most once per pruneInterval on writes.
type MemoryStore struct {
	mu        sync.Mutex
	entries   map[string]*memoryEntry
	now       func() time.Time
	lastPrune time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*memoryEntry), now: time.Now}
}

// live returns the entry for key, dropping it if it expired. Caller holds mu.
func (m *MemoryStore) live(key string) *memoryEntry {
	e, ok := m.entries[key]
	if !ok {
		return nil
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return nil
	}
	return e
}

// pruneLocked deletes every expired entry when the last sweep is older than
// pruneInterval. Caller holds mu.
func (m *MemoryStore) pruneLocked(now time.Time) {
	if now.Sub(m.lastPrune) < pruneInterval {
		return
	}
	m.lastPrune = now
	for key, e := range m.entries {
		if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
			delete(m.entries, key)
		}
	}
}

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.live(key)
	if e == nil || e.value == nil {
		return nil, ErrMiss
	}
	return e.value, nil
}

func (m *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.pruneLocked(now)
	e := &memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}
	m.entries[key] = e
	return nil
}

func (m *MemoryStore) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}

func (m *MemoryStore) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.pruneLocked(now)
	e := m.live(key)
	if e == nil {
		e = &memoryEntry{expiresAt: now.Add(window)}
		m.entries[key] = e
	}
	e.count++
	return e.count, e.expiresAt.Sub(now), nil
}
