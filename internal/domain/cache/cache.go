// Package cache keeps the last known good payload per source, driver and load.
package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/okian/etaflow/internal/domain/model"
)

// Default cache configuration constants.
const (
	defaultShardCount     = 16
	defaultStaleRetention = 24 * time.Hour
)

// Entry is a cached payload with the time it was stored and its TTL.
type Entry struct {
	Data     model.RawData
	StoredAt time.Time
	TTL      time.Duration
}

// Expired reports whether the entry is older than its TTL at now.
func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.StoredAt.Add(e.TTL))
}

// Store is the shared last-known-good cache.
type Store interface {
	// Get returns the entry under key. Unless ignoreExpiry is set, entries
	// whose TTL has elapsed are treated as absent.
	Get(ctx context.Context, key string, ignoreExpiry bool) (Entry, bool)

	// Put stores data under key for ttl, replacing any previous entry.
	Put(ctx context.Context, key string, data model.RawData, ttl time.Duration)

	// Sweep drops entries that outlived TTL plus the stale retention window
	// and returns how many were removed.
	Sweep(ctx context.Context) int

	Len() int
}

// Key builds the cache key for one source of one driver/load pair.
func Key(t model.SourceType, driverID, loadID string) string {
	return string(t) + "|" + driverID + "|" + loadID
}

type shard struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// MemoryStore implements Store with a fixed number of RWMutex-guarded shards
// so concurrent fetches for different keys rarely contend.
type MemoryStore struct {
	shards         []*shard
	shardCount     int
	maxPerShard    int
	staleRetention time.Duration
	now            func() time.Time
	size           atomic.Int64
}

// NewMemoryStore creates a new in-memory store with configuration options.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		shardCount:     defaultShardCount,
		staleRetention: defaultStaleRetention,
		now:            time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.shards = make([]*shard, s.shardCount)
	for i := range s.shards {
		s.shards[i] = &shard{entries: make(map[string]Entry)}
	}
	return s
}

func (s *MemoryStore) shardFor(key string) *shard {
	return s.shards[xxhash.Sum64String(key)%uint64(len(s.shards))]
}

// Get returns the entry under key.
func (s *MemoryStore) Get(_ context.Context, key string, ignoreExpiry bool) (Entry, bool) {
	sh := s.shardFor(key)
	sh.mu.RLock()
	e, ok := sh.entries[key]
	sh.mu.RUnlock()

	if !ok {
		return Entry{}, false
	}
	if !ignoreExpiry && e.Expired(s.now()) {
		return Entry{}, false
	}
	return e, true
}

// Put stores data under key for ttl.
func (s *MemoryStore) Put(_ context.Context, key string, data model.RawData, ttl time.Duration) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, exists := sh.entries[key]; !exists {
		if s.maxPerShard > 0 && len(sh.entries) >= s.maxPerShard {
			s.evictOldest(sh)
		}
		s.size.Add(1)
	}
	sh.entries[key] = Entry{Data: data, StoredAt: s.now(), TTL: ttl}
}

// evictOldest removes the entry stored longest ago.
// Must be called with sh.mu held.
func (s *MemoryStore) evictOldest(sh *shard) {
	var (
		oldestKey string
		oldestAt  time.Time
		found     bool
	)
	for k, e := range sh.entries {
		if !found || e.StoredAt.Before(oldestAt) {
			oldestKey, oldestAt, found = k, e.StoredAt, true
		}
	}
	if found {
		delete(sh.entries, oldestKey)
		s.size.Add(-1)
	}
}

// Sweep drops entries older than TTL plus the stale retention window.
func (s *MemoryStore) Sweep(_ context.Context) int {
	now := s.now()
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for k, e := range sh.entries {
			if !now.Before(e.StoredAt.Add(e.TTL + s.staleRetention)) {
				delete(sh.entries, k)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	s.size.Add(int64(-removed))
	return removed
}

// Len returns the number of entries currently held.
func (s *MemoryStore) Len() int {
	return int(s.size.Load())
}
