package cache

import "time"

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithShardCount sets the number of independently locked shards.
func WithShardCount(n int) Option {
	return func(s *MemoryStore) {
		if n > 0 {
			s.shardCount = n
		}
	}
}

// WithMaxEntries bounds the number of entries per shard. When a shard is full
// the entry stored longest ago is evicted. Zero or negative means unbounded.
func WithMaxEntries(n int) Option {
	return func(s *MemoryStore) {
		s.maxPerShard = n
	}
}

// WithStaleRetention sets how long an entry is kept after its TTL elapsed so
// the use_cached fallback can still serve it.
func WithStaleRetention(d time.Duration) Option {
	return func(s *MemoryStore) {
		if d >= 0 {
			s.staleRetention = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}
