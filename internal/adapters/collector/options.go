package collector

import (
	"time"

	"github.com/okian/etaflow/pkg/logger"
)

const defaultBackoff = 200 * time.Millisecond

// Option applies a configuration option to the Collector.
type Option func(*Collector)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Collector) {
		if l != nil {
			c.log = l
		}
	}
}

// WithMaxConcurrency bounds the number of sources fetched at once per
// invocation. Zero or negative means one goroutine per source.
func WithMaxConcurrency(n int) Option {
	return func(c *Collector) {
		c.limit = n
	}
}

// WithBackoff sets the wait before the first retry; it doubles on every
// further retry.
func WithBackoff(d time.Duration) Option {
	return func(c *Collector) {
		if d >= 0 {
			c.backoff = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) {
		if now != nil {
			c.now = now
		}
	}
}
