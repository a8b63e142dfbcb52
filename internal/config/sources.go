package config

import (
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/okian/etaflow/internal/domain/model"
	"github.com/okian/etaflow/internal/domain/source"
)

// SourceOptions turns the per-source overrides into registry options.
func (c *Config) SourceOptions() ([]source.Option, error) {
	known := model.AllSourceTypes()

	names := make([]string, 0, len(c.Sources))
	for name := range c.Sources {
		names = append(names, name)
	}
	sort.Strings(names)

	opts := make([]source.Option, 0, len(names))
	for _, name := range names {
		t := model.SourceType(name)
		if !slices.Contains(known, t) {
			return nil, fmt.Errorf("%w: unknown source %q", ErrInvalidConfig, name)
		}
		sc := c.Sources[name]
		opts = append(opts, source.WithOverride(t, func(cfg *source.Config) {
			if sc.TimeoutMS > 0 {
				cfg.Timeout = time.Duration(sc.TimeoutMS) * time.Millisecond
			}
			if sc.RetryCount != nil {
				cfg.RetryCount = *sc.RetryCount
			}
			if sc.CacheExpiryS > 0 {
				cfg.CacheExpiry = time.Duration(sc.CacheExpiryS) * time.Second
			}
			if sc.Fallback != "" {
				cfg.Fallback = source.FallbackStrategy(sc.Fallback)
			}
		}))
	}
	return opts, nil
}

// SourceURLs lists the sources configured with an HTTP endpoint.
func (c *Config) SourceURLs() map[model.SourceType]string {
	out := make(map[model.SourceType]string)
	for name, sc := range c.Sources {
		if sc.URL != "" {
			out[model.SourceType(name)] = sc.URL
		}
	}
	return out
}
