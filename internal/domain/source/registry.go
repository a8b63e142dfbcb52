package source

import (
	"fmt"

	"github.com/okian/etaflow/internal/domain/model"
)

// Option applies a configuration option while the registry is being built.
type Option func(*builder)

type builder struct {
	configs  map[model.SourceType]Config
	fetchers map[model.SourceType]Fetcher
	order    []model.SourceType
	err      error
}

// WithConfig replaces the whole configuration of cfg.Type, registering the
// type if it is not part of the defaults.
func WithConfig(cfg Config) Option {
	return func(b *builder) {
		if _, ok := b.configs[cfg.Type]; !ok {
			b.order = append(b.order, cfg.Type)
		}
		b.configs[cfg.Type] = cfg
	}
}

// WithOverride adjusts an already registered type in place.
func WithOverride(t model.SourceType, fn func(*Config)) Option {
	return func(b *builder) {
		cfg, ok := b.configs[t]
		if !ok {
			b.err = &ConfigurationError{Type: t, Reason: "override for unregistered source"}
			return
		}
		fn(&cfg)
		cfg.Type = t
		b.configs[t] = cfg
	}
}

// WithFetcher registers the provider adapter for t.
func WithFetcher(t model.SourceType, f Fetcher) Option {
	return func(b *builder) {
		if f != nil {
			b.fetchers[t] = f
		}
	}
}

// Registry is the read-only catalog of source configurations and adapters.
// It is safe for concurrent use because nothing mutates it after NewRegistry.
type Registry struct {
	configs  map[model.SourceType]Config
	fetchers map[model.SourceType]Fetcher
	order    []model.SourceType
}

// NewRegistry builds a registry from DefaultConfigs and opts.
func NewRegistry(opts ...Option) (*Registry, error) {
	b := &builder{
		configs:  make(map[model.SourceType]Config),
		fetchers: make(map[model.SourceType]Fetcher),
	}
	for _, cfg := range DefaultConfigs() {
		b.configs[cfg.Type] = cfg
		b.order = append(b.order, cfg.Type)
	}

	for _, opt := range opts {
		opt(b)
		if b.err != nil {
			return nil, b.err
		}
	}

	for _, t := range b.order {
		if err := validateConfig(b.configs[t], b.configs); err != nil {
			return nil, err
		}
	}
	for t := range b.fetchers {
		if _, ok := b.configs[t]; !ok {
			return nil, &ConfigurationError{Type: t, Reason: "fetcher for unregistered source"}
		}
	}

	return &Registry{configs: b.configs, fetchers: b.fetchers, order: b.order}, nil
}

func validateConfig(cfg Config, all map[model.SourceType]Config) error {
	switch {
	case cfg.Type == "":
		return &ConfigurationError{Type: cfg.Type, Reason: "empty source type"}
	case cfg.Timeout <= 0:
		return &ConfigurationError{Type: cfg.Type, Reason: "timeout must be positive"}
	case cfg.RetryCount < 0:
		return &ConfigurationError{Type: cfg.Type, Reason: "retry count must not be negative"}
	case cfg.CacheExpiry < 0:
		return &ConfigurationError{Type: cfg.Type, Reason: "cache expiry must not be negative"}
	case !cfg.Fallback.Valid():
		return &ConfigurationError{Type: cfg.Type, Reason: fmt.Sprintf("unknown fallback strategy %q", cfg.Fallback)}
	}
	for i, r := range cfg.Rules {
		if r.Kind == RuleCustom && r.Predicate == nil {
			return &ConfigurationError{Type: cfg.Type, Reason: fmt.Sprintf("rule %d: custom rule without predicate", i)}
		}
	}
	if cfg.Fallback == UseAlternativeSource {
		if cfg.Alternative == "" || cfg.Alternative == cfg.Type {
			return &ConfigurationError{Type: cfg.Type, Reason: "alternative source must name a different source"}
		}
		if _, ok := all[cfg.Alternative]; !ok {
			return &ConfigurationError{Type: cfg.Type, Reason: fmt.Sprintf("alternative source %q is not registered", cfg.Alternative)}
		}
	}
	return nil
}

// Config returns the configuration of t.
func (r *Registry) Config(t model.SourceType) (Config, error) {
	cfg, ok := r.configs[t]
	if !ok {
		return Config{}, &ConfigurationError{Type: t, Reason: "not registered"}
	}
	return cfg, nil
}

// Fetcher returns the provider adapter of t.
func (r *Registry) Fetcher(t model.SourceType) (Fetcher, error) {
	if _, ok := r.configs[t]; !ok {
		return nil, &ConfigurationError{Type: t, Reason: "not registered"}
	}
	f, ok := r.fetchers[t]
	if !ok {
		return nil, fmt.Errorf("%w for %s", ErrNoFetcher, t)
	}
	return f, nil
}

// Types lists registered source types in registration order.
func (r *Registry) Types() []model.SourceType {
	out := make([]model.SourceType, len(r.order))
	copy(out, r.order)
	return out
}

// Len is the number of registered source types.
func (r *Registry) Len() int { return len(r.order) }
