// Package config defines process configuration and its loading hooks.
//
// Conventions:
// - New returns a Config holding every default.
// - Load layers a YAML file and ETA_ environment variables over New.
// - Errors wrap ErrLoadConfig or ErrInvalidConfig.
package config

import (
	"time"
)

// SourceConfig overrides the built-in budget of one source. Zero fields keep
// the built-in value.
type SourceConfig struct {
	TimeoutMS    int    `koanf:"timeout_ms" validate:"gte=0"`
	RetryCount   *int   `koanf:"retry_count" validate:"omitempty,gte=0"`
	CacheExpiryS int    `koanf:"cache_expiry_s" validate:"gte=0"`
	Fallback     string `koanf:"fallback" validate:"omitempty,oneof=use_cached use_alternative_source use_historical_average skip_source"`
	// URL switches the source from the simulator to a JSON-over-HTTP provider.
	URL string `koanf:"url" validate:"omitempty,url"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`

	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format" validate:"required,oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// CollectorMaxConcurrency bounds parallel fetches per run; zero is
	// unbounded. A bound below the seven source types would queue one source
	// behind another's timeout, so such values are rejected.
	CollectorMaxConcurrency int `koanf:"collector_max_concurrency" validate:"omitempty,gte=7"`

	// RetryBackoffMS is the first retry delay; it doubles on every attempt.
	RetryBackoffMS int `koanf:"retry_backoff_ms" validate:"gte=0"`

	// CacheShardCount is the number of independently locked cache shards.
	CacheShardCount int `koanf:"cache_shard_count" validate:"gte=1"`

	// CacheStaleRetentionS keeps expired entries around for use_cached.
	CacheStaleRetentionS int `koanf:"cache_stale_retention_s" validate:"gte=0"`

	// CacheSweepIntervalS is how often dead entries are dropped; zero disables.
	CacheSweepIntervalS int `koanf:"cache_sweep_interval_s" validate:"gte=0"`

	// HistoricalDSN points the historical source at Postgres when set.
	HistoricalDSN string `koanf:"historical_dsn"`

	// Sources holds per-source overrides keyed by source type.
	Sources map[string]SourceConfig `koanf:"sources" validate:"dive"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":9080",
		RetryBackoffMS:       200,
		CacheShardCount:      16,
		CacheStaleRetentionS: int((24 * time.Hour).Seconds()),
		CacheSweepIntervalS:  int((10 * time.Minute).Seconds()),
		Sources:              map[string]SourceConfig{},
	}
}

// RetryBackoff is RetryBackoffMS as a duration.
func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffMS) * time.Millisecond
}

// StaleRetention is CacheStaleRetentionS as a duration.
func (c *Config) StaleRetention() time.Duration {
	return time.Duration(c.CacheStaleRetentionS) * time.Second
}

// SweepInterval is CacheSweepIntervalS as a duration.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.CacheSweepIntervalS) * time.Second
}
