// Package source holds the static catalog of data sources: their fetch
// budgets, fallback policies, validation rules and provider adapters.
package source

import (
	"context"
	"time"

	"github.com/okian/etaflow/internal/domain/model"
)

// FallbackStrategy is the policy applied when a source cannot be refreshed.
type FallbackStrategy string

const (
	UseCached            FallbackStrategy = "use_cached"
	UseAlternativeSource FallbackStrategy = "use_alternative_source"
	UseHistoricalAverage FallbackStrategy = "use_historical_average"
	SkipSource           FallbackStrategy = "skip_source"
)

// Valid reports whether s is a known strategy.
func (s FallbackStrategy) Valid() bool {
	switch s {
	case UseCached, UseAlternativeSource, UseHistoricalAverage, SkipSource:
		return true
	}
	return false
}

// RuleKind selects how a ValidationRule is evaluated.
type RuleKind string

const (
	RuleRequired RuleKind = "required"
	RuleMin      RuleKind = "min"
	RuleMax      RuleKind = "max"
	RuleRange    RuleKind = "range"
	RuleFormat   RuleKind = "format"
	RuleCustom   RuleKind = "custom"
)

// ValidationRule is a declarative check on one field of a raw payload.
// Field is a dot path; numeric segments index into lists ("routes.0.duration").
type ValidationRule struct {
	Field   string
	Kind    RuleKind
	Min     float64
	Max     float64
	Pattern string
	// Predicate backs RuleCustom. It receives the resolved value, nil when absent.
	Predicate func(value any) bool
	Message   string
	// Warn records a failure as a warning; the source is kept.
	Warn bool
}

// Fetcher is the uniform capability every provider adapter implements.
type Fetcher interface {
	Fetch(ctx context.Context, fc model.FetchContext) (model.RawData, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, fc model.FetchContext) (model.RawData, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, fc model.FetchContext) (model.RawData, error) {
	return f(ctx, fc)
}

// Config describes one source type. It is immutable once the registry is built.
type Config struct {
	Type        model.SourceType
	Frequency   time.Duration
	Timeout     time.Duration
	RetryCount  int
	CacheExpiry time.Duration
	Fallback    FallbackStrategy
	// Alternative is the substitute for UseAlternativeSource.
	Alternative model.SourceType
	// Baseline is served by UseHistoricalAverage; nil means nothing to serve.
	Baseline model.RawData
	Rules    []ValidationRule
	// Transform optionally reshapes a payload right after a successful fetch.
	Transform func(model.RawData) model.RawData
}
