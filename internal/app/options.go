package service

import (
	"time"

	"github.com/okian/etaflow/internal/adapters/collector"
	"github.com/okian/etaflow/internal/domain/present"
	"github.com/okian/etaflow/pkg/logger"
)

// Option applies a configuration option to the Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock replaces time.Now for every default stage.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithCollectorOptions configures the default collector.
func WithCollectorOptions(opts ...collector.Option) Option {
	return func(o *Orchestrator) {
		o.collectorOpts = append(o.collectorOpts, opts...)
	}
}

// WithCollector replaces the collect stage.
func WithCollector(c Collector) Option {
	return func(o *Orchestrator) { o.collector = c }
}

// WithValidator replaces the validate stage.
func WithValidator(v Validator) Option {
	return func(o *Orchestrator) { o.validator = v }
}

// WithTransformer replaces the transform stage.
func WithTransformer(t Transformer) Option {
	return func(o *Orchestrator) { o.transformer = t }
}

// WithEnricher replaces the enrich stage.
func WithEnricher(e Enricher) Option {
	return func(o *Orchestrator) { o.enricher = e }
}

// WithPresenter replaces the present stage.
func WithPresenter(p Presenter) Option {
	return func(o *Orchestrator) { o.presenter = p }
}

// WithSummaryLookup sets the load and vehicle directory lookup.
func WithSummaryLookup(l present.SummaryLookup) Option {
	return func(o *Orchestrator) { o.summaries = l }
}

// WithStageHandler replaces the error handler of one stage.
func WithStageHandler(stage Stage, h StageHandler) Option {
	return func(o *Orchestrator) {
		if h != nil {
			o.handlers[stage] = h
		}
	}
}

// WithSweepInterval sets how often Start sweeps dead cache entries. Zero
// disables sweeping.
func WithSweepInterval(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d >= 0 {
			o.sweepInterval = d
		}
	}
}
