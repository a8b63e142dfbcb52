// Package enrich derives delay and risk features from a canonical context.
package enrich

import (
	"time"

	"github.com/okian/etaflow/internal/domain/model"
)

// Option applies a configuration option to the Enricher.
type Option func(*Enricher)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Enricher) {
		if now != nil {
			e.now = now
		}
	}
}

// WithRadii overrides the proximity alert radii.
func WithRadii(r Radii) Option {
	return func(e *Enricher) {
		e.radii = r
	}
}

// Enricher computes DerivedFeatures. Every feature is null-safe: a missing
// input branch yields a nil feature.
type Enricher struct {
	now   func() time.Time
	radii Radii
}

// New creates an Enricher.
func New(opts ...Option) *Enricher {
	e := &Enricher{now: time.Now, radii: DefaultRadii}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enrich derives all features from c using a single reading of the clock.
func (e *Enricher) Enrich(c model.CanonicalContext) model.Enriched {
	now := e.now()

	f := model.DerivedFeatures{
		WeatherImpact:      WeatherImpact(c.Weather),
		TrafficImpact:      TrafficImpact(c.Traffic),
		HistoricalPatterns: HistoricalPatterns(c.Historical, now),
	}
	f.CombinedRiskFactors = CombinedRisk(f, c.SpecialEvents)

	return model.Enriched{
		Context:         c,
		Features:        f,
		AdjustedETA:     AdjustETA(c.Route, f, now),
		ProximityAlerts: ProximityAlerts(c, e.radii),
	}
}
