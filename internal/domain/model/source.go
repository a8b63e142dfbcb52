// Package model contains domain models passed between pipeline stages.
package model

import (
	"sort"
	"time"
)

// SourceType names one kind of upstream data source.
type SourceType string

// The seven source types every pipeline run collects.
const (
	SourceVehicleLocation  SourceType = "vehicle_location"
	SourcePrimaryRouting   SourceType = "primary_routing"
	SourceSecondaryRouting SourceType = "secondary_routing"
	SourceWeather          SourceType = "weather"
	SourceTrafficIncidents SourceType = "traffic_incidents"
	SourceHistorical       SourceType = "historical_deliveries"
	SourceSpecialEvents    SourceType = "special_events"
)

// AllSourceTypes lists the registered source types in a stable order.
func AllSourceTypes() []SourceType {
	return []SourceType{
		SourceVehicleLocation,
		SourcePrimaryRouting,
		SourceSecondaryRouting,
		SourceWeather,
		SourceTrafficIncidents,
		SourceHistorical,
		SourceSpecialEvents,
	}
}

// RawData is a provider payload as decoded JSON: maps, slices, strings,
// float64, bool and nil. Stages treat it as read-only once collected.
type RawData map[string]any

// HistoricalAverageKey marks a payload that was served from a configured
// baseline instead of a live provider.
const HistoricalAverageKey = "is_historical_average"

// Origin records how a source's data was obtained.
type Origin string

const (
	OriginFresh             Origin = "fresh"
	OriginCache             Origin = "cache"
	OriginStaleCache        Origin = "stale_cache"
	OriginAlternative       Origin = "alternative_source"
	OriginHistoricalAverage Origin = "historical_average"
)

// Trust is the confidence weight an origin contributes to data quality.
func (o Origin) Trust() float64 {
	switch o {
	case OriginFresh:
		return 1.0
	case OriginCache:
		return 0.9
	case OriginAlternative:
		return 0.8
	case OriginStaleCache:
		return 0.6
	case OriginHistoricalAverage:
		return 0.4
	default:
		return 0
	}
}

// SourceData is one slot of collected data. Provider differs from Slot when
// a fallback substituted another source's payload.
type SourceData struct {
	Slot      SourceType
	Provider  SourceType
	Data      RawData
	Origin    Origin
	FetchedAt time.Time
	TTL       time.Duration
}

// FetchContext carries the identifiers a provider adapter needs.
type FetchContext struct {
	RunID       string
	DriverID    string
	LoadID      string
	RequestedAt time.Time
}

// SourceSet is a deduplicated set of source types.
type SourceSet map[SourceType]struct{}

// Add inserts t.
func (s SourceSet) Add(t SourceType) { s[t] = struct{}{} }

// Has reports whether t is in the set.
func (s SourceSet) Has(t SourceType) bool {
	_, ok := s[t]
	return ok
}

// Sorted returns the members in lexical order.
func (s SourceSet) Sorted() []SourceType {
	out := make([]SourceType, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
