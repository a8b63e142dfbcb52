package source

import (
	"time"

	"github.com/okian/etaflow/internal/domain/model"
)

const rfc3339Pattern = `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})$`

func isListOrAbsent(v any) bool {
	if v == nil {
		return true
	}
	_, ok := v.([]any)
	return ok
}

// DefaultConfigs returns the built-in catalog, one entry per source type.
func DefaultConfigs() []Config {
	return []Config{
		{
			Type:        model.SourceVehicleLocation,
			Frequency:   30 * time.Second,
			Timeout:     5 * time.Second,
			RetryCount:  2,
			CacheExpiry: time.Minute,
			Fallback:    UseCached,
			Rules: []ValidationRule{
				{Field: "latitude", Kind: RuleRequired, Message: "latitude is required"},
				{Field: "longitude", Kind: RuleRequired, Message: "longitude is required"},
				{Field: "latitude", Kind: RuleRange, Min: -90, Max: 90, Message: "latitude out of range"},
				{Field: "longitude", Kind: RuleRange, Min: -180, Max: 180, Message: "longitude out of range"},
				{Field: "speed", Kind: RuleMin, Min: 0, Message: "speed must not be negative", Warn: true},
				{Field: "timestamp", Kind: RuleFormat, Pattern: rfc3339Pattern, Message: "timestamp must be RFC3339", Warn: true},
			},
		},
		{
			Type:        model.SourcePrimaryRouting,
			Frequency:   5 * time.Minute,
			Timeout:     10 * time.Second,
			RetryCount:  3,
			CacheExpiry: 5 * time.Minute,
			Fallback:    UseAlternativeSource,
			Alternative: model.SourceSecondaryRouting,
			Rules: []ValidationRule{
				{Field: "routes.0.legs.0.distance.value", Kind: RuleRequired, Message: "route distance is required"},
				{Field: "routes.0.legs.0.duration.value", Kind: RuleRequired, Message: "route duration is required"},
				{Field: "routes.0.legs.0.duration.value", Kind: RuleMin, Min: 0, Message: "route duration must not be negative"},
			},
		},
		{
			Type:        model.SourceSecondaryRouting,
			Frequency:   5 * time.Minute,
			Timeout:     10 * time.Second,
			RetryCount:  2,
			CacheExpiry: 5 * time.Minute,
			Fallback:    UseCached,
			Rules: []ValidationRule{
				{Field: "routes.0.distance", Kind: RuleRequired, Message: "route distance is required"},
				{Field: "routes.0.duration", Kind: RuleRequired, Message: "route duration is required"},
				{Field: "routes.0.duration", Kind: RuleMin, Min: 0, Message: "route duration must not be negative"},
				{Field: "routes.0.duration_typical", Kind: RuleMin, Min: 1, Message: "typical duration should be positive", Warn: true},
			},
		},
		{
			Type:        model.SourceWeather,
			Frequency:   15 * time.Minute,
			Timeout:     8 * time.Second,
			RetryCount:  2,
			CacheExpiry: 30 * time.Minute,
			Fallback:    UseCached,
			Rules: []ValidationRule{
				{Field: "weather.0.main", Kind: RuleRequired, Message: "weather condition is required"},
				{Field: "visibility", Kind: RuleMin, Min: 0, Message: "visibility must not be negative"},
				{Field: "main.temp", Kind: RuleRange, Min: -80, Max: 140, Message: "temperature outside plausible range", Warn: true},
				{Field: "wind.speed", Kind: RuleMin, Min: 0, Message: "wind speed must not be negative"},
			},
			Baseline: model.RawData{
				"weather":    []any{map[string]any{"main": "Clear", "description": "seasonal average"}},
				"main":       map[string]any{"temp": 60.0},
				"visibility": 16093.0,
				"wind":       map[string]any{"speed": 8.0},
			},
		},
		{
			Type:        model.SourceTrafficIncidents,
			Frequency:   5 * time.Minute,
			Timeout:     8 * time.Second,
			RetryCount:  2,
			CacheExpiry: 10 * time.Minute,
			Fallback:    UseHistoricalAverage,
			Rules: []ValidationRule{
				{Field: "congestion_level", Kind: RuleRequired, Message: "congestion level is required"},
				{Field: "congestion_level", Kind: RuleRange, Min: 0, Max: 10, Message: "congestion level must be within 0-10"},
				{Field: "incidents", Kind: RuleCustom, Predicate: isListOrAbsent, Message: "incidents must be a list"},
			},
			Baseline: model.RawData{
				"congestion_level": 3.0,
				"condition":        "light",
				"incidents":        []any{},
			},
		},
		{
			Type:        model.SourceHistorical,
			Frequency:   24 * time.Hour,
			Timeout:     15 * time.Second,
			RetryCount:  1,
			CacheExpiry: 24 * time.Hour,
			Fallback:    UseHistoricalAverage,
			Rules: []ValidationRule{
				{Field: "average_delivery_minutes", Kind: RuleRequired, Message: "average delivery time is required"},
				{Field: "average_delivery_minutes", Kind: RuleMin, Min: 0, Message: "average delivery time must not be negative"},
				{Field: "on_time_rate", Kind: RuleRange, Min: 0, Max: 1, Message: "on-time rate must be within 0-1", Warn: true},
			},
			Baseline: model.RawData{
				"average_delivery_minutes": 180.0,
				"on_time_rate":             0.85,
				"sample_size":              0.0,
				"day_of_week_factors":      map[string]any{},
				"time_of_day_factors":      map[string]any{},
				"seasonal_factors":         map[string]any{},
			},
		},
		{
			Type:        model.SourceSpecialEvents,
			Frequency:   time.Hour,
			Timeout:     10 * time.Second,
			RetryCount:  2,
			CacheExpiry: 2 * time.Hour,
			Fallback:    SkipSource,
			Rules: []ValidationRule{
				{Field: "events", Kind: RuleCustom, Predicate: isListOrAbsent, Message: "events must be a list"},
				{Field: "road_closures", Kind: RuleCustom, Predicate: isListOrAbsent, Message: "road closures must be a list"},
			},
		},
	}
}
