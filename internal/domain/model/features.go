package model

import "time"

// Severity is the shared five-level impact scale.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
	SeveritySevere   Severity = "severe"
)

var severityOrder = []Severity{SeverityNone, SeverityLow, SeverityModerate, SeverityHigh, SeveritySevere}

// Escalate returns the next level up; severe stays severe.
func (s Severity) Escalate() Severity {
	for i, lvl := range severityOrder {
		if lvl == s && i+1 < len(severityOrder) {
			return severityOrder[i+1]
		}
	}
	if s == "" {
		return SeverityLow
	}
	return s
}

// Risk maps a severity onto [0,1].
func (s Severity) Risk() float64 {
	switch s {
	case SeverityLow:
		return 0.2
	case SeverityModerate:
		return 0.5
	case SeverityHigh:
		return 0.8
	case SeveritySevere:
		return 1.0
	default:
		return 0
	}
}

// WeatherImpact summarises weather-induced delay.
type WeatherImpact struct {
	Severity              Severity `json:"severity"`
	EstimatedDelayMinutes float64  `json:"estimatedDelayMinutes"`
}

// TrafficImpact summarises congestion and incident delay.
type TrafficImpact struct {
	Severity              Severity `json:"severity"`
	EstimatedDelayMinutes float64  `json:"estimatedDelayMinutes"`
	IncidentCount         int      `json:"incidentCount"`
}

// HistoricalPatterns are the calendar multipliers applied to the ETA.
type HistoricalPatterns struct {
	DayOfWeekFactor       float64 `json:"dayOfWeekFactor"`
	TimeOfDayFactor       float64 `json:"timeOfDayFactor"`
	SeasonalFactor        float64 `json:"seasonalFactor"`
	CombinedFactor        float64 `json:"combinedFactor"`
	EstimatedDelayMinutes float64 `json:"estimatedDelayMinutes"`
	TimeOfDay             string  `json:"timeOfDay"`
	Season                string  `json:"season"`
}

// RiskBreakdown holds non-negative per-category risk.
type RiskBreakdown struct {
	Weather       float64 `json:"weather"`
	Traffic       float64 `json:"traffic"`
	SpecialEvents float64 `json:"specialEvents"`
	DayOfWeek     float64 `json:"dayOfWeek"`
	TimeOfDay     float64 `json:"timeOfDay"`
	Seasonal      float64 `json:"seasonal"`
}

// CombinedRiskFactors is the risk breakdown and its bounded total.
type CombinedRiskFactors struct {
	Breakdown RiskBreakdown `json:"breakdown"`
	Total     float64       `json:"total"`
}

// DerivedFeatures are the enrichment outputs; each is independently nullable.
type DerivedFeatures struct {
	WeatherImpact       *WeatherImpact       `json:"weatherImpact,omitempty"`
	TrafficImpact       *TrafficImpact       `json:"trafficImpact,omitempty"`
	HistoricalPatterns  *HistoricalPatterns  `json:"historicalPatterns,omitempty"`
	CombinedRiskFactors *CombinedRiskFactors `json:"combinedRiskFactors,omitempty"`
}

// AlertType names what a proximity alert refers to.
type AlertType string

const (
	AlertSpecialEvent    AlertType = "special_event"
	AlertRoadClosure     AlertType = "road_closure"
	AlertTrafficIncident AlertType = "traffic_incident"
)

// ProximityAlert flags a hazard close to the vehicle.
type ProximityAlert struct {
	Type          AlertType `json:"type"`
	Severity      Severity  `json:"severity"`
	Impact        string    `json:"impact"`
	DistanceMiles float64   `json:"distanceMiles"`
	Description   string    `json:"description"`
}

// AdjustedETA is the route duration corrected by derived delays.
type AdjustedETA struct {
	BaseDurationSeconds     float64   `json:"baseDurationSeconds"`
	AdjustedDurationSeconds float64   `json:"adjustedDurationSeconds"`
	EstimatedArrival        time.Time `json:"estimatedArrival"`
}

// Enriched is the enrich stage output.
type Enriched struct {
	Context         CanonicalContext `json:"context"`
	Features        DerivedFeatures  `json:"features"`
	AdjustedETA     *AdjustedETA     `json:"adjustedEta,omitempty"`
	ProximityAlerts []ProximityAlert `json:"proximityAlerts,omitempty"`
}
