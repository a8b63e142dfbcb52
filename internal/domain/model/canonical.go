package model

import "time"

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// CanonicalContext is the fixed-schema record produced by the transform
// stage. A nil branch means no usable input reached the stage.
type CanonicalContext struct {
	Location      *Location      `json:"location,omitempty"`
	Route         *Route         `json:"route,omitempty"`
	Weather       *Weather       `json:"weather,omitempty"`
	Traffic       *Traffic       `json:"traffic,omitempty"`
	Historical    *Historical    `json:"historical,omitempty"`
	SpecialEvents *SpecialEvents `json:"specialEvents,omitempty"`
}

// Location is the vehicle's last reported position.
type Location struct {
	Coordinates
	SpeedMph       float64   `json:"speedMph"`
	Heading        float64   `json:"heading"`
	AccuracyMiles  float64   `json:"accuracyMiles"`
	ReportedAt     time.Time `json:"reportedAt"`
	IsStale        bool      `json:"isStale,omitempty"`
	IsFromFallback bool      `json:"isFromFallback,omitempty"`
}

// TrafficLevel is the coarse congestion label attached to a route.
type TrafficLevel string

const (
	TrafficUnknown  TrafficLevel = "unknown"
	TrafficLow      TrafficLevel = "low"
	TrafficModerate TrafficLevel = "moderate"
	TrafficHeavy    TrafficLevel = "heavy"
	TrafficSevere   TrafficLevel = "severe"
)

// Route is the resolved driving route to the delivery stop.
type Route struct {
	Provider SourceType `json:"provider"`
	Summary  string     `json:"summary,omitempty"`
	// DistanceMiles is the remaining driving distance.
	DistanceMiles float64 `json:"distanceMiles"`
	// DurationSeconds is the typical duration without live traffic.
	DurationSeconds float64 `json:"durationSeconds"`
	// TrafficDurationSeconds is the duration under current traffic, 0 when unknown.
	TrafficDurationSeconds float64      `json:"trafficDurationSeconds,omitempty"`
	TrafficLevel           TrafficLevel `json:"trafficLevel"`
}

// Weather is the current condition along the route.
type Weather struct {
	Condition           string  `json:"condition"`
	Description         string  `json:"description,omitempty"`
	TemperatureF        float64 `json:"temperatureF"`
	VisibilityMiles     float64 `json:"visibilityMiles"`
	PrecipitationInches float64 `json:"precipitationInches"`
	WindSpeedMph        float64 `json:"windSpeedMph"`
	IsHistoricalAverage bool    `json:"isHistoricalAverage,omitempty"`
}

// Incident is a reported traffic incident.
type Incident struct {
	ID          string       `json:"id,omitempty"`
	Type        string       `json:"type"`
	Severity    string       `json:"severity"`
	Description string       `json:"description,omitempty"`
	Location    *Coordinates `json:"location,omitempty"`
}

// Traffic is the congestion picture along the route.
type Traffic struct {
	CongestionLevel     float64    `json:"congestionLevel"`
	Condition           string     `json:"condition"`
	Incidents           []Incident `json:"incidents,omitempty"`
	IsHistoricalAverage bool       `json:"isHistoricalAverage,omitempty"`
}

// Historical carries delivery statistics for the lane.
type Historical struct {
	AverageDeliveryMinutes float64            `json:"averageDeliveryMinutes"`
	OnTimeRate             float64            `json:"onTimeRate"`
	SampleSize             int                `json:"sampleSize"`
	DayOfWeekFactors       map[string]float64 `json:"dayOfWeekFactors,omitempty"`
	TimeOfDayFactors       map[string]float64 `json:"timeOfDayFactors,omitempty"`
	SeasonalFactors        map[string]float64 `json:"seasonalFactors,omitempty"`
	IsHistoricalAverage    bool               `json:"isHistoricalAverage,omitempty"`
}

// Event is a scheduled public event near the route.
type Event struct {
	Name               string       `json:"name"`
	Type               string       `json:"type,omitempty"`
	Impact             string       `json:"impact"`
	ExpectedAttendance int          `json:"expectedAttendance,omitempty"`
	StartsAt           *time.Time   `json:"startsAt,omitempty"`
	EndsAt             *time.Time   `json:"endsAt,omitempty"`
	Location           *Coordinates `json:"location,omitempty"`
}

// RoadClosure is an announced closure of a road segment.
type RoadClosure struct {
	Road     string       `json:"road"`
	Reason   string       `json:"reason,omitempty"`
	Severity string       `json:"severity"`
	Until    *time.Time   `json:"until,omitempty"`
	Location *Coordinates `json:"location,omitempty"`
}

// SpecialEvents groups events and road closures.
type SpecialEvents struct {
	Events       []Event       `json:"events,omitempty"`
	RoadClosures []RoadClosure `json:"roadClosures,omitempty"`
}
