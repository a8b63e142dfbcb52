package enrich

import (
	"math"
	"strings"
	"time"

	"github.com/okian/etaflow/internal/domain/model"
)

// Wind thresholds in mph.
const (
	windStrong = 25.0
	windBreezy = 15.0
)

// WeatherImpact scores a weather branch. Unknown conditions have no impact.
func WeatherImpact(w *model.Weather) *model.WeatherImpact {
	if w == nil {
		return nil
	}

	sev, delay := model.SeverityNone, 0.0
	switch strings.ToLower(w.Condition) {
	case "fog", "mist", "haze", "smoke", "dust":
		if w.VisibilityMiles < 1 {
			sev, delay = model.SeverityModerate, 15
		} else {
			sev, delay = model.SeverityLow, 5
		}
	case "rain", "drizzle":
		switch {
		case w.PrecipitationInches < 0.1:
			sev, delay = model.SeverityLow, 5
		case w.PrecipitationInches < 0.5:
			sev, delay = model.SeverityModerate, 15
		default:
			sev, delay = model.SeverityHigh, 30
		}
	case "snow":
		sev, delay = model.SeverityHigh, 45
	case "thunderstorm":
		sev, delay = model.SeveritySevere, 60
	}

	switch {
	case w.WindSpeedMph > windStrong:
		sev = sev.Escalate()
		delay += 15
	case w.WindSpeedMph > windBreezy:
		delay += 5
	}

	return &model.WeatherImpact{Severity: sev, EstimatedDelayMinutes: delay}
}

// Per-incident delay in minutes by reported severity.
var incidentDelay = map[string]float64{
	"minor":    5,
	"moderate": 15,
	"major":    30,
	"severe":   60,
}

// TrafficImpact scores a traffic branch: six minutes per congestion level
// plus a fixed increment per incident.
func TrafficImpact(t *model.Traffic) *model.TrafficImpact {
	if t == nil {
		return nil
	}
	delay := t.CongestionLevel * 6
	for _, inc := range t.Incidents {
		d, ok := incidentDelay[strings.ToLower(inc.Severity)]
		if !ok {
			d = incidentDelay["minor"]
		}
		delay += d
	}
	return &model.TrafficImpact{
		Severity:              trafficSeverity(t.Condition, t.CongestionLevel),
		EstimatedDelayMinutes: delay,
		IncidentCount:         len(t.Incidents),
	}
}

func trafficSeverity(condition string, level float64) model.Severity {
	switch strings.ToLower(condition) {
	case "clear", "free_flow", "none":
		return model.SeverityNone
	case "light", "low":
		return model.SeverityLow
	case "moderate":
		return model.SeverityModerate
	case "heavy":
		return model.SeverityHigh
	case "severe", "standstill":
		return model.SeveritySevere
	}
	switch {
	case level < 2:
		return model.SeverityNone
	case level < 4:
		return model.SeverityLow
	case level < 6:
		return model.SeverityModerate
	case level < 8:
		return model.SeverityHigh
	default:
		return model.SeveritySevere
	}
}

// TimeOfDay names the hour band of t.
func TimeOfDay(t time.Time) string {
	h := t.Hour()
	switch {
	case h >= 12 && h < 17:
		return "afternoon"
	case h >= 17 && h < 21:
		return "evening"
	case h >= 21 || h < 6:
		return "night"
	default:
		return "morning"
	}
}

// Season names the month band of t, with months counted from zero.
func Season(t time.Time) string {
	m := int(t.Month()) - 1
	switch {
	case m >= 2 && m < 5:
		return "spring"
	case m >= 5 && m < 8:
		return "summer"
	case m >= 8 && m < 11:
		return "fall"
	default:
		return "winter"
	}
}

func factor(factors map[string]float64, key string) float64 {
	if f, ok := factors[key]; ok && f > 0 {
		return f
	}
	return 1.0
}

// HistoricalPatterns picks the calendar factors that apply at now. Missing
// factors count as 1.
func HistoricalPatterns(h *model.Historical, now time.Time) *model.HistoricalPatterns {
	if h == nil {
		return nil
	}
	tod, season := TimeOfDay(now), Season(now)
	p := &model.HistoricalPatterns{
		DayOfWeekFactor: factor(h.DayOfWeekFactors, strings.ToLower(now.Weekday().String())),
		TimeOfDayFactor: factor(h.TimeOfDayFactors, tod),
		SeasonalFactor:  factor(h.SeasonalFactors, season),
		TimeOfDay:       tod,
		Season:          season,
	}
	p.CombinedFactor = p.DayOfWeekFactor * p.TimeOfDayFactor * p.SeasonalFactor
	p.EstimatedDelayMinutes = math.Round((p.CombinedFactor - 1) * h.AverageDeliveryMinutes)
	return p
}

const specialEventRisk = 0.5

func calendarRisk(f float64) float64 {
	return math.Max(0, (f-1)*2)
}

// CombinedRisk folds the derived features into a bounded total. It is nil
// when no input contributed.
func CombinedRisk(f model.DerivedFeatures, events *model.SpecialEvents) *model.CombinedRiskFactors {
	hasEvents := events != nil && len(events.Events) > 0
	if f.WeatherImpact == nil && f.TrafficImpact == nil && f.HistoricalPatterns == nil && !hasEvents {
		return nil
	}

	var b model.RiskBreakdown
	if f.WeatherImpact != nil {
		b.Weather = f.WeatherImpact.Severity.Risk()
	}
	if f.TrafficImpact != nil {
		b.Traffic = f.TrafficImpact.Severity.Risk()
	}
	if hasEvents {
		b.SpecialEvents = specialEventRisk
	}
	if p := f.HistoricalPatterns; p != nil {
		b.DayOfWeek = calendarRisk(p.DayOfWeekFactor)
		b.TimeOfDay = calendarRisk(p.TimeOfDayFactor)
		b.Seasonal = calendarRisk(p.SeasonalFactor)
	}

	sum := b.Weather + b.Traffic + b.SpecialEvents + b.DayOfWeek + b.TimeOfDay + b.Seasonal
	return &model.CombinedRiskFactors{Breakdown: b, Total: math.Min(1, sum/5)}
}

// AdjustETA adds weather and traffic delay to the route's base duration and
// scales the sum by the historical factor. It is nil without a route.
func AdjustETA(r *model.Route, f model.DerivedFeatures, now time.Time) *model.AdjustedETA {
	if r == nil {
		return nil
	}
	adjusted := r.DurationSeconds
	if f.WeatherImpact != nil {
		adjusted += f.WeatherImpact.EstimatedDelayMinutes * 60
	}
	if f.TrafficImpact != nil {
		adjusted += f.TrafficImpact.EstimatedDelayMinutes * 60
	}
	if f.HistoricalPatterns != nil {
		adjusted *= f.HistoricalPatterns.CombinedFactor
	}
	return &model.AdjustedETA{
		BaseDurationSeconds:     r.DurationSeconds,
		AdjustedDurationSeconds: adjusted,
		EstimatedArrival:        now.Add(time.Duration(adjusted * float64(time.Second))),
	}
}
