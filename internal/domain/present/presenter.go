// Package present shapes enriched data into the payload handed to the
// downstream estimation consumer.
package present

import (
	"fmt"

	"github.com/okian/etaflow/internal/domain/model"
)

type section uint16

const (
	secLoad section = 1 << iota
	secVehicle
	secLocation
	secRoute
	secWeather
	secTraffic
	secHistorical
	secSpecialEvents
	secWeatherImpact
	secTrafficImpact
	secHistoricalPatterns
	secRisk
	secAdjustedETA
	secProximityAlerts
)

// Sections each prompt type asks for.
var promptSections = map[PromptType]section{
	PromptETAEstimate: secLoad | secVehicle | secLocation | secRoute | secAdjustedETA |
		secWeatherImpact | secTrafficImpact | secHistoricalPatterns | secProximityAlerts,
	PromptDelayExplanation: secLoad | secRoute | secWeather | secTraffic | secSpecialEvents |
		secWeatherImpact | secTrafficImpact | secHistoricalPatterns | secAdjustedETA | secProximityAlerts,
	PromptRiskAssessment: secLoad | secVehicle | secLocation | secWeather | secTraffic | secSpecialEvents |
		secHistorical | secWeatherImpact | secTrafficImpact | secHistoricalPatterns | secRisk | secProximityAlerts,
}

// Sections each role may never see. Customers get no vehicle details and no
// branch that carries raw coordinates.
var roleHidden = map[UserRole]section{
	RoleDispatcher: 0,
	RoleDriver:     secHistorical,
	RoleCustomer:   secVehicle | secLocation | secTraffic | secSpecialEvents | secHistorical,
}

// Presenter builds payloads. It holds no state.
type Presenter struct{}

// New creates a Presenter.
func New() *Presenter { return &Presenter{} }

// Present shapes e for prompt and role.
func (p *Presenter) Present(e model.Enriched, s Summaries, prompt PromptType, role UserRole) (Payload, error) {
	want, ok := promptSections[prompt]
	if !ok {
		return Payload{}, fmt.Errorf("%w: %q", ErrUnknownPromptType, prompt)
	}
	hidden, ok := roleHidden[role]
	if !ok {
		return Payload{}, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	allowed := want &^ hidden
	has := func(s section) bool { return allowed&s != 0 }

	out := Payload{PromptType: prompt, UserRole: role}
	c, f := e.Context, e.Features

	if has(secLoad) {
		out.Load = s.Load
	}
	if has(secVehicle) {
		out.Vehicle = s.Vehicle
	}
	if has(secLocation) {
		out.Location = c.Location
	}
	if has(secRoute) {
		out.Route = c.Route
	}
	if has(secWeather) {
		out.Weather = c.Weather
	}
	if has(secTraffic) {
		out.Traffic = c.Traffic
	}
	if has(secHistorical) {
		out.Historical = c.Historical
	}
	if has(secSpecialEvents) {
		out.SpecialEvents = c.SpecialEvents
	}
	if has(secWeatherImpact) {
		out.WeatherImpact = f.WeatherImpact
	}
	if has(secTrafficImpact) {
		out.TrafficImpact = f.TrafficImpact
	}
	if has(secHistoricalPatterns) {
		out.HistoricalPatterns = f.HistoricalPatterns
	}
	if has(secRisk) {
		out.Risk = f.CombinedRiskFactors
	}
	if has(secAdjustedETA) {
		out.AdjustedETA = e.AdjustedETA
	}
	if has(secProximityAlerts) && len(e.ProximityAlerts) > 0 {
		out.ProximityAlerts = e.ProximityAlerts
	}

	out.Notes = notes(c)
	return out, nil
}

func notes(c model.CanonicalContext) []string {
	var n []string
	if c.Location != nil && c.Location.IsStale {
		n = append(n, "vehicle location is stale")
	}
	if c.Route == nil {
		n = append(n, "no route available")
	} else if c.Route.Provider == model.SourceSecondaryRouting {
		n = append(n, "route from secondary provider")
	}
	if c.Weather != nil && c.Weather.IsHistoricalAverage {
		n = append(n, "weather is a seasonal baseline")
	}
	if c.Traffic != nil && c.Traffic.IsHistoricalAverage {
		n = append(n, "traffic is a historical baseline")
	}
	if c.Historical != nil && c.Historical.IsHistoricalAverage {
		n = append(n, "delivery statistics are a baseline")
	}
	return n
}
