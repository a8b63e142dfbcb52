package enrich

import (
	"fmt"
	"strings"

	"github.com/okian/etaflow/internal/domain/model"
)

// Radii holds the alert distance per hazard kind, in miles. A hazard is
// reported only when strictly closer than its radius.
type Radii struct {
	Event    float64
	Closure  float64
	Incident float64
}

// DefaultRadii are the standard alert radii.
var DefaultRadii = Radii{Event: 10, Closure: 5, Incident: 5}

// severityOf maps the free-form labels providers use onto the shared scale.
func severityOf(label string) model.Severity {
	switch strings.ToLower(label) {
	case "none", "":
		return model.SeverityNone
	case "low", "minor", "light":
		return model.SeverityLow
	case "moderate", "medium":
		return model.SeverityModerate
	case "high", "major", "heavy":
		return model.SeverityHigh
	case "severe", "critical", "extreme":
		return model.SeveritySevere
	}
	return model.SeverityModerate
}

// ProximityAlerts lists events, closures and incidents near the vehicle in
// that order. It is nil without a location.
func ProximityAlerts(c model.CanonicalContext, radii Radii) []model.ProximityAlert {
	if c.Location == nil {
		return nil
	}
	here := c.Location.Coordinates

	var alerts []model.ProximityAlert
	near := func(at *model.Coordinates, radius float64) (float64, bool) {
		if at == nil {
			return 0, false
		}
		d := Haversine(here, *at)
		return d, d < radius
	}

	if se := c.SpecialEvents; se != nil {
		for _, ev := range se.Events {
			d, ok := near(ev.Location, radii.Event)
			if !ok {
				continue
			}
			alerts = append(alerts, model.ProximityAlert{
				Type:          model.AlertSpecialEvent,
				Severity:      severityOf(ev.Impact),
				Impact:        ev.Impact,
				DistanceMiles: round1(d),
				Description:   fmt.Sprintf("%s %.1f miles from vehicle", ev.Name, d),
			})
		}
		for _, rc := range se.RoadClosures {
			d, ok := near(rc.Location, radii.Closure)
			if !ok {
				continue
			}
			desc := fmt.Sprintf("%s closed %.1f miles from vehicle", rc.Road, d)
			if rc.Reason != "" {
				desc += " (" + rc.Reason + ")"
			}
			alerts = append(alerts, model.ProximityAlert{
				Type:          model.AlertRoadClosure,
				Severity:      severityOf(rc.Severity),
				Impact:        "road_closed",
				DistanceMiles: round1(d),
				Description:   desc,
			})
		}
	}

	if tr := c.Traffic; tr != nil {
		for _, inc := range tr.Incidents {
			d, ok := near(inc.Location, radii.Incident)
			if !ok {
				continue
			}
			kind := inc.Type
			if kind == "" {
				kind = "incident"
			}
			alerts = append(alerts, model.ProximityAlert{
				Type:          model.AlertTrafficIncident,
				Severity:      severityOf(inc.Severity),
				Impact:        kind,
				DistanceMiles: round1(d),
				Description:   fmt.Sprintf("%s %.1f miles from vehicle", kind, d),
			})
		}
	}
	return alerts
}
