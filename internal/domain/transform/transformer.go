// Package transform canonicalizes provider payloads into one fixed schema.
// Distances are in miles, speeds in mph, precipitation in inches.
package transform

import (
	"errors"
	"fmt"
	"strings"

	"github.com/okian/etaflow/internal/domain/model"
)

// ErrMalformed is wrapped by every branch that could not be decoded.
var ErrMalformed = errors.New("malformed payload")

// Traffic ratio thresholds of current over typical route duration.
const (
	ratioLow      = 1.10
	ratioModerate = 1.30
	ratioHeavy    = 1.60
)

// Transformer converts validated source data into a CanonicalContext. It
// holds no state and never reads the clock.
type Transformer struct{}

// New creates a Transformer.
func New() *Transformer { return &Transformer{} }

// Transform builds every branch it has usable input for. Branches that fail
// to decode are left nil and their errors are joined into the returned error;
// the partial context is always returned.
func (t *Transformer) Transform(validated map[model.SourceType]model.SourceData) (model.CanonicalContext, error) {
	var (
		ctx  model.CanonicalContext
		errs []error
	)

	if sd, ok := validated[model.SourceVehicleLocation]; ok {
		loc, err := location(sd)
		ctx.Location = loc
		errs = append(errs, err)
	}

	rt, err := resolveRoute(validated)
	ctx.Route = rt
	errs = append(errs, err)

	if sd, ok := validated[model.SourceWeather]; ok {
		ctx.Weather, err = weather(sd)
		errs = append(errs, err)
	}
	if sd, ok := validated[model.SourceTrafficIncidents]; ok {
		ctx.Traffic, err = traffic(sd)
		errs = append(errs, err)
	}
	if sd, ok := validated[model.SourceHistorical]; ok {
		ctx.Historical, err = historical(sd)
		errs = append(errs, err)
	}
	if sd, ok := validated[model.SourceSpecialEvents]; ok {
		ctx.SpecialEvents = specialEvents(sd)
	}

	return ctx, errors.Join(errs...)
}

func malformed(t model.SourceType, what string) error {
	return fmt.Errorf("%s: %w: %s", t, ErrMalformed, what)
}

func location(sd model.SourceData) (*model.Location, error) {
	lat, okLat := num(sd.Data, "latitude")
	lon, okLon := num(sd.Data, "longitude")
	if !okLat || !okLon {
		return nil, malformed(sd.Slot, "coordinates are not numeric")
	}
	loc := &model.Location{
		Coordinates:    model.Coordinates{Lat: lat, Lon: lon},
		SpeedMph:       numOr(sd.Data, "speed", 0),
		Heading:        numOr(sd.Data, "heading", 0),
		AccuracyMiles:  metersToMiles(numOr(sd.Data, "accuracy", 0)),
		IsStale:        sd.Origin == model.OriginStaleCache,
		IsFromFallback: isFallback(sd.Origin),
	}
	if ts := timestamp(sd.Data, "timestamp"); ts != nil {
		loc.ReportedAt = *ts
	}
	return loc, nil
}

func isFallback(o model.Origin) bool {
	return o != model.OriginFresh && o != model.OriginCache
}

// resolveRoute prefers the primary routing slot. The slot's Provider decides
// which payload shape is decoded, so a substituted secondary payload in the
// primary slot is read as a secondary route.
func resolveRoute(validated map[model.SourceType]model.SourceData) (*model.Route, error) {
	var primaryErr error
	if sd, ok := validated[model.SourcePrimaryRouting]; ok {
		rt, err := routeFor(sd)
		if err == nil {
			return rt, nil
		}
		primaryErr = err
	}
	if sd, ok := validated[model.SourceSecondaryRouting]; ok {
		rt, err := routeFor(sd)
		if err == nil {
			return rt, nil
		}
		return nil, errors.Join(primaryErr, err)
	}
	return nil, primaryErr
}

func routeFor(sd model.SourceData) (*model.Route, error) {
	provider := sd.Provider
	if provider == "" {
		provider = sd.Slot
	}
	switch provider {
	case model.SourcePrimaryRouting:
		return primaryRoute(sd.Data)
	case model.SourceSecondaryRouting:
		return secondaryRoute(sd.Data)
	}
	return nil, malformed(sd.Slot, fmt.Sprintf("no route decoder for provider %s", provider))
}

func primaryRoute(data model.RawData) (*model.Route, error) {
	const leg = "routes.0.legs.0."
	dist, okD := num(data, leg+"distance.value")
	dur, okT := num(data, leg+"duration.value")
	if !okD || !okT {
		return nil, malformed(model.SourcePrimaryRouting, "route leg lacks distance or duration")
	}
	rt := &model.Route{
		Provider:        model.SourcePrimaryRouting,
		Summary:         str(data, "routes.0.summary"),
		DistanceMiles:   metersToMiles(dist),
		DurationSeconds: dur,
		TrafficLevel:    model.TrafficUnknown,
	}
	if inTraffic, ok := num(data, leg+"duration_in_traffic.value"); ok {
		rt.TrafficDurationSeconds = inTraffic
		rt.TrafficLevel = trafficLevel(inTraffic, dur)
	}
	return rt, nil
}

func secondaryRoute(data model.RawData) (*model.Route, error) {
	dist, okD := num(data, "routes.0.distance")
	dur, okT := num(data, "routes.0.duration")
	if !okD || !okT {
		return nil, malformed(model.SourceSecondaryRouting, "route lacks distance or duration")
	}
	rt := &model.Route{
		Provider:        model.SourceSecondaryRouting,
		Summary:         str(data, "routes.0.summary"),
		DistanceMiles:   metersToMiles(dist),
		DurationSeconds: dur,
		TrafficLevel:    model.TrafficUnknown,
	}
	if typical, ok := num(data, "routes.0.duration_typical"); ok && typical > 0 {
		rt.DurationSeconds = typical
		rt.TrafficDurationSeconds = dur
		rt.TrafficLevel = trafficLevel(dur, typical)
	}
	return rt, nil
}

// trafficLevel buckets the ratio of current to typical duration.
func trafficLevel(current, typical float64) model.TrafficLevel {
	if typical <= 0 {
		return model.TrafficUnknown
	}
	ratio := current / typical
	switch {
	case ratio < ratioLow:
		return model.TrafficLow
	case ratio < ratioModerate:
		return model.TrafficModerate
	case ratio < ratioHeavy:
		return model.TrafficHeavy
	default:
		return model.TrafficSevere
	}
}

func weather(sd model.SourceData) (*model.Weather, error) {
	cond := str(sd.Data, "weather.0.main")
	if cond == "" {
		return nil, malformed(sd.Slot, "missing condition")
	}
	precip := numOr(sd.Data, "rain.1h", 0) + numOr(sd.Data, "snow.1h", 0)
	return &model.Weather{
		Condition:           strings.ToLower(cond),
		Description:         str(sd.Data, "weather.0.description"),
		TemperatureF:        numOr(sd.Data, "main.temp", 0),
		VisibilityMiles:     metersToMiles(numOr(sd.Data, "visibility", 10*metersPerMile)),
		PrecipitationInches: mmToInches(precip),
		WindSpeedMph:        numOr(sd.Data, "wind.speed", 0),
		IsHistoricalAverage: historicalAverage(sd),
	}, nil
}

func historicalAverage(sd model.SourceData) bool {
	return sd.Origin == model.OriginHistoricalAverage || flag(sd.Data, model.HistoricalAverageKey)
}

// conditionFor labels a 0-10 congestion level when the provider sent no label.
func conditionFor(level float64) string {
	switch {
	case level < 2:
		return "clear"
	case level < 4:
		return "light"
	case level < 6:
		return "moderate"
	case level < 8:
		return "heavy"
	default:
		return "severe"
	}
}

func traffic(sd model.SourceData) (*model.Traffic, error) {
	level, ok := num(sd.Data, "congestion_level")
	if !ok {
		return nil, malformed(sd.Slot, "congestion level is not numeric")
	}
	tr := &model.Traffic{
		CongestionLevel:     level,
		Condition:           strings.ToLower(str(sd.Data, "condition")),
		IsHistoricalAverage: historicalAverage(sd),
	}
	if tr.Condition == "" {
		tr.Condition = conditionFor(level)
	}
	for _, raw := range list(sd.Data, "incidents") {
		tr.Incidents = append(tr.Incidents, model.Incident{
			ID:          str(raw, "id"),
			Type:        str(raw, "type"),
			Severity:    strings.ToLower(str(raw, "severity")),
			Description: str(raw, "description"),
			Location:    coords(raw, "location"),
		})
	}
	return tr, nil
}

func historical(sd model.SourceData) (*model.Historical, error) {
	avg, ok := num(sd.Data, "average_delivery_minutes")
	if !ok {
		return nil, malformed(sd.Slot, "average delivery time is not numeric")
	}
	return &model.Historical{
		AverageDeliveryMinutes: avg,
		OnTimeRate:             numOr(sd.Data, "on_time_rate", 0),
		SampleSize:             int(numOr(sd.Data, "sample_size", 0)),
		DayOfWeekFactors:       factors(sd.Data, "day_of_week_factors"),
		TimeOfDayFactors:       factors(sd.Data, "time_of_day_factors"),
		SeasonalFactors:        factors(sd.Data, "seasonal_factors"),
		IsHistoricalAverage:    historicalAverage(sd),
	}, nil
}

func specialEvents(sd model.SourceData) *model.SpecialEvents {
	se := &model.SpecialEvents{}
	for _, raw := range list(sd.Data, "events") {
		se.Events = append(se.Events, model.Event{
			Name:               str(raw, "name"),
			Type:               str(raw, "type"),
			Impact:             strings.ToLower(str(raw, "impact")),
			ExpectedAttendance: int(numOr(raw, "expected_attendance", 0)),
			StartsAt:           timestamp(raw, "starts_at"),
			EndsAt:             timestamp(raw, "ends_at"),
			Location:           coords(raw, "location"),
		})
	}
	for _, raw := range list(sd.Data, "road_closures") {
		se.RoadClosures = append(se.RoadClosures, model.RoadClosure{
			Road:     str(raw, "road"),
			Reason:   str(raw, "reason"),
			Severity: strings.ToLower(str(raw, "severity")),
			Until:    timestamp(raw, "until"),
			Location: coords(raw, "location"),
		})
	}
	return se
}
