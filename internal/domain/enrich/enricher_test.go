package enrich_test

import (
	"testing"
	"time"

	"github.com/okian/etaflow/internal/domain/enrich"
	"github.com/okian/etaflow/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// Monday afternoon in June.
var now = time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC)

func TestWeatherImpact(t *testing.T) {
	Convey("Given rain at increasing intensity", t, func() {
		cases := []struct {
			precip float64
			sev    model.Severity
			delay  float64
		}{
			{0.05, model.SeverityLow, 5},
			{0.3, model.SeverityModerate, 15},
			{0.8, model.SeverityHigh, 30},
		}
		for _, c := range cases {
			got := enrich.WeatherImpact(&model.Weather{Condition: "rain", PrecipitationInches: c.precip})
			So(got.Severity, ShouldEqual, c.sev)
			So(got.EstimatedDelayMinutes, ShouldEqual, c.delay)
		}
	})

	Convey("Given the remaining conditions", t, func() {
		So(*enrich.WeatherImpact(&model.Weather{Condition: "clear"}), ShouldResemble, model.WeatherImpact{Severity: model.SeverityNone})
		So(enrich.WeatherImpact(&model.Weather{Condition: "clouds"}).Severity, ShouldEqual, model.SeverityNone)
		So(*enrich.WeatherImpact(&model.Weather{Condition: "fog", VisibilityMiles: 0.5}), ShouldResemble,
			model.WeatherImpact{Severity: model.SeverityModerate, EstimatedDelayMinutes: 15})
		So(*enrich.WeatherImpact(&model.Weather{Condition: "mist", VisibilityMiles: 3}), ShouldResemble,
			model.WeatherImpact{Severity: model.SeverityLow, EstimatedDelayMinutes: 5})
		So(enrich.WeatherImpact(&model.Weather{Condition: "snow"}).EstimatedDelayMinutes, ShouldEqual, 45)
		So(enrich.WeatherImpact(&model.Weather{Condition: "thunderstorm"}).Severity, ShouldEqual, model.SeveritySevere)
		So(enrich.WeatherImpact(&model.Weather{Condition: "volcanic ash"}).Severity, ShouldEqual, model.SeverityNone)
		So(enrich.WeatherImpact(nil), ShouldBeNil)
	})

	Convey("Given wind", t, func() {
		Convey("When above 25 mph it escalates once and adds 15 minutes", func() {
			got := enrich.WeatherImpact(&model.Weather{Condition: "rain", PrecipitationInches: 0.3, WindSpeedMph: 30})
			So(got.Severity, ShouldEqual, model.SeverityHigh)
			So(got.EstimatedDelayMinutes, ShouldEqual, 30)
		})

		Convey("When severe weather escalates it stays severe", func() {
			got := enrich.WeatherImpact(&model.Weather{Condition: "thunderstorm", WindSpeedMph: 40})
			So(got.Severity, ShouldEqual, model.SeveritySevere)
			So(got.EstimatedDelayMinutes, ShouldEqual, 75)
		})

		Convey("When between 15 and 25 mph it only adds 5 minutes", func() {
			got := enrich.WeatherImpact(&model.Weather{Condition: "clear", WindSpeedMph: 25})
			So(got.Severity, ShouldEqual, model.SeverityNone)
			So(got.EstimatedDelayMinutes, ShouldEqual, 5)
		})

		Convey("When exactly 15 mph nothing is added", func() {
			got := enrich.WeatherImpact(&model.Weather{Condition: "clear", WindSpeedMph: 15})
			So(got.EstimatedDelayMinutes, ShouldEqual, 0)
		})
	})
}

func TestTrafficImpact(t *testing.T) {
	Convey("Given congestion and incidents", t, func() {
		got := enrich.TrafficImpact(&model.Traffic{
			CongestionLevel: 5,
			Condition:       "heavy",
			Incidents: []model.Incident{
				{Severity: "minor"}, {Severity: "moderate"}, {Severity: "major"}, {Severity: "severe"},
			},
		})

		Convey("Then delay adds six minutes per level and the increments", func() {
			So(got.EstimatedDelayMinutes, ShouldEqual, 30+5+15+30+60)
			So(got.IncidentCount, ShouldEqual, 4)
			So(got.Severity, ShouldEqual, model.SeverityHigh)
		})
	})

	Convey("Given an unlabeled level", t, func() {
		got := enrich.TrafficImpact(&model.Traffic{CongestionLevel: 9})
		So(got.Severity, ShouldEqual, model.SeveritySevere)
	})
}

func TestHistoricalPatterns(t *testing.T) {
	Convey("Given factors for the current day, hour band and season", t, func() {
		h := &model.Historical{
			AverageDeliveryMinutes: 100,
			DayOfWeekFactors:       map[string]float64{"monday": 1.1},
			TimeOfDayFactors:       map[string]float64{"afternoon": 1.05},
			SeasonalFactors:        map[string]float64{"summer": 1.1},
		}
		p := enrich.HistoricalPatterns(h, now)

		Convey("Then the combined factor is their product", func() {
			So(p.CombinedFactor, ShouldAlmostEqual, 1.27, 0.001)
			So(p.EstimatedDelayMinutes, ShouldEqual, 27)
			So(p.TimeOfDay, ShouldEqual, "afternoon")
			So(p.Season, ShouldEqual, "summer")
		})
	})

	Convey("Given no matching factors", t, func() {
		p := enrich.HistoricalPatterns(&model.Historical{AverageDeliveryMinutes: 100}, now)
		So(p.CombinedFactor, ShouldEqual, 1.0)
		So(p.EstimatedDelayMinutes, ShouldEqual, 0)
	})

	Convey("Given the band boundaries", t, func() {
		at := func(month time.Month, hour int) time.Time { return time.Date(2025, month, 10, hour, 0, 0, 0, time.UTC) }
		So(enrich.TimeOfDay(at(1, 5)), ShouldEqual, "night")
		So(enrich.TimeOfDay(at(1, 6)), ShouldEqual, "morning")
		So(enrich.TimeOfDay(at(1, 12)), ShouldEqual, "afternoon")
		So(enrich.TimeOfDay(at(1, 17)), ShouldEqual, "evening")
		So(enrich.TimeOfDay(at(1, 21)), ShouldEqual, "night")
		So(enrich.Season(at(time.February, 0)), ShouldEqual, "winter")
		So(enrich.Season(at(time.March, 0)), ShouldEqual, "spring")
		So(enrich.Season(at(time.June, 0)), ShouldEqual, "summer")
		So(enrich.Season(at(time.September, 0)), ShouldEqual, "fall")
		So(enrich.Season(at(time.December, 0)), ShouldEqual, "winter")
	})
}

func TestCombinedRisk(t *testing.T) {
	Convey("Given every risk at its maximum", t, func() {
		f := model.DerivedFeatures{
			WeatherImpact:      &model.WeatherImpact{Severity: model.SeveritySevere},
			TrafficImpact:      &model.TrafficImpact{Severity: model.SeveritySevere},
			HistoricalPatterns: &model.HistoricalPatterns{DayOfWeekFactor: 2, TimeOfDayFactor: 2, SeasonalFactor: 2},
		}
		r := enrich.CombinedRisk(f, &model.SpecialEvents{Events: []model.Event{{Name: "x"}}})

		Convey("Then the total is capped at one", func() {
			So(r.Total, ShouldEqual, 1.0)
			So(r.Breakdown.SpecialEvents, ShouldEqual, 0.5)
			So(r.Breakdown.DayOfWeek, ShouldEqual, 2.0)
		})
	})

	Convey("Given moderate weather only", t, func() {
		r := enrich.CombinedRisk(model.DerivedFeatures{
			WeatherImpact: &model.WeatherImpact{Severity: model.SeverityModerate},
			HistoricalPatterns: &model.HistoricalPatterns{DayOfWeekFactor: 0.9, TimeOfDayFactor: 1, SeasonalFactor: 1},
		}, nil)

		Convey("Then calendar factors below one add no risk", func() {
			So(r.Breakdown.DayOfWeek, ShouldEqual, 0)
			So(r.Total, ShouldAlmostEqual, 0.1)
		})
	})

	Convey("Given nothing", t, func() {
		So(enrich.CombinedRisk(model.DerivedFeatures{}, &model.SpecialEvents{}), ShouldBeNil)
	})

	Convey("Given road closures without any event", t, func() {
		closures := &model.SpecialEvents{RoadClosures: []model.RoadClosure{{Road: "Main St", Severity: "moderate"}}}

		Convey("Then closures add no event risk", func() {
			So(enrich.CombinedRisk(model.DerivedFeatures{}, closures), ShouldBeNil)

			r := enrich.CombinedRisk(model.DerivedFeatures{
				WeatherImpact: &model.WeatherImpact{Severity: model.SeverityModerate},
			}, closures)
			So(r.Breakdown.SpecialEvents, ShouldEqual, 0)
		})
	})
}

func TestProximityAlerts(t *testing.T) {
	here := model.Coordinates{Lat: 40.0, Lon: -75.0}
	there := model.Coordinates{Lat: 40.05, Lon: -75.0}
	d := enrich.Haversine(here, there)

	ctx := model.CanonicalContext{
		Location: &model.Location{Coordinates: here},
		SpecialEvents: &model.SpecialEvents{
			Events:       []model.Event{{Name: "Concert", Impact: "high", Location: &there}, {Name: "Nowhere"}},
			RoadClosures: []model.RoadClosure{{Road: "Main St", Severity: "moderate", Location: &there}},
		},
		Traffic: &model.Traffic{Incidents: []model.Incident{{Type: "accident", Severity: "major", Location: &there}}},
	}

	Convey("Given hazards about 3.5 miles away", t, func() {
		So(d, ShouldAlmostEqual, 3.45, 0.01)
		alerts := enrich.ProximityAlerts(ctx, enrich.DefaultRadii)

		Convey("Then each located hazard is reported in order", func() {
			So(alerts, ShouldHaveLength, 3)
			So(alerts[0].Type, ShouldEqual, model.AlertSpecialEvent)
			So(alerts[0].Severity, ShouldEqual, model.SeverityHigh)
			So(alerts[0].DistanceMiles, ShouldEqual, 3.5)
			So(alerts[1].Type, ShouldEqual, model.AlertRoadClosure)
			So(alerts[2].Type, ShouldEqual, model.AlertTrafficIncident)
			So(alerts[2].Severity, ShouldEqual, model.SeverityHigh)
			So(alerts[2].Description, ShouldContainSubstring, "accident")
		})
	})

	Convey("Given a radius exactly equal to the distance", t, func() {
		alerts := enrich.ProximityAlerts(ctx, enrich.Radii{Event: d, Closure: d, Incident: d})

		Convey("Then nothing is reported", func() {
			So(alerts, ShouldBeEmpty)
		})
	})

	Convey("Given a radius just beyond the distance", t, func() {
		alerts := enrich.ProximityAlerts(ctx, enrich.Radii{Event: d + 1e-9})
		So(alerts, ShouldHaveLength, 1)
	})

	Convey("Given no location", t, func() {
		c := ctx
		c.Location = nil
		So(enrich.ProximityAlerts(c, enrich.DefaultRadii), ShouldBeNil)
	})
}

func TestEnrich(t *testing.T) {
	e := enrich.New(enrich.WithClock(func() time.Time { return now }))

	Convey("Given a full context", t, func() {
		out := e.Enrich(model.CanonicalContext{
			Route:   &model.Route{DurationSeconds: 3600},
			Weather: &model.Weather{Condition: "rain", PrecipitationInches: 0.3},
			Traffic: &model.Traffic{CongestionLevel: 2, Condition: "light"},
			Historical: &model.Historical{
				AverageDeliveryMinutes: 120,
				DayOfWeekFactors:       map[string]float64{"monday": 1.5},
			},
		})

		Convey("Then the ETA adds delays then applies the historical factor", func() {
			So(out.AdjustedETA.BaseDurationSeconds, ShouldEqual, 3600)
			So(out.AdjustedETA.AdjustedDurationSeconds, ShouldEqual, (3600+15*60+12*60)*1.5)
			So(out.AdjustedETA.EstimatedArrival.Equal(now.Add(7830*time.Second)), ShouldBeTrue)
			So(out.Features.CombinedRiskFactors, ShouldNotBeNil)
		})
	})

	Convey("Given an empty context", t, func() {
		out := e.Enrich(model.CanonicalContext{})

		Convey("Then every feature is nil", func() {
			So(out.Features, ShouldResemble, model.DerivedFeatures{})
			So(out.AdjustedETA, ShouldBeNil)
			So(out.ProximityAlerts, ShouldBeNil)
		})
	})
}
