package model_test

import (
	"testing"

	"github.com/okian/etaflow/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSeverity(t *testing.T) {
	Convey("Given the severity scale", t, func() {
		Convey("When escalating", func() {
			So(model.SeverityNone.Escalate(), ShouldEqual, model.SeverityLow)
			So(model.SeverityLow.Escalate(), ShouldEqual, model.SeverityModerate)
			So(model.SeverityModerate.Escalate(), ShouldEqual, model.SeverityHigh)
			So(model.SeverityHigh.Escalate(), ShouldEqual, model.SeveritySevere)
			So(model.SeveritySevere.Escalate(), ShouldEqual, model.SeveritySevere)
		})

		Convey("When mapping to risk", func() {
			So(model.SeverityNone.Risk(), ShouldEqual, 0)
			So(model.SeverityLow.Risk(), ShouldEqual, 0.2)
			So(model.SeverityModerate.Risk(), ShouldEqual, 0.5)
			So(model.SeverityHigh.Risk(), ShouldEqual, 0.8)
			So(model.SeveritySevere.Risk(), ShouldEqual, 1.0)
			So(model.Severity("bogus").Risk(), ShouldEqual, 0)
		})
	})
}

func TestSourceSet(t *testing.T) {
	Convey("Given a source set", t, func() {
		s := model.SourceSet{}
		s.Add(model.SourceWeather)
		s.Add(model.SourcePrimaryRouting)
		s.Add(model.SourceWeather)

		Convey("Then members are deduplicated and sorted", func() {
			So(s.Sorted(), ShouldResemble, []model.SourceType{model.SourcePrimaryRouting, model.SourceWeather})
			So(s.Has(model.SourceWeather), ShouldBeTrue)
			So(s.Has(model.SourceSpecialEvents), ShouldBeFalse)
		})
	})
}

func TestOriginTrust(t *testing.T) {
	Convey("Given the origins ordered from most to least trusted", t, func() {
		origins := []model.Origin{
			model.OriginFresh,
			model.OriginCache,
			model.OriginAlternative,
			model.OriginStaleCache,
			model.OriginHistoricalAverage,
		}

		Convey("Then trust never increases down the list and stays in [0,1]", func() {
			for i, o := range origins {
				So(o.Trust(), ShouldBeBetweenOrEqual, 0, 1)
				if i > 0 {
					So(o.Trust(), ShouldBeLessThanOrEqualTo, origins[i-1].Trust())
				}
			}
		})
	})
}
