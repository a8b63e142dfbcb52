package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/etaflow/internal/config"
	"github.com/okian/etaflow/internal/domain/model"
	"github.com/okian/etaflow/internal/domain/source"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.CacheShardCount, convey.ShouldEqual, 16)
			convey.So(cfg.RetryBackoff(), convey.ShouldEqual, 200*time.Millisecond)
			convey.So(cfg.StaleRetention(), convey.ShouldEqual, 24*time.Hour)
			convey.So(cfg.SweepInterval(), convey.ShouldEqual, 10*time.Minute)
			convey.So(cfg.Sources, convey.ShouldBeEmpty)
		})
	})
}

func TestConfig_SourceOptions(t *testing.T) {
	convey.Convey("Given per-source overrides", t, func() {
		zero := 0
		cfg := config.New()
		cfg.Sources = map[string]config.SourceConfig{
			"weather":          {TimeoutMS: 750, RetryCount: &zero, Fallback: "skip_source"},
			"special_events":   {CacheExpiryS: 60, URL: "http://events.local/v1"},
			"vehicle_location": {},
		}

		opts, err := cfg.SourceOptions()
		convey.So(err, convey.ShouldBeNil)
		reg, err := source.NewRegistry(opts...)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then only the set fields change", func() {
			w, _ := reg.Config(model.SourceWeather)
			convey.So(w.Timeout, convey.ShouldEqual, 750*time.Millisecond)
			convey.So(w.RetryCount, convey.ShouldEqual, 0)
			convey.So(w.Fallback, convey.ShouldEqual, source.SkipSource)

			ev, _ := reg.Config(model.SourceSpecialEvents)
			convey.So(ev.CacheExpiry, convey.ShouldEqual, time.Minute)

			defaults, _ := source.NewRegistry()
			loc, _ := reg.Config(model.SourceVehicleLocation)
			want, _ := defaults.Config(model.SourceVehicleLocation)
			convey.So(loc.Timeout, convey.ShouldEqual, want.Timeout)
			convey.So(loc.RetryCount, convey.ShouldEqual, want.RetryCount)
		})

		convey.Convey("Then the endpoints are reported", func() {
			convey.So(cfg.SourceURLs(), convey.ShouldResemble, map[model.SourceType]string{
				model.SourceSpecialEvents: "http://events.local/v1",
			})
		})
	})

	convey.Convey("Given an override for an unknown source", t, func() {
		cfg := config.New()
		cfg.Sources = map[string]config.SourceConfig{"radar": {TimeoutMS: 10}}

		_, err := cfg.SourceOptions()

		convey.Convey("Then it is rejected", func() {
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}
