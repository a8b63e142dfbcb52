package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			manager := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "etaflow")
				So(manager.enabled, ShouldBeTrue)
			})
		})

		Convey("When creating with custom options", func() {
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 10}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then the options should be applied", func() {
				So(manager.namespace, ShouldEqual, "test")
				So(manager.subsystem, ShouldEqual, "unit")
				So(manager.histogramBuckets, ShouldResemble, []float64{1, 10})
				So(manager.constLabels["env"], ShouldEqual, "test")
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given a manager on an isolated registry", t, func() {
		m := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))

		Convey("When recording runs", func() {
			m.RecordRun(true, 12)
			m.RecordRun(true, 15)
			m.RecordRun(false, 3)

			Convey("Then outcomes are counted separately", func() {
				So(testutil.ToFloat64(m.runsTotal.WithLabelValues("success")), ShouldEqual, 2)
				So(testutil.ToFloat64(m.runsTotal.WithLabelValues("fatal")), ShouldEqual, 1)
			})
		})

		Convey("When recording source activity", func() {
			m.RecordSourceFetch("weather", FetchSuccess)
			m.RecordFallback("primary_routing", "use_alternative_source", true)
			m.RecordCacheLookup(true)
			m.RecordCacheLookup(false)
			m.RecordCacheLookup(false)

			Convey("Then the counters reflect it", func() {
				So(testutil.ToFloat64(m.sourceFetches.WithLabelValues("weather", FetchSuccess)), ShouldEqual, 1)
				So(testutil.ToFloat64(m.fallbacks.WithLabelValues("primary_routing", "use_alternative_source", "true")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.cacheHits), ShouldEqual, 1)
				So(testutil.ToFloat64(m.cacheMisses), ShouldEqual, 2)
			})
		})

		Convey("When recording batch activity", func() {
			m.UpdateQueueSize(3)
			m.RecordQueueRejected("full")
			m.RecordBatchJob(true)
			m.RecordBatchJob(false)
			m.UpdateWorkersActive(4)

			Convey("Then the batch collectors reflect it", func() {
				So(testutil.ToFloat64(m.queueSize), ShouldEqual, 3)
				So(testutil.ToFloat64(m.queueRejected.WithLabelValues("full")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.batchJobs.WithLabelValues("failed")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.workersActive), ShouldEqual, 4)
			})
		})

		Convey("When updating data quality", func() {
			err := m.UpdateDataQuality(DimensionCompleteness, 0.75)
			bad := m.UpdateDataQuality("vibes", 1)

			Convey("Then known dimensions are set and unknown ones rejected", func() {
				So(err, ShouldBeNil)
				So(testutil.ToFloat64(m.dataQuality.WithLabelValues(DimensionCompleteness)), ShouldEqual, 0.75)
				So(errors.Is(bad, ErrUnknownDimension), ShouldBeTrue)
			})
		})
	})

	Convey("Given a disabled manager", t, func() {
		m := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()), WithMetricsEnabled(false))
		m.RecordRun(true, 1)
		m.RecordCacheSwept(4)

		Convey("Then nothing is recorded", func() {
			So(testutil.ToFloat64(m.runsTotal.WithLabelValues("success")), ShouldEqual, 0)
			So(testutil.ToFloat64(m.cacheSwept), ShouldEqual, 0)
		})
	})

	Convey("Given the global helpers", t, func() {
		Convey("Then they should not panic", func() {
			So(func() {
				RecordRun(true, 1)
				RecordStage("collect", 2)
				RecordStageError("transform", true)
				RecordSourceLatency("weather", 3)
				RecordValidationFailure("traffic_incidents")
				UpdateCacheEntries(10)
				RecordHTTPRequest("estimate", "GET", "200", 4)
			}, ShouldNotPanic)
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}
