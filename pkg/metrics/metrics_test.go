package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a fresh registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should use the pitwall namespace", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "pitwall")
				So(manager.refreshInterval, ShouldEqual, defaultRefreshInterval)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithMetricsEnabled(false),
				WithRefreshInterval(5*time.Second),
				WithPrometheusRegistry(registry),
			)

			Convey("Then every option should apply", func() {
				So(manager.namespace, ShouldEqual, "test")
				So(manager.subsystem, ShouldEqual, "unit")
				So(manager.histogramBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
				So(manager.enabled, ShouldBeFalse)
				So(manager.refreshInterval, ShouldEqual, 5*time.Second)
			})
		})

		Convey("When empty values are passed", func() {
			manager := NewManager(
				WithNamespace(""),
				WithHistogramBuckets(nil),
				WithRefreshInterval(0),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then defaults should be kept", func() {
				So(manager.namespace, ShouldEqual, "pitwall")
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
				So(manager.refreshInterval, ShouldEqual, defaultRefreshInterval)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording pipeline metrics", func() {
			before := value(globalManager.cornersDetected.WithLabelValues("unit-track"))
			RecordCorners("unit-track", 3)
			RecordCorners("unit-track", 2)

			Convey("Then the corner counter should advance", func() {
				after := value(globalManager.cornersDetected.WithLabelValues("unit-track"))
				So(after-before, ShouldEqual, 5)
			})
		})

		Convey("When updating gauges", func() {
			UpdateQueueSize(7)
			UpdateWorkerCount(4)
			UpdateFrameRows("unit-track", 120)

			Convey("Then they should hold the last value", func() {
				So(value(globalManager.queueSize), ShouldEqual, 7)
				So(value(globalManager.workerCount), ShouldEqual, 4)
				So(value(globalManager.frameRows.WithLabelValues("unit-track")), ShouldEqual, 120)
			})
		})

		Convey("When recording the remaining families", func() {
			So(func() {
				RecordSamplesLoaded("unit-track", 100)
				RecordSamplesLoaded("unit-track", 0)
				RecordRowsCapped("unit-track")
				RecordBrakingEvents("unit-track", 1)
				RecordSectorSummary("ok")
				RecordSectorSummary("unavailable")
				RecordDetectLatency("corner", 1.5)
				RecordMissingSignal("braking", "unit-track")
				RecordQueryFailure("telemetry")
				RecordStrategyRun(3)
				RecordBestStops("1")
				RecordJob("ok", 12)
				UpdateQueueCapacity(64)
				RecordQueueRejected("full")
				UpdateStoredTracks(2)
				RecordHTTPRequest("/tracks", "GET", "200")
				RecordHTTPRequestDuration("/tracks", "GET", "200", 4)
				RecordErrorByComponent("store", "query")
			}, ShouldNotPanic)
		})

		Convey("When collection is disabled", func() {
			before := value(globalManager.strategyRuns)
			SetEnabled(false)
			RecordStrategyRun(0)
			SetEnabled(true)

			Convey("Then nothing should be recorded", func() {
				So(value(globalManager.strategyRuns), ShouldEqual, before)
			})
		})
	})
}

func TestRegistry(t *testing.T) {
	Convey("Given the custom registry", t, func() {
		RecordJob("ok", 1)
		families, err := GetRegistry().Gather()

		Convey("Then it should expose pitwall metrics only", func() {
			So(err, ShouldBeNil)
			So(len(families), ShouldBeGreaterThan, 0)
			for _, f := range families {
				So(f.GetName(), ShouldStartWith, "pitwall_")
			}
		})
	})
}

func value(c prometheus.Metric) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return -1
	}
	if m.Counter != nil {
		return m.GetCounter().GetValue()
	}
	return m.GetGauge().GetValue()
}
