package metrics

import (
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given a dedicated registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with custom options", func() {
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then metric names carry the namespace and subsystem", func() {
				m.sessionsCreated.Inc()
				expected := `
# HELP test_unit_sessions_created_total Total number of review sessions created
# TYPE test_unit_sessions_created_total counter
test_unit_sessions_created_total{env="test"} 1
`
				err := testutil.GatherAndCompare(registry, strings.NewReader(expected), "test_unit_sessions_created_total")
				So(err, ShouldBeNil)
			})
		})

		Convey("When empty options are passed", func() {
			m := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithConstLabels(nil),
				WithPrometheusRegistry(registry),
			)

			Convey("Then defaults are kept", func() {
				So(m.namespace, ShouldEqual, "review360")
				So(m.subsystem, ShouldEqual, "reviews")
				So(m.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
				So(m.constLabels, ShouldBeNil)
			})
		})

		Convey("When two managers share a registry", func() {
			NewManager(WithPrometheusRegistry(registry))

			Convey("Then the second registration panics", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When session lifecycle events are recorded", func() {
			before := testutil.ToFloat64(globalManager.sessionsCreated)
			RecordSessionCreated()
			RecordSessionSubmitted()
			RecordSessionDeleted()
			RecordSessionEvicted("expired")
			RecordScoreUpdates(4)
			UpdateActiveSessions(7)

			Convey("Then counters and gauges move", func() {
				So(testutil.ToFloat64(globalManager.sessionsCreated), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.sessionsEvicted.WithLabelValues("expired")), ShouldBeGreaterThanOrEqualTo, 1.0)
				So(testutil.ToFloat64(globalManager.sessionsActive), ShouldEqual, 7.0)
			})
		})

		Convey("When aggregations are recorded", func() {
			before := testutil.ToFloat64(globalManager.aggregations.WithLabelValues("insufficient_evaluators"))
			RecordAggregation("insufficient_evaluators", 0.2)
			RecordMatrixShape(10, 5)

			Convey("Then the outcome is counted", func() {
				So(testutil.ToFloat64(globalManager.aggregations.WithLabelValues("insufficient_evaluators")), ShouldEqual, before+1)
			})
		})

		Convey("When the remaining recorders are called", func() {
			Convey("Then none of them panic", func() {
				So(func() {
					RecordChartRendered("radar", 12)
					RecordRepositoryUpdateLatency(0.1)
					RecordRepositoryQueryLatency(0.1)
					RecordHTTPRequest("/sessions", "POST", "201")
					RecordHTTPRequestDuration("/sessions", "POST", "201", 3)
					RecordRateLimited("/aggregate")
					RecordErrorByComponent("repository", "not_found")
					RecordErrorByEndpoint("/sessions/{id}", "GET", "not_found")
					UpdateSystemMemoryUsage(1 << 20)
					UpdateSystemGoroutineCount(12)
					RecordSystemGCPauseTime(0.5)
				}, ShouldNotPanic)
			})
		})

		Convey("When gathering the custom registry", func() {
			families, err := GetRegistry().Gather()

			Convey("Then review metrics are exposed", func() {
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "review360_reviews_sessions_created_total")
			})
		})
	})
}

func TestConcurrentRecording(t *testing.T) {
	Convey("Given many goroutines recording metrics", t, func() {
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					RecordScoreUpdates(1)
					RecordHTTPRequest("/sessions/{id}/scores", "PATCH", "200")
				}
			}()
		}

		Convey("Then they complete without panics", func() {
			So(func() { wg.Wait() }, ShouldNotPanic)
		})
	})
}
