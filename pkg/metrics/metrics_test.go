package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a fresh registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "roboheist")
				So(manager.subsystem, ShouldEqual, "backend")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_ns"),
				WithSubsystem("test_sub"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.RecordRegistration()

			Convey("Then metric names and labels should follow them", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, mf := range families {
					if mf.GetName() == "test_ns_test_sub_registrations_total" {
						found = true
						So(mf.GetMetric()[0].GetLabel()[0].GetName(), ShouldEqual, "env")
						So(mf.GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "test")
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When two managers share a registry", func() {
			registry := prometheus.NewRegistry()
			_ = NewManager(WithPrometheusRegistry(registry))

			Convey("Then the second registration should panic", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given a manager on an isolated registry", t, func() {
		registry := prometheus.NewRegistry()
		m := NewManager(WithPrometheusRegistry(registry))

		Convey("When recording registration outcomes", func() {
			m.RecordRegistration()
			m.RecordRegistration()
			m.RecordRegistrationDuplicate()
			m.RecordRegistrationInvalid()
			m.UpdateTotalTeams(7)

			Convey("Then counters and gauges should reflect them", func() {
				So(testutil.ToFloat64(m.registrations), ShouldEqual, 2)
				So(testutil.ToFloat64(m.registrationDuplicates), ShouldEqual, 1)
				So(testutil.ToFloat64(m.registrationInvalid), ShouldEqual, 1)
				So(testutil.ToFloat64(m.totalTeams), ShouldEqual, 7)
			})
		})

		Convey("When recording HTTP requests", func() {
			m.RecordHTTPRequest("leaderboard", "GET", "200", 1.5)
			m.RecordHTTPRequest("leaderboard", "GET", "200", 2.5)
			m.RecordHTTPRequest("register", "POST", "400", 3)

			Convey("Then they should be counted per label set", func() {
				So(testutil.ToFloat64(m.httpRequests.WithLabelValues("leaderboard", "GET", "200")), ShouldEqual, 2)
				So(testutil.ToFloat64(m.httpRequests.WithLabelValues("register", "POST", "400")), ShouldEqual, 1)
				So(testutil.CollectAndCount(m.httpRequestDuration), ShouldEqual, 2)
			})
		})

		Convey("When recording change queue activity", func() {
			m.UpdateQueueCapacity(64)
			m.UpdateQueueSize(2)
			m.RecordQueueEnqueue()
			m.RecordQueueEnqueue()
			m.RecordQueueEnqueueError()
			m.RecordNotifyLatency(0.4)

			Convey("Then queue metrics should reflect it", func() {
				So(testutil.ToFloat64(m.queueCapacity), ShouldEqual, 64)
				So(testutil.ToFloat64(m.queueSize), ShouldEqual, 2)
				So(testutil.ToFloat64(m.queueEnqueued), ShouldEqual, 2)
				So(testutil.ToFloat64(m.queueEnqueueErrors), ShouldEqual, 1)
				So(testutil.CollectAndCount(m.notifyLatency), ShouldEqual, 1)
			})
		})

		Convey("When recording stream activity", func() {
			m.UpdateStreamSubscribers(3)
			m.RecordStreamBroadcast()
			m.RecordStreamDropped()

			Convey("Then stream metrics should reflect it", func() {
				So(testutil.ToFloat64(m.streamSubscribers), ShouldEqual, 3)
				So(testutil.ToFloat64(m.streamBroadcasts), ShouldEqual, 1)
				So(testutil.ToFloat64(m.streamDropped), ShouldEqual, 1)
			})
		})

		Convey("When recording errors", func() {
			m.RecordErrorByComponent("repository", "duplicate_team")
			m.RecordErrorByType("client_error", "medium")
			m.RecordErrorByEndpoint("register", "POST", "client_error")

			Convey("Then the exposition should contain them", func() {
				expected := `
# HELP roboheist_backend_errors_by_component_total Total number of errors by component
# TYPE roboheist_backend_errors_by_component_total counter
roboheist_backend_errors_by_component_total{component="repository",error_type="duplicate_team"} 1
`
				err := testutil.GatherAndCompare(registry, strings.NewReader(expected), "roboheist_backend_errors_by_component_total")
				So(err, ShouldBeNil)
			})
		})
	})
}

func TestGlobalHelpers(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When calling package-level helpers", func() {
			Convey("Then none of them should panic", func() {
				So(func() {
					RecordRegistration()
					RecordRegistrationDuplicate()
					RecordRegistrationInvalid()
					UpdateTotalTeams(5)
					RecordHTTPRequest("root", "GET", "200", 0.3)
					RecordStoreUpdateLatency(0.1)
					RecordStoreQueryLatency(0.1)
					UpdateStreamSubscribers(0)
					RecordStreamBroadcast()
					RecordStreamDropped()
					RecordErrorByComponent("api", "validation")
					RecordErrorByType("client_error", "medium")
					RecordErrorByEndpoint("register", "POST", "client_error")
					UpdateSystemMemoryUsage(1024)
					UpdateSystemGoroutineCount(10)
					RecordSystemGCPauseTime(0.2)
				}, ShouldNotPanic)
			})

			Convey("And the custom registry should expose them", func() {
				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestConfigure(t *testing.T) {
	Convey("Given a configured global manager", t, func() {
		prevManager, prevRegistry := globalManager, customRegistry
		defer func() { globalManager, customRegistry = prevManager, prevRegistry }()

		Configure(WithNamespace("heist"), WithSubsystem("api"))
		RecordRegistration()

		Convey("Then the global helpers record under the new names", func() {
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)

			names := make([]string, 0, len(families))
			for _, f := range families {
				names = append(names, f.GetName())
			}
			joined := strings.Join(names, " ")
			So(joined, ShouldContainSubstring, "heist_api_registrations_total")
			So(joined, ShouldNotContainSubstring, "roboheist_backend_")
			So(GetRegistry(), ShouldNotEqual, prevRegistry)
		})

		Convey("When buckets and constant labels are configured too", func() {
			Configure(
				WithNamespace("heist"),
				WithSubsystem("api"),
				WithHistogramBuckets([]float64{1, 10}),
				WithCustomLabels(map[string]string{"env": "prod"}),
			)
			RecordHTTPRequest("/api/leaderboard", "GET", "200", 3)

			Convey("Then the latency histogram carries both", func() {
				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)

				found := false
				for _, f := range families {
					if f.GetName() != "heist_api_http_request_duration_milliseconds" {
						continue
					}
					found = true
					m := f.GetMetric()[0]
					buckets := m.GetHistogram().GetBucket()
					So(len(buckets), ShouldBeGreaterThanOrEqualTo, 2)
					So(buckets[0].GetUpperBound(), ShouldEqual, 1)
					So(buckets[1].GetUpperBound(), ShouldEqual, 10)

					labels := map[string]string{}
					for _, lp := range m.GetLabel() {
						labels[lp.GetName()] = lp.GetValue()
					}
					So(labels["env"], ShouldEqual, "prod")
				}
				So(found, ShouldBeTrue)
			})
		})
	})
}
