package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNewManager(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with custom options", func() {
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 5, 10}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then collectors are registered under the namespace", func() {
				So(m, ShouldNotBeNil)
				m.uploadsAccepted.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				var found bool
				for _, f := range families {
					if f.GetName() == "test_unit_uploads_accepted_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetName(), ShouldEqual, "env")
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When registering the same collectors twice", func() {
			NewManager(WithPrometheusRegistry(registry))

			Convey("Then promauto panics on the duplicate", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestPackageRecorders(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording ingestion metrics", func() {
			before := testutil.ToFloat64(globalManager.uploadsAccepted)
			RecordUploadAccepted(2048)
			RecordUploadRejected("too_large")
			RecordUploadDuplicate()
			RecordParseLatency(1.5)
			RecordDatasetRows(100)

			Convey("Then counters move", func() {
				So(testutil.ToFloat64(globalManager.uploadsAccepted), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.uploadsRejected.WithLabelValues("too_large")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When recording classification metrics", func() {
			RecordColumnClassified("numerical")
			RecordProtectedAttribute("high")
			RecordProfileLatency(3)
			RecordDatasetProcessed()
			RecordProcessingError()
			RecordStaleReplacement()
			RecordSelectionRateCheck("Pass")

			Convey("Then labelled counters are populated", func() {
				So(testutil.ToFloat64(globalManager.columnsClassified.WithLabelValues("numerical")), ShouldBeGreaterThanOrEqualTo, 1)
				So(testutil.ToFloat64(globalManager.protectedDetected.WithLabelValues("high")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When setting gauges", func() {
			UpdateSessions(3)
			UpdateShardSessions("0", 2)
			UpdateJobsTracked(7)
			UpdateWorkerCount(4)
			UpdateQueueSize(5)
			UpdateQueueCapacity(10)
			UpdateQueueUtilization(0.5)
			UpdateSystemMemoryUsage(1 << 20)
			UpdateSystemGoroutineCount(12)

			Convey("Then gauges hold the last value", func() {
				So(testutil.ToFloat64(globalManager.sessions), ShouldEqual, 3)
				So(testutil.ToFloat64(globalManager.jobsTracked), ShouldEqual, 7)
				So(testutil.ToFloat64(globalManager.queueUtil), ShouldEqual, 0.5)
				So(testutil.ToFloat64(globalManager.memoryUsage), ShouldEqual, float64(1<<20))
			})
		})

		Convey("When recording HTTP and error metrics", func() {
			RecordHTTPRequest("datasets", "POST", "202")
			RecordHTTPRequestDuration("datasets", "POST", "202", 12)
			RecordErrorByComponent("queue", "queue_full")
			RecordErrorByType("client_error", "medium")
			RecordErrorByEndpoint("datasets", "POST", "client_error")
			RecordErrorLatency("http", "client_error", 4)
			RecordStoreLatency("replace", 0.2)
			RecordJobOutcome("done")
			RecordWorkerProcessingLatency(9)
			RecordWorkerError()
			RecordQueueEnqueue()
			RecordQueueDequeue()
			RecordQueueEnqueueError()
			RecordQueueProcessingLatency(0.1)
			RecordSystemGCPauseTime(0.3)

			Convey("Then the registry exposes them", func() {
				count, err := testutil.GatherAndCount(GetRegistry(),
					"fairlens_service_http_requests_total",
					"fairlens_service_errors_by_component_total",
				)
				So(err, ShouldBeNil)
				So(count, ShouldBeGreaterThanOrEqualTo, 2)

				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				for _, f := range families {
					So(strings.HasPrefix(f.GetName(), "fairlens_service_"), ShouldBeTrue)
				}
			})
		})
	})
}
