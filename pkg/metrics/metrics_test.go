package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 10}),
				WithRefreshInterval(3*time.Second),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the collectors register under the namespace", func() {
				So(manager, ShouldNotBeNil)
				So(manager.RefreshInterval(), ShouldEqual, 3*time.Second)

				manager.batches.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_unit_batches_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When ignoring empty options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithNamespace(""), WithRefreshInterval(0), WithPrometheusRegistry(registry))

			Convey("Then defaults survive", func() {
				So(manager.namespace, ShouldEqual, "casetag")
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording classification records", func() {
			before := testutil.ToFloat64(Global().records.WithLabelValues("error", "rate_limited"))
			RecordClassification("error", "rate_limited")
			RecordClassification("error", "rate_limited")

			Convey("Then the labelled counter advances", func() {
				after := testutil.ToFloat64(Global().records.WithLabelValues("error", "rate_limited"))
				So(after-before, ShouldEqual, 2)
			})
		})

		Convey("When updating iteration progress", func() {
			UpdateIterationProgress(50, 20, 30)

			Convey("Then the gauges reflect it", func() {
				So(testutil.ToFloat64(Global().iterationTarget), ShouldEqual, 50)
				So(testutil.ToFloat64(Global().iterationProcessed), ShouldEqual, 20)
				So(testutil.ToFloat64(Global().iterationRemaining), ShouldEqual, 30)
			})
		})

		Convey("When recording zero taxonomy additions", func() {
			before := testutil.ToFloat64(Global().taxonomyTagsAdded.WithLabelValues("crime_type"))
			RecordTaxonomyTagsAdded("crime_type", 0)
			RecordTaxonomyTagsAdded("crime_type", 3)

			Convey("Then only positive additions count", func() {
				after := testutil.ToFloat64(Global().taxonomyTagsAdded.WithLabelValues("crime_type"))
				So(after-before, ShouldEqual, 3)
			})
		})

		Convey("When recording everything else", func() {
			So(func() {
				RecordOracleRequest("simulated", "success")
				RecordOracleLatency("simulated", 12)
				RecordOracleRetry()
				RecordSchemaDiscovery("fallback")
				RecordLowConfidence()
				RecordBatch(1500)
				RecordArtifactWrite("progress", "ok")
				RecordHTTPRequest("progress", "GET", "200")
				RecordHTTPRequestDuration("progress", "GET", "200", 1)
				RecordErrorByComponent("artifacts", "write_failed")
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.4)
			}, ShouldNotPanic)
		})

		Convey("When gathering the custom registry", func() {
			RecordBatch(10)
			families, err := GetRegistry().Gather()

			Convey("Then pipeline metrics are exposed", func() {
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(strings.Join(names, ","), ShouldContainSubstring, "casetag_pipeline_batches_total")
			})
		})
	})
}
