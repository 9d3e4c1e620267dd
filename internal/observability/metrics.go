package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// granule conversion pipeline.
type Metrics struct {
	JobsConsumed     prometheus.Counter
	ResultsPublished prometheus.Counter
	JobErrors        prometheus.Counter
	PipelineRunning  prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Conversion metrics.
	GranulesConverted     prometheus.Counter
	GranulesRejected      prometheus.Counter
	PointsEmitted         prometheus.Counter
	ConversionDuration    prometheus.Histogram
	ArtifactWriteDuration *prometheus.HistogramVec // label: format={czml,chunks}
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry creates the metric set against the given
// registry so tests and embedded uses can stay isolated.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		JobsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "granule_etl",
			Name:      "jobs_consumed_total",
			Help:      "Total conversion jobs read from the job source.",
		}),
		ResultsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "granule_etl",
			Name:      "results_published_total",
			Help:      "Total conversion results written to the result sink.",
		}),
		JobErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "granule_etl",
			Name:      "job_errors_total",
			Help:      "Total jobs dropped because they could not be parsed.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "granule_etl",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "granule_etl",
			Name:      "batch_size",
			Help:      "Number of jobs per batch extracted from the source.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "granule_etl",
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-convert-publish cycle.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		GranulesConverted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "granule_etl",
			Name:      "granules_converted_total",
			Help:      "Granules converted to point-cloud documents.",
		}),
		GranulesRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "granule_etl",
			Name:      "granules_rejected_total",
			Help:      "Granules rejected during load, normalization, or projection.",
		}),
		PointsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "granule_etl",
			Name:      "points_emitted_total",
			Help:      "Total points written across all artifacts.",
		}),
		ConversionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "granule_etl",
			Name:      "conversion_duration_seconds",
			Help:      "Per-granule load, normalization, and projection duration.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		ArtifactWriteDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "granule_etl",
			Name:      "artifact_write_duration_seconds",
			Help:      "Artifact serialization duration by output format.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"format"}),
	}

	reg.MustRegister(
		m.JobsConsumed,
		m.ResultsPublished,
		m.JobErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.GranulesConverted,
		m.GranulesRejected,
		m.PointsEmitted,
		m.ConversionDuration,
		m.ArtifactWriteDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics against a throwaway registry to
// avoid "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return NewMetricsWithRegistry(prometheus.NewRegistry())
}
