package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// analysis pipeline.
type Metrics struct {
	RecordsFetched  *prometheus.CounterVec // labels: source={incidents,boundaries,census,tracts}
	RowsWritten     *prometheus.CounterVec // labels: stage
	RowsSkipped     *prometheus.CounterVec // labels: stage, reason
	StageDuration   *prometheus.HistogramVec
	StageFailures   *prometheus.CounterVec
	PipelineRunning prometheus.Gauge

	// Crosswalk data-quality metrics.
	GeometrySkips     *prometheus.CounterVec // labels: layer, reason={invalid,zero_area,empty}
	ConservationError prometheus.Gauge       // relative error of allocated vs input population
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RecordsFetched,
		m.RowsWritten,
		m.RowsSkipped,
		m.StageDuration,
		m.StageFailures,
		m.PipelineRunning,
		m.GeometrySkips,
		m.ConservationError,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RecordsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fire_etl",
			Name:      "records_fetched_total",
			Help:      "Records fetched from upstream data sources.",
		}, []string{"source"}),
		RowsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fire_etl",
			Name:      "rows_written_total",
			Help:      "Rows written to stage output files.",
		}, []string{"stage"}),
		RowsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fire_etl",
			Name:      "rows_skipped_total",
			Help:      "Rows excluded during processing, by stage and reason.",
		}, []string{"stage", "reason"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fire_etl",
			Name:      "stage_duration_seconds",
			Help:      "Wall-clock duration of each pipeline stage.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"stage"}),
		StageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fire_etl",
			Name:      "stage_failures_total",
			Help:      "Pipeline stage runs that ended in error.",
		}, []string{"stage"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fire_etl",
			Name:      "pipeline_running",
			Help:      "1 while the pipeline is executing stages, 0 otherwise.",
		}),
		GeometrySkips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fire_etl",
			Name:      "geometry_skips_total",
			Help:      "Polygons excluded from the spatial overlay, by layer and reason.",
		}, []string{"layer", "reason"}),
		ConservationError: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fire_etl",
			Name:      "conservation_relative_error",
			Help:      "Relative error between allocated and input population totals.",
		}),
	}
}
