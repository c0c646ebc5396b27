package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ndfd_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL jobs.
type Metrics struct {
	PipelineRunning prometheus.Gauge

	// Grid intersection metrics.
	TargetCells       prometheus.Gauge
	PointsOutOfBounds prometheus.Counter

	// Extraction metrics.
	FilesExtracted        prometheus.Counter
	FilesSkipped          *prometheus.CounterVec // labels: reason={name,time_tag,read}
	ObservationsExtracted prometheus.Counter
	ExtractDuration       prometheus.Histogram

	// Coalescing metrics.
	CoalesceInput          *prometheus.CounterVec   // labels: element
	CoalesceDroppedMissing *prometheus.CounterVec   // labels: element
	CoalesceOutput         *prometheus.CounterVec   // labels: element
	CoalesceDuration       *prometheus.HistogramVec // labels: element
	RecordsPublished       prometheus.Counter

	// Elevation lookup metrics.
	ElevationRequests    *prometheus.CounterVec // labels: outcome={success,error,no_coverage}
	ElevationCache       *prometheus.CounterVec // labels: result={hit,miss}
	ElevationAPIDuration prometheus.Histogram
	ElevationEnabled     prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.PipelineRunning,
		m.TargetCells,
		m.PointsOutOfBounds,
		m.FilesExtracted,
		m.FilesSkipped,
		m.ObservationsExtracted,
		m.ExtractDuration,
		m.CoalesceInput,
		m.CoalesceDroppedMissing,
		m.CoalesceOutput,
		m.CoalesceDuration,
		m.RecordsPublished,
		m.ElevationRequests,
		m.ElevationCache,
		m.ElevationAPIDuration,
		m.ElevationEnabled,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a job is running, 0 otherwise.",
		}),
		TargetCells: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "target_cells",
			Help:      "Number of grid cells selected for extraction.",
		}),
		PointsOutOfBounds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_out_of_bounds_total",
			Help:      "Input geometry vertices that fell outside the grid.",
		}),
		FilesExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_extracted_total",
			Help:      "Raster files successfully extracted.",
		}),
		FilesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_skipped_total",
			Help:      "Source files skipped by reason.",
		}, []string{"reason"}),
		ObservationsExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observations_extracted_total",
			Help:      "Cell observations written to per-file batches.",
		}),
		ExtractDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extract_duration_seconds",
			Help:      "Duration of opening, reading and writing one raster file.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		CoalesceInput: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coalesce_input_total",
			Help:      "Observations read by the final coalesce pass.",
		}, []string{"element"}),
		CoalesceDroppedMissing: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coalesce_dropped_missing_total",
			Help:      "Observations dropped for carrying the missing-value sentinel.",
		}, []string{"element"}),
		CoalesceOutput: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coalesce_output_total",
			Help:      "Coalesced records written.",
		}, []string{"element"}),
		CoalesceDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "coalesce_duration_seconds",
			Help:      "Duration of coalescing one forecast element.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}, []string{"element"}),
		RecordsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_published_total",
			Help:      "Coalesced records published to Kafka.",
		}),
		ElevationRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "elevation_requests_total",
			Help:      "NWS elevation lookups by outcome.",
		}, []string{"outcome"}),
		ElevationCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "elevation_cache_total",
			Help:      "Elevation cache lookups by result.",
		}, []string{"result"}),
		ElevationAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "elevation_api_duration_seconds",
			Help:      "NWS API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		ElevationEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "elevation_enabled",
			Help:      "1 when elevation enrichment is enabled, 0 otherwise.",
		}),
	}
}
