// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Forecast metrics
	ForecastRunsTotal    *prometheus.CounterVec
	ForecastDuration     prometheus.Histogram
	LibrarySize          prometheus.Gauge
	SelectedTrajectories prometheus.Gauge
	BinWidth             prometheus.Gauge
	LiveLevel            prometheus.Gauge

	// Archive metrics
	SamplesLoaded   prometheus.Gauge
	SamplesImported prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulForecast prometheus.Gauge
}

// NewMetrics creates a Metrics instance registered with the default registry.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer, namespace)
}

// NewMetricsWith creates a Metrics instance registered with reg.
func NewMetricsWith(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = "fluence_lab"
	}
	factory := promauto.With(reg)

	return &Metrics{
		ForecastRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "forecast",
			Name:      "runs_total",
			Help:      "Total number of forecast runs by status",
		}, []string{"status"}),
		ForecastDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "forecast",
			Name:      "duration_seconds",
			Help:      "Forecast run duration in seconds, library build included",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}),
		LibrarySize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "forecast",
			Name:      "library_trajectories",
			Help:      "Number of trajectories in the last built library",
		}),
		SelectedTrajectories: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "forecast",
			Name:      "selected_trajectories",
			Help:      "Trajectories used for percentiles in the last forecast",
		}),
		BinWidth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "forecast",
			Name:      "bin_width_log10",
			Help:      "Final magnitude bin half-width of the last forecast",
		}),
		LiveLevel: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "forecast",
			Name:      "live_level",
			Help:      "Live flux level used by the last forecast",
		}),

		SamplesLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "samples_loaded",
			Help:      "Number of archive samples loaded by the last forecast run",
		}),
		SamplesImported: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "samples_imported_total",
			Help:      "Total number of samples imported into the archive store",
		}),

		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"operation"}),

		LastSuccessfulForecast: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_forecast_timestamp",
			Help:      "Unix timestamp of last successful forecast",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor returns a /metrics handler serving the given gatherer.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordForecastRun records a finished forecast run.
func (m *Metrics) RecordForecastRun(status string, duration time.Duration) {
	m.ForecastRunsTotal.WithLabelValues(status).Inc()
	m.ForecastDuration.Observe(duration.Seconds())
}

// RecordForecastResult records shape of a successful forecast.
func (m *Metrics) RecordForecastResult(librarySize, selected int, binWidth, level float64, at time.Time) {
	m.LibrarySize.Set(float64(librarySize))
	m.SelectedTrajectories.Set(float64(selected))
	m.BinWidth.Set(binWidth)
	m.LiveLevel.Set(level)
	m.LastSuccessfulForecast.Set(float64(at.Unix()))
}

// RecordSamplesLoaded records how many archive samples a run read.
func (m *Metrics) RecordSamplesLoaded(n int) {
	m.SamplesLoaded.Set(float64(n))
}

// RecordSamplesImported adds to the imported samples counter.
func (m *Metrics) RecordSamplesImported(n int) {
	m.SamplesImported.Add(float64(n))
}

// RecordDBQuery records a database operation and its outcome.
func (m *Metrics) RecordDBQuery(operation string, duration time.Duration, err error) {
	m.DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		m.DBQueryErrors.WithLabelValues(operation).Inc()
	}
}

// RecordForecastRun records a finished forecast run on DefaultMetrics.
func RecordForecastRun(status string, duration time.Duration) {
	DefaultMetrics.RecordForecastRun(status, duration)
}

// RecordDBQuery records a database operation on DefaultMetrics.
func RecordDBQuery(operation string, duration time.Duration, err error) {
	DefaultMetrics.RecordDBQuery(operation, duration, err)
}
