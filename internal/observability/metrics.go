package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "spei_map"

// Metrics holds the Prometheus counters, histograms, and gauges for a render run.
type Metrics struct {
	LayersDrawn      *prometheus.CounterVec // labels: kind={raster,vector}
	LayerErrors      *prometheus.CounterVec // labels: stage={load,visualize,draw,boundary}
	MissingYears     prometheus.Counter
	BoundaryFeatures prometheus.Gauge
	RenderDuration   prometheus.Histogram
	LastRunSuccess   prometheus.Gauge

	// Earth Engine raster store metrics.
	EERequests    *prometheus.CounterVec   // labels: method={asset,maps,features}, outcome={success,error,not_found}
	EEAPIDuration *prometheus.HistogramVec // labels: method={asset,maps,features}
}

// NewMetrics creates and registers all renderer metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)
	prometheus.MustRegister(
		m.LayersDrawn,
		m.LayerErrors,
		m.MissingYears,
		m.BoundaryFeatures,
		m.RenderDuration,
		m.LastRunSuccess,
		m.EERequests,
		m.EEAPIDuration,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}
	return &Metrics{
		LayersDrawn: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "layers_drawn_total",
			Help:      help("Map layers added, by kind."),
		}, []string{"kind"}),
		LayerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "layer_errors_total",
			Help:      help("Layers skipped after a failure, by stage."),
		}, []string{"stage"}),
		MissingYears: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "missing_years_total",
			Help:      help("Target years with no matching raster in the collection."),
		}),
		BoundaryFeatures: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "boundary_features",
			Help:      help("Features matched by the last boundary query."),
		}),
		RenderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      help("Duration of a complete render run."),
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		LastRunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      help("1 when the last run drew every requested layer, 0 otherwise."),
		}),
		EERequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ee_requests_total",
			Help:      help("Earth Engine API requests by method and outcome."),
		}, []string{"method", "outcome"}),
		EEAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ee_api_duration_seconds",
			Help:      help("Earth Engine API request duration in seconds."),
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method"}),
	}
}
