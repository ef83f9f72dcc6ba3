package dbprobe

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Fixed HELP strings.
const (
	upHelp       = "Result of the last probe of a database endpoint (1 = reachable, 0 = failed)"
	latencyHelp  = "Duration of database probes in seconds"
	failuresHelp = "Number of failed database probes by error kind"
)

var defaultLatencyBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0, 20.0}

var labelNames = []string{"name", "kind"}

// MetricsExporter records probe outcomes as Prometheus metrics.
type MetricsExporter struct {
	up       *prometheus.GaugeVec
	latency  *prometheus.HistogramVec
	failures *prometheus.CounterVec
}

// MetricsOption is a functional option for MetricsExporter.
type MetricsOption func(*metricsConfig)

type metricsConfig struct {
	registerer prometheus.Registerer
	namespace  string
}

// WithMetricsRegisterer sets a custom prometheus.Registerer.
// By default prometheus.DefaultRegisterer is used.
func WithMetricsRegisterer(r prometheus.Registerer) MetricsOption {
	return func(c *metricsConfig) {
		c.registerer = r
	}
}

// WithNamespace prefixes metric names, e.g. "app" → app_dbprobe_up.
func WithNamespace(ns string) MetricsOption {
	return func(c *metricsConfig) {
		c.namespace = ns
	}
}

// NewMetricsExporter creates and registers the probe metrics.
func NewMetricsExporter(opts ...MetricsOption) (*MetricsExporter, error) {
	cfg := metricsConfig{
		registerer: prometheus.DefaultRegisterer,
	}
	for _, o := range opts {
		o(&cfg)
	}

	up := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: cfg.namespace,
		Subsystem: "dbprobe",
		Name:      "up",
		Help:      upHelp,
	}, labelNames)

	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: cfg.namespace,
		Subsystem: "dbprobe",
		Name:      "latency_seconds",
		Help:      latencyHelp,
		Buckets:   defaultLatencyBuckets,
	}, labelNames)

	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.namespace,
		Subsystem: "dbprobe",
		Name:      "failures_total",
		Help:      failuresHelp,
	}, append(append([]string{}, labelNames...), "error_kind"))

	for _, c := range []prometheus.Collector{up, latency, failures} {
		if err := cfg.registerer.Register(c); err != nil {
			return nil, err
		}
	}

	return &MetricsExporter{
		up:       up,
		latency:  latency,
		failures: failures,
	}, nil
}

// Observe records one finished probe.
func (m *MetricsExporter) Observe(r HealthReport) {
	labels := prometheus.Labels{"name": r.Name, "kind": string(r.Kind)}
	if r.Success {
		m.up.With(labels).Set(1)
	} else {
		m.up.With(labels).Set(0)
		m.failures.With(prometheus.Labels{
			"name":       r.Name,
			"kind":       string(r.Kind),
			"error_kind": string(r.ErrorKind),
		}).Inc()
	}
	m.latency.With(labels).Observe(r.Latency.Seconds())
}
