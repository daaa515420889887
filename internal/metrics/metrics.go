package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the service's Prometheus instruments behind a private
// registry so tests can create instances freely.
type Metrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	scansTotal     *prometheus.CounterVec
	scanDuration   *prometheus.HistogramVec
	scansInFlight  prometheus.Gauge
	queueDepth     prometheus.Gauge
	decodeWarnings prometheus.Counter
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ribfactory",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ribfactory",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	scansTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ribfactory",
			Subsystem: "queue",
			Name:      "scans_total",
			Help:      "Total scans reaching a terminal status.",
		},
		[]string{"status"},
	)
	scanDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ribfactory",
			Subsystem: "queue",
			Name:      "scan_duration_seconds",
			Help:      "Per-file analysis duration in seconds by terminal status.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"status"},
	)
	scansInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ribfactory",
			Subsystem: "queue",
			Name:      "scans_in_flight",
			Help:      "Number of scans currently being analyzed (0 or 1).",
		},
	)
	queueDepth := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ribfactory",
			Subsystem: "queue",
			Name:      "depth",
			Help:      "Number of scans waiting to be analyzed.",
		},
	)
	decodeWarnings := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ribfactory",
			Subsystem: "stream",
			Name:      "decode_warnings_total",
			Help:      "Total malformed NDJSON lines dropped from analyzer responses.",
		},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		scansTotal,
		scanDuration,
		scansInFlight,
		queueDepth,
		decodeWarnings,
	)

	return &Metrics{
		registry:        registry,
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		scansTotal:      scansTotal,
		scanDuration:    scanDuration,
		scansInFlight:   scansInFlight,
		queueDepth:      queueDepth,
		decodeWarnings:  decodeWarnings,
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// The recording methods are nil-safe so components can run without metrics
// wired (unit tests mostly).

func (m *Metrics) RecordRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (m *Metrics) StartScan() {
	if m == nil {
		return
	}
	m.scansInFlight.Inc()
}

func (m *Metrics) FinishScan(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.scansInFlight.Dec()
	m.scansTotal.WithLabelValues(status).Inc()
	m.scanDuration.WithLabelValues(status).Observe(duration.Seconds())
}

func (m *Metrics) SetQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(depth))
}

func (m *Metrics) AddDecodeWarnings(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.decodeWarnings.Add(float64(count))
}
