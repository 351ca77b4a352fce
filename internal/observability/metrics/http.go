package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ConsoleMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	transitionsTotal    *prometheus.CounterVec
	statusQueryDuration *prometheus.HistogramVec
	snapshotRefresh     *prometheus.CounterVec
	editorRowsUpdated   *prometheus.CounterVec
	previewOpensTotal   *prometheus.CounterVec
}

func NewConsoleMetrics(service string) *ConsoleMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docconsole",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docconsole",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docconsole",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	transitionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docconsole",
			Subsystem: "review",
			Name:      "transitions_total",
			Help:      "Manual review transitions by action and outcome.",
		},
		[]string{"service", "action", "outcome"},
	)
	statusQueryDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docconsole",
			Subsystem: "status",
			Name:      "query_duration_seconds",
			Help:      "Warehouse status query duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "query"},
	)
	snapshotRefresh := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docconsole",
			Subsystem: "status",
			Name:      "snapshot_refresh_total",
			Help:      "Pipeline snapshot refresh attempts by outcome.",
		},
		[]string{"service", "model", "outcome"},
	)
	editorRowsUpdated := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docconsole",
			Subsystem: "editor",
			Name:      "rows_updated_total",
			Help:      "Configuration rows written by the settings editor.",
		},
		[]string{"service", "table"},
	)
	previewOpensTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docconsole",
			Subsystem: "preview",
			Name:      "opens_total",
			Help:      "PDF preview opens by outcome.",
		},
		[]string{"service", "outcome"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		transitionsTotal,
		statusQueryDuration,
		snapshotRefresh,
		editorRowsUpdated,
		previewOpensTotal,
	)

	return &ConsoleMetrics{
		registry:            registry,
		requestTotal:        requestTotal,
		requestDuration:     requestDuration,
		requestInFlight:     requestInFlight,
		transitionsTotal:    transitionsTotal,
		statusQueryDuration: statusQueryDuration,
		snapshotRefresh:     snapshotRefresh,
		editorRowsUpdated:   editorRowsUpdated,
		previewOpensTotal:   previewOpensTotal,
	}
}

func (m *ConsoleMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *ConsoleMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath keeps label cardinality bounded for parameterized routes.
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/previews/"):
		return "/v1/previews/{preview_id}"
	case strings.HasPrefix(path, "/v1/models/"):
		rest := strings.TrimPrefix(path, "/v1/models/")
		if idx := strings.IndexByte(rest, '/'); idx >= 0 {
			return "/v1/models/{model}" + rest[idx:]
		}
		return "/v1/models/{model}"
	default:
		return path
	}
}

func (m *ConsoleMetrics) RecordTransition(service, action, outcome string) {
	if action == "" {
		action = "unknown"
	}
	m.transitionsTotal.WithLabelValues(service, action, outcome).Inc()
}

func (m *ConsoleMetrics) ObserveStatusQuery(service, query string, duration time.Duration) {
	m.statusQueryDuration.WithLabelValues(service, query).Observe(duration.Seconds())
}

func (m *ConsoleMetrics) RecordSnapshotRefresh(service, model, outcome string) {
	m.snapshotRefresh.WithLabelValues(service, model, outcome).Inc()
}

func (m *ConsoleMetrics) RecordEditorRows(service, table string, rows int) {
	if rows <= 0 {
		return
	}
	m.editorRowsUpdated.WithLabelValues(service, table).Add(float64(rows))
}

func (m *ConsoleMetrics) RecordPreviewOpen(service, outcome string) {
	m.previewOpensTotal.WithLabelValues(service, outcome).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
