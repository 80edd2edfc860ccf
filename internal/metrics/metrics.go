// Package metrics exports Prometheus collectors for HTTP traffic, error
// categories, retries and document processing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dgallion1/lexsum/internal/errhandler"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors. It implements errhandler.Observer.
type Metrics struct {
	requestCount    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errorCount      *prometheus.CounterVec
	retryCount      *prometheus.CounterVec
	documents       *prometheus.CounterVec
	processing      prometheus.Histogram
	queueDepth      prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests processed.",
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		errorCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lexsum_errors_total",
				Help: "Handled errors by category.",
			},
			[]string{"category"},
		),
		retryCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lexsum_retries_total",
				Help: "Retried operations.",
			},
			[]string{"op"},
		),
		documents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lexsum_documents_total",
				Help: "Documents processed by outcome.",
			},
			[]string{"outcome"},
		),
		processing: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lexsum_document_processing_seconds",
			Help:    "End-to-end document processing time.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lexsum_job_queue_depth",
			Help: "Jobs waiting for a worker.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.requestCount, m.requestDuration, m.errorCount, m.retryCount,
		m.documents, m.processing, m.queueDepth,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) ObserveError(cat errhandler.Category) {
	m.errorCount.WithLabelValues(string(cat)).Inc()
}

func (m *Metrics) ObserveRetry(op string) {
	m.retryCount.WithLabelValues(op).Inc()
}

// ObserveDocument records one finished document. outcome is "ok",
// "fallback" or "error".
func (m *Metrics) ObserveDocument(outcome string, d time.Duration) {
	m.documents.WithLabelValues(outcome).Inc()
	m.processing.Observe(d.Seconds())
}

// SetQueueDepth records the async job backlog.
func (m *Metrics) SetQueueDepth(n int) {
	m.queueDepth.Set(float64(n))
}

// Middleware counts requests by route pattern. /metrics itself is not
// counted.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		path := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				path = p
			}
		}
		m.requestCount.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
