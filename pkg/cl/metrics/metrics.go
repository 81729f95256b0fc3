// Package metrics exposes Prometheus counters for the form store and the HTTP API.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cliossg/formkit/pkg/cl/logger"
	"github.com/cliossg/formkit/pkg/cl/middleware"
)

// Recorder receives store and submission events from the feature services.
type Recorder interface {
	StoreMutation(collection, op string)
	PersistFailure(collection string)
	ResponseSubmitted(formID string)
}

// Metrics is a Recorder backed by its own Prometheus registry.
// It is a lifecycle component that serves /metrics and /healthz.
type Metrics struct {
	registry *prometheus.Registry

	storeMutations  *prometheus.CounterVec
	persistFailures *prometheus.CounterVec
	submissions     *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec

	log logger.Logger
}

// New registers the formkit collectors on a fresh registry.
func New(log logger.Logger) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		storeMutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "formkit_store_mutations_total",
			Help: "Committed collection mutations by collection and operation",
		}, []string{"collection", "op"}),
		persistFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "formkit_store_persist_failures_total",
			Help: "Mutations rejected because the snapshot could not be written",
		}, []string{"collection"}),
		submissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "formkit_responses_submitted_total",
			Help: "Accepted form submissions by form",
		}, []string{"form_id"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "formkit_http_requests_total",
			Help: "HTTP requests by method and status code",
		}, []string{"method", "code"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "formkit_http_request_duration_seconds",
			Help:    "HTTP request latency by method",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		log: log,
	}
}

func (m *Metrics) Start(ctx context.Context) error {
	m.log.Info("Metrics started")
	return nil
}

// RegisterRoutes serves /metrics to local scrapers and /healthz to anyone.
func (m *Metrics) RegisterRoutes(r chi.Router) {
	r.With(middleware.LocalhostOnly).Method(http.MethodGet, "/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) StoreMutation(collection, op string) {
	m.storeMutations.WithLabelValues(collection, op).Inc()
}

func (m *Metrics) PersistFailure(collection string) {
	m.persistFailures.WithLabelValues(collection).Inc()
}

func (m *Metrics) ResponseSubmitted(formID string) {
	m.submissions.WithLabelValues(formID).Inc()
}

// Middleware counts requests and observes their latency.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(r.Method, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}

type noop struct{}

// NewNoop returns a Recorder that discards every event.
func NewNoop() Recorder { return noop{} }

func (noop) StoreMutation(string, string) {}
func (noop) PersistFailure(string)        {}
func (noop) ResponseSubmitted(string)     {}
