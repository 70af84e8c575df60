package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tendant/agri-advisor/pkg/advisor"
)

// Metrics holds the Prometheus collectors for the HTTP façade and the
// recommendation pipeline. It implements advisor.Observer.
type Metrics struct {
	gatherer prometheus.Gatherer

	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge
	rateLimitRejects     prometheus.Counter
	panicRecoveries      prometheus.Counter
	predictionsTotal     *prometheus.CounterVec
	auditAppendFailures  *prometheus.CounterVec
}

var _ advisor.Observer = (*Metrics)(nil)

// NewMetrics registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.NewRegistry())
}

// NewMetricsWithRegistry registers the collectors on reg.
func NewMetricsWithRegistry(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "advisor_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "advisor_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "advisor_http_requests_in_flight",
				Help: "Current number of HTTP requests being processed",
			},
		),
		rateLimitRejects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "advisor_rate_limit_rejects_total",
				Help: "Total number of requests rejected due to rate limiting",
			},
		),
		panicRecoveries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "advisor_panic_recoveries_total",
				Help: "Total number of panics recovered in HTTP handlers",
			},
		),
		predictionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "advisor_predictions_total",
				Help: "Recommendations served, by domain and outcome",
			},
			[]string{"domain", "outcome"},
		),
		auditAppendFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "advisor_audit_append_failures_total",
				Help: "Audit records that could not be written",
			},
			[]string{"domain"},
		),
	}

	reg.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.httpRequestsInFlight,
		m.rateLimitRejects,
		m.panicRecoveries,
		m.predictionsTotal,
		m.auditAppendFailures,
	)
	return m
}

// PredictionObserved implements advisor.Observer.
func (m *Metrics) PredictionObserved(domain advisor.Domain, outcome string) {
	m.predictionsTotal.WithLabelValues(string(domain), outcome).Inc()
}

// AuditAppendFailed implements advisor.Observer.
func (m *Metrics) AuditAppendFailed(domain advisor.Domain) {
	m.auditAppendFailures.WithLabelValues(string(domain)).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware instruments requests with RED metrics. Routes are labelled by
// their chi pattern to keep cardinality bounded.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.httpRequestsInFlight.Inc()
		defer m.httpRequestsInFlight.Dec()

		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)

		// Requests chi could not match share one label.
		route := unmatchedRoute
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}

		m.httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
		m.httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

const unmatchedRoute = "unmatched"
