package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation. A nil service is a no-op.
type MetricsService struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	loanTransitions  *prometheus.CounterVec
	loanRequests     prometheus.Counter
	loginAttempts    *prometheus.CounterVec
	rateLimitRejects *prometheus.CounterVec
	cacheLookups     *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	loanTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "loan_request_transitions_total",
		Help: "Loan request status changes by origin and target status",
	}, []string{"from", "to"})

	loanRequests := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "loan_requests_created_total",
		Help: "Loan requests submitted",
	})

	loginAttempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_login_attempts_total",
		Help: "Login attempts by entry point and outcome",
	}, []string{"entry", "outcome"})

	rateLimitRejects := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rate_limit_rejections_total",
		Help: "Requests rejected by the rate limiter",
	}, []string{"path"})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "book_cache_lookups_total",
		Help: "Book title cache lookups by result",
	}, []string{"result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, loanTransitions, loanRequests, loginAttempts, rateLimitRejects, cacheLookups, goroutines)

	return &MetricsService{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		loanTransitions:  loanTransitions,
		loanRequests:     loanRequests,
		loginAttempts:    loginAttempts,
		rateLimitRejects: rateLimitRejects,
		cacheLookups:     cacheLookups,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveLoanCreated counts a submitted loan request.
func (m *MetricsService) ObserveLoanCreated() {
	if m == nil {
		return
	}
	m.loanRequests.Inc()
}

// ObserveLoanTransition counts a persisted status change.
func (m *MetricsService) ObserveLoanTransition(from, to string) {
	if m == nil {
		return
	}
	m.loanTransitions.WithLabelValues(from, to).Inc()
}

// ObserveLogin counts a login attempt; outcome is an error code or "ok".
func (m *MetricsService) ObserveLogin(entry, outcome string) {
	if m == nil {
		return
	}
	m.loginAttempts.WithLabelValues(entry, outcome).Inc()
}

// ObserveRateLimited counts a rejected request.
func (m *MetricsService) ObserveRateLimited(path string) {
	if m == nil {
		return
	}
	m.rateLimitRejects.WithLabelValues(path).Inc()
}

// ObserveCacheLookup counts a book cache hit or miss.
func (m *MetricsService) ObserveCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}
