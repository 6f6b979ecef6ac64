package service

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceCounters(t *testing.T) {
	m := NewMetricsService()
	m.ObserveLoanCreated()
	m.ObserveLoanTransition("pendiente", "aprobado")
	m.ObserveLoanTransition("pendiente", "aprobado")
	m.ObserveLogin("admin", "ok")
	m.ObserveRateLimited("/api/requests")
	m.ObserveHTTPRequest(http.MethodGet, "/api/requests", 200, 15*time.Millisecond)
	m.ObserveCacheLookup(true)
	m.ObserveCacheLookup(false)
	m.ObserveCacheLookup(false)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.loanRequests))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.loanTransitions.WithLabelValues("pendiente", "aprobado")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.loginAttempts.WithLabelValues("admin", "ok")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.cacheLookups.WithLabelValues("miss")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "loan_request_transitions_total"))
}

func TestNilMetricsServiceIsSafe(t *testing.T) {
	var m *MetricsService
	assert.NotPanics(t, func() {
		m.ObserveLoanCreated()
		m.ObserveLoanTransition("a", "b")
		m.ObserveLogin("user", "ok")
		m.ObserveRateLimited("/x")
		m.ObserveCacheLookup(true)
		m.ObserveHTTPRequest("GET", "/", 200, time.Millisecond)
	})
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
