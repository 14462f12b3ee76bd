package metrics

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Domenick1991/carrental/internal/domain"
)

func TestMetrics_BookingOps(t *testing.T) {
	m := New()

	m.ObserveBookingOp("create", nil)
	m.ObserveBookingOp("create", fmt.Errorf("wrap: %w", domain.ErrBookingConflict))
	m.ObserveBookingOp("create", domain.ErrBookingConflict)

	body := scrape(t, m)
	assert.Contains(t, body, `carrental_booking_operations_total{operation="create",outcome="ok"} 1`)
	assert.Contains(t, body, `carrental_booking_operations_total{operation="create",outcome="BookingConflict"} 2`)
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveHTTP(http.MethodGet, "/api/v1/cars", http.StatusOK, 10*time.Millisecond)
	m.ObserveCarsCache(true)
	m.ObserveLockWait(time.Millisecond)

	body := scrape(t, m)
	assert.Contains(t, body, `carrental_http_requests_total{method="GET",route="/api/v1/cars",status="200"} 1`)
	assert.Contains(t, body, `carrental_cars_cache_lookups_total{result="hit"} 1`)
	assert.Contains(t, body, "carrental_car_lock_wait_seconds_count 1")
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveHTTP(http.MethodGet, "/", http.StatusOK, time.Millisecond)
		m.ObserveBookingOp("create", nil)
		m.ObserveLockWait(time.Millisecond)
		m.ObserveCarsCache(false)
	})
}
