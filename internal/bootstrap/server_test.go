package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Domenick1991/carrental/config"
	"github.com/Domenick1991/carrental/internal/metrics"
)

func testConfig() *config.Config {
	return &config.Config{
		HTTP:    config.HTTPConfig{Address: "127.0.0.1:0"},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func TestNewRouter_Healthz(t *testing.T) {
	gin.SetMode(gin.TestMode)
	deps := Deps{
		Logger:  zap.NewNop(),
		Metrics: metrics.New(),
		Health: map[string]HealthCheck{
			"postgres": func(context.Context) error { return nil },
		},
	}
	router := NewRouter(testConfig(), deps)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"checks":{"postgres":"ok"}}`, w.Body.String())

	deps.Health["redis"] = func(context.Context) error { return errors.New("connection refused") }
	router = NewRouter(testConfig(), deps)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestNewRouter_Metrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(testConfig(), Deps{Logger: zap.NewNop(), Metrics: metrics.New()})

	// one request so the http counter has a sample
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `carrental_http_requests_total{method="GET",route="/healthz",status="200"} 1`))
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, testConfig(), Deps{Logger: zap.NewNop()})
	}()

	cancel()
	assert.NoError(t, <-done)
}
