package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/IANDYI/nutrition-service/internal/adapters/handler"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct {
	err error
}

func (p fakePinger) Ping(ctx context.Context) error {
	return p.err
}

type fakeBreaker gobreaker.State

func (b fakeBreaker) BreakerState() gobreaker.State {
	return gobreaker.State(b)
}

func decodeHealth(t *testing.T, w *httptest.ResponseRecorder) handler.HealthResponse {
	t.Helper()
	var response handler.HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	return response
}

func TestHealthHandler_Health(t *testing.T) {
	healthHandler := handler.NewHealthHandler(fakePinger{}, nil)

	w := httptest.NewRecorder()
	healthHandler.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	response := decodeHealth(t, w)
	assert.Equal(t, "ok", response.Status)
	assert.WithinDuration(t, time.Now(), response.Timestamp, time.Second)
}

func TestHealthHandler_Live(t *testing.T) {
	healthHandler := handler.NewHealthHandler(fakePinger{err: errors.New("down")}, nil)

	w := httptest.NewRecorder()
	healthHandler.Live(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alive", decodeHealth(t, w).Status)
}

func TestHealthHandler_Ready(t *testing.T) {
	healthHandler := handler.NewHealthHandler(fakePinger{}, map[string]handler.BreakerReporter{
		"fdc": fakeBreaker(gobreaker.StateOpen),
	})

	w := httptest.NewRecorder()
	healthHandler.Ready(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	response := decodeHealth(t, w)
	assert.Equal(t, "ready", response.Status)
	assert.Equal(t, "ok", response.Checks["database"])
	assert.Equal(t, "open", response.Checks["fdc"])
}

func TestHealthHandler_Ready_DatabaseDown(t *testing.T) {
	healthHandler := handler.NewHealthHandler(fakePinger{err: errors.New("connection refused")}, nil)

	w := httptest.NewRecorder()
	healthHandler.Ready(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	response := decodeHealth(t, w)
	assert.Equal(t, "not ready", response.Status)
	assert.Equal(t, "unreachable", response.Checks["database"])
}

func TestMetrics(t *testing.T) {
	w := httptest.NewRecorder()
	handler.Metrics(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
