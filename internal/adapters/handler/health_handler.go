package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"
)

// Pinger checks connectivity of a backing store
type Pinger interface {
	Ping(ctx context.Context) error
}

// BreakerReporter exposes the state of a circuit breaker
type BreakerReporter interface {
	BreakerState() gobreaker.State
}

// HealthHandler handles health check endpoints
// OpenShift compatible: /health, /health/ready, /health/live
type HealthHandler struct {
	db       Pinger
	breakers map[string]BreakerReporter
}

// NewHealthHandler creates a new health handler. breakers are reported by
// name in the readiness response.
func NewHealthHandler(db Pinger, breakers map[string]BreakerReporter) *HealthHandler {
	return &HealthHandler{
		db:       db,
		breakers: breakers,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

func writeHealth(w http.ResponseWriter, status int, response HealthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

// Health handles GET /health - general health check
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeHealth(w, http.StatusOK, HealthResponse{Status: "ok", Timestamp: time.Now()})
}

// Ready handles GET /health/ready - readiness check.
// Not ready when the database is unreachable. An open lookup breaker is
// reported but keeps the service ready, as manual entry still works.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.breakers)+1)
	for name, breaker := range h.breakers {
		checks[name] = breaker.BreakerState().String()
	}

	if err := h.db.Ping(ctx); err != nil {
		checks["database"] = "unreachable"
		writeHealth(w, http.StatusServiceUnavailable, HealthResponse{
			Status:    "not ready",
			Timestamp: time.Now(),
			Checks:    checks,
		})
		return
	}
	checks["database"] = "ok"

	writeHealth(w, http.StatusOK, HealthResponse{Status: "ready", Timestamp: time.Now(), Checks: checks})
}

// Live handles GET /health/live - liveness check
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeHealth(w, http.StatusOK, HealthResponse{Status: "alive", Timestamp: time.Now()})
}

// Metrics handles GET /metrics - Prometheus metrics endpoint
func Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}
