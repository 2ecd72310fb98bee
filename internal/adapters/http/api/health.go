// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/festa/pkg/metrics"
)

// HealthHandler serves Prometheus metrics.
type HealthHandler struct {
	metrics http.Handler
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{
		metrics: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
	}
}

// HandleHealth handles GET /healthz requests.
// It returns metrics from the service registry; liveness is implied by a 200.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.metrics.ServeHTTP(w, r)
}

// Readiness reports whether requests can be served.
type Readiness interface {
	Ready() bool
}

// ReadyHandler answers readiness checks.
type ReadyHandler struct {
	deps Readiness
}

// NewReadyHandler creates a new readiness handler.
func NewReadyHandler(deps Readiness) *ReadyHandler {
	return &ReadyHandler{deps: deps}
}

// HandleReady handles GET /readyz: 200 once data is loaded, 503 before.
func (h *ReadyHandler) HandleReady(w http.ResponseWriter, _ *http.Request) {
	if !h.deps.Ready() {
		writeError(w, http.StatusServiceUnavailable, "not_ready", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
