package handler

import (
	"net/http"
	"time"

	"github.com/tripflow/llmgate/internal/version"
)

// Health handles GET /api/health: process liveness plus a per-provider
// reachability probe.
func (h *Repo) Health(w http.ResponseWriter, r *http.Request) {
	providers := h.Gateway.HealthCheck(r.Context())

	status := "healthy"
	for _, ok := range providers {
		if !ok {
			status = "degraded"
			break
		}
	}

	writeJSON(w, map[string]any{
		"status":      status,
		"version":     version.Version,
		"providers":   providers,
		"uptime_secs": int64(time.Since(h.StartTime).Seconds()),
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	}, http.StatusOK)
}

// RootStatus handles GET /.
func (h *Repo) RootStatus(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSONError(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]any{
		"service": "llmgate",
		"status":  "running",
	}, http.StatusOK)
}
