package handler

import (
	"net/http"
	"strconv"
)

// defaultReportHours is the trailing window for analytics reports when the
// caller does not specify one.
const defaultReportHours = 24

// RealTimeMetrics handles GET /api/metrics/realtime.
func (h *Repo) RealTimeMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Analytics.GetRealTimeMetrics(), http.StatusOK)
}

// SystemAnalytics handles GET /api/analytics/system.
func (h *Repo) SystemAnalytics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Analytics.GetSystemAnalytics(reportHours(r)), http.StatusOK)
}

// TenantAnalytics handles GET /api/analytics/tenants/{tenant}.
func (h *Repo) TenantAnalytics(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("tenant")
	if tenantID == "" {
		writeJSONError(w, "tenant required", http.StatusBadRequest)
		return
	}
	writeJSON(w, h.Analytics.GetTenantAnalytics(tenantID, reportHours(r)), http.StatusOK)
}

func reportHours(r *http.Request) int {
	if v := r.URL.Query().Get("hours"); v != "" {
		if hours, err := strconv.Atoi(v); err == nil && hours > 0 {
			return hours
		}
	}
	return defaultReportHours
}
