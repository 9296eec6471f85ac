package handler

import "net/http"

// CacheStats handles GET /api/cache/stats.
func (h *Repo) CacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Cache.GetStats(), http.StatusOK)
}

// CacheInvalidate handles DELETE /api/cache. An optional pattern query
// restricts invalidation to keys with that prefix; absent, everything goes.
func (h *Repo) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	removed := h.Cache.Invalidate(r.URL.Query().Get("pattern"))
	writeJSON(w, map[string]any{"removed": removed}, http.StatusOK)
}
