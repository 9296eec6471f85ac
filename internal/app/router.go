// Package app wires the HTTP surface: routing, middleware and server
// lifecycle.
package app

import (
	"log/slog"
	"net/http"

	"github.com/tripflow/llmgate/internal/transport/http/handler"
	"github.com/tripflow/llmgate/internal/transport/http/middleware"
)

// RouterOptions configures the HTTP router behavior.
type RouterOptions struct {
	Logger *slog.Logger
}

// NewRouter creates and configures the HTTP router with all application
// routes. Returns an http.Handler with middleware applied.
func NewRouter(repo *handler.Repo, opts *RouterOptions) http.Handler {
	mux := http.NewServeMux()

	// Generation pipeline
	mux.HandleFunc("POST /v1/generate", repo.Generate)

	// Observability
	mux.HandleFunc("GET /api/metrics/realtime", repo.RealTimeMetrics)
	mux.HandleFunc("GET /api/analytics/system", repo.SystemAnalytics)
	mux.HandleFunc("GET /api/analytics/tenants/{tenant}", repo.TenantAnalytics)

	// Budget
	mux.HandleFunc("GET /api/budget/status", repo.BudgetStatus)
	mux.HandleFunc("GET /api/budget/remaining", repo.BudgetRemaining)
	mux.HandleFunc("GET /api/budget/summary", repo.BudgetSummary)

	// Cache administration
	mux.HandleFunc("GET /api/cache/stats", repo.CacheStats)
	mux.HandleFunc("DELETE /api/cache", repo.CacheInvalidate)

	// Liveness
	mux.HandleFunc("GET /api/health", repo.Health)
	mux.HandleFunc("GET /", repo.RootStatus)

	var h http.Handler = mux
	if opts != nil && opts.Logger != nil {
		h = middleware.RequestLogger(opts.Logger)(h)
	}
	h = middleware.RequestID(h)

	return h
}
