// Package handler implements the HTTP API on top of the gateway and its
// managers.
package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/tripflow/llmgate/internal/analytics"
	"github.com/tripflow/llmgate/internal/budget"
	"github.com/tripflow/llmgate/internal/cache"
	"github.com/tripflow/llmgate/internal/gateway"
	"github.com/tripflow/llmgate/internal/types"
)

// Repo holds the dependencies for HTTP handlers.
type Repo struct {
	Gateway   *gateway.Gateway
	Budget    *budget.Manager
	Cache     *cache.Manager
	Analytics *analytics.Collector
	StartTime time.Time
}

// NewRepo creates a new instance of the handler repository.
func NewRepo(gw *gateway.Gateway, budgetMgr *budget.Manager, cacheMgr *cache.Manager, collector *analytics.Collector) *Repo {
	return &Repo{
		Gateway:   gw,
		Budget:    budgetMgr,
		Cache:     cacheMgr,
		Analytics: collector,
		StartTime: time.Now(),
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeJSONError writes a JSON error response.
func writeJSONError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, map[string]any{
		"error": map[string]any{
			"message": message,
			"code":    status,
		},
	}, status)
}

// errorStatus maps the error taxonomy to HTTP status codes.
func errorStatus(err error) int {
	switch err.(type) {
	case *types.ValidationError:
		return http.StatusBadRequest
	case *types.AuthenticationError:
		return http.StatusUnauthorized
	case *types.BudgetExceededError:
		return http.StatusPaymentRequired
	case *types.RateLimitError:
		return http.StatusTooManyRequests
	case *types.ServiceUnavailableError:
		return http.StatusServiceUnavailable
	case *types.ConfigurationError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
