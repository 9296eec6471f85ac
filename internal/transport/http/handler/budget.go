package handler

import (
	"net/http"

	"github.com/tripflow/llmgate/internal/budget"
)

// BudgetStatus handles GET /api/budget/status.
// Query params: scope (global|tenant|user, default global), tenant_id, user_id.
func (h *Repo) BudgetStatus(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	scope := q.Get("scope")
	if scope == "" {
		scope = budget.ScopeKindGlobal
	}

	status, err := h.Budget.GetStatus(q.Get("user_id"), q.Get("tenant_id"), scope)
	if err != nil {
		writeJSONError(w, err.Error(), errorStatus(err))
		return
	}
	writeJSON(w, status, http.StatusOK)
}

// BudgetRemaining handles GET /api/budget/remaining: the binding constraint
// across all scopes that apply to the given identity.
func (h *Repo) BudgetRemaining(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, map[string]any{
		"remaining": h.Budget.RemainingBudget(q.Get("user_id"), q.Get("tenant_id")),
	}, http.StatusOK)
}

// BudgetSummary handles GET /api/budget/summary.
func (h *Repo) BudgetSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	summary := h.Budget.UsageSummary(q.Get("user_id"), q.Get("tenant_id"), reportHours(r))
	writeJSON(w, summary, http.StatusOK)
}
