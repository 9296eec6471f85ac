package handler

import (
	"encoding/json"
	"net/http"

	"github.com/tripflow/llmgate/internal/transport/http/middleware"
	"github.com/tripflow/llmgate/internal/types"
)

// Generate handles POST /v1/generate: the full admission, cache and
// dispatch pipeline for one request.
func (h *Repo) Generate(w http.ResponseWriter, r *http.Request) {
	var req types.LLMRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.RequestID == "" {
		req.RequestID = middleware.GetRequestID(r.Context())
	}

	resp, err := h.Gateway.Submit(r.Context(), &req)
	if err != nil {
		writeJSONError(w, err.Error(), errorStatus(err))
		return
	}

	writeJSON(w, resp, http.StatusOK)
}
