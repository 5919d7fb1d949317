package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/harpou-com/llm-gateway/internal/tasks"
)

// handleTaskStatus serves GET /v1/tasks/status/{id} (spec 4.6): maps a
// task Record to {status, result?, error?}.
func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeOpenAIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "GET only")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/tasks/status/")
	if id == "" {
		writeOpenAIError(w, http.StatusBadRequest, "invalid_request", "missing task id")
		return
	}

	rec, err := s.store.Get(r.Context(), id)
	if err != nil {
		writeOpenAIError(w, http.StatusInternalServerError, "internal_error", "failed to read task status")
		return
	}

	resp := struct {
		Status string `json:"status"`
		Result string `json:"result,omitempty"`
		Error  string `json:"error,omitempty"`
	}{}

	switch rec.State {
	case tasks.StatePending, tasks.StateStarted:
		resp.Status = "in_progress"
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	case tasks.StateSuccess:
		resp.Status = "completed"
		resp.Result = rec.Result
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	default: // tasks.StateFailure, and any state not named above
		resp.Status = "failed"
		resp.Error = rec.Error
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(resp)
	}
}
