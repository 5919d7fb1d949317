package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/harpou-com/llm-gateway/internal/llmconnector"
	"github.com/harpou-com/llm-gateway/internal/llmerr"
	. "github.com/harpou-com/llm-gateway/internal/logging"
	"github.com/harpou-com/llm-gateway/internal/orchestrator"
	"github.com/harpou-com/llm-gateway/internal/principal"
	"github.com/harpou-com/llm-gateway/internal/tasks"
	"github.com/harpou-com/llm-gateway/internal/types"
)

// chatRequest is the subset of the OpenAI Chat Completions request body
// the gateway acts on (spec 6).
type chatRequest struct {
	Model    string          `json:"model"`
	Messages []types.Message `json:"messages"`
	Stream   bool            `json:"stream"`
}

// handleChatCompletions serves POST /v1/chat/completions (spec 4.6).
func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeOpenAIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "POST only")
		return
	}

	requestID := "req_" + uuid.NewString()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeOpenAIError(w, http.StatusBadRequest, "invalid_request", "failed to read body")
		return
	}

	var req chatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeOpenAIError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	// Step 1: validate (spec 4.6 point 1).
	if len(req.Messages) == 0 {
		writeOpenAIError(w, http.StatusBadRequest, "invalid_request", "messages must be a non-empty list")
		return
	}
	last := req.Messages[len(req.Messages)-1]
	if last.Role == "" || len(last.RawContent) == 0 {
		writeOpenAIError(w, http.StatusBadRequest, "invalid_request", "last message must have role and content")
		return
	}
	if req.Model == "" {
		writeOpenAIError(w, http.StatusBadRequest, "invalid_request", "model is required")
		return
	}

	// Step 2: audit the request.
	var payload any
	_ = json.Unmarshal(body, &payload)
	AuditRequest(requestID, payload, r.Header)

	p, _ := principal.FromContext(r.Context())

	// Step 3: agentic vs direct.
	agentPrefix := s.cfg.AgentModelPrefix
	isAgentic := agentPrefix != "" && strings.HasPrefix(req.Model, agentPrefix)
	realModel := req.Model
	if isAgentic {
		realModel = strings.TrimPrefix(req.Model, agentPrefix)
	}

	sid := r.Header.Get("X-SID")
	if sid == "" {
		sid = uuid.NewString()
	}

	if isAgentic {
		s.handleAgentic(w, r, requestID, sid, realModel, req.Messages, p)
		return
	}

	if req.Stream {
		s.handleDirectStream(w, r, requestID, realModel, req.Messages)
		return
	}
	s.handleDirectSync(w, r, requestID, realModel, req.Messages)
}

// handleAgentic enqueues C7's input onto the task substrate and returns
// HTTP 202 (spec 4.6 point 4).
func (s *Server) handleAgentic(w http.ResponseWriter, r *http.Request, requestID, sid, modelID string, messages []types.Message, p principal.Principal) {
	payload, err := orchestrator.EncodePayload(orchestrator.TaskInput{
		Conversation: messages,
		SID:          sid,
		ModelID:      modelID,
		Principal:    p,
	})
	if err != nil {
		L_error("httpapi: failed to encode task payload", "error", err)
		writeOpenAIError(w, http.StatusInternalServerError, "internal_error", "failed to enqueue task")
		return
	}

	taskID, eErr := s.store.Enqueue(r.Context(), tasks.Spec{Kind: "orchestrate", Payload: payload})
	if eErr != nil {
		L_error("httpapi: failed to enqueue orchestrator task", "error", eErr)
		writeOpenAIError(w, http.StatusInternalServerError, "internal_error", "failed to enqueue task")
		AuditResponse(requestID, nil, http.StatusInternalServerError)
		return
	}

	resp := map[string]any{
		"task_id":         taskID,
		"status_endpoint": "/v1/tasks/status/" + taskID,
		"status":          "in_progress",
		"sid":             sid,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(resp)
	AuditResponse(requestID, resp, http.StatusAccepted)
}

// handleDirectSync handles the stream=false direct path by calling C3
// synchronously (SPEC_FULL.md's Open Question decision: the gateway
// answers inline rather than enqueuing a task for this case, since no
// agentic routing is needed and the caller is already waiting on an
// HTTP response).
func (s *Server) handleDirectSync(w http.ResponseWriter, r *http.Request, requestID, modelID string, messages []types.Message) {
	result, cErr := s.connector.ChatCompletion(r.Context(), modelID, messages, llmconnector.ChatOptions{})
	if cErr != nil {
		status := llmerr.HTTPStatus(cErr)
		writeOpenAIError(w, status, string(cErr.Kind), llmerr.UserMessage(cErr))
		AuditResponse(requestID, nil, status)
		return
	}

	resp := map[string]any{
		"id":      result.ID,
		"object":  "chat.completion",
		"created": result.Created,
		"model":   result.Model,
		"choices": []map[string]any{
			{
				"index": 0,
				"message": map[string]string{
					"role":    "assistant",
					"content": result.Content,
				},
				"finish_reason": result.FinishReason,
			},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
	AuditResponse(requestID, resp, http.StatusOK)
}

// handleDirectStream handles the stream=true direct path: SSE forwarding
// of C3's delta chunks (spec 4.6 point 5).
func (s *Server) handleDirectStream(w http.ResponseWriter, r *http.Request, requestID, modelID string, messages []types.Message) {
	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeOpenAIError(w, http.StatusInternalServerError, "internal_error", "streaming not supported")
		return
	}

	stream, cErr := s.connector.StreamChatCompletion(r.Context(), modelID, messages, llmconnector.ChatOptions{})
	if cErr != nil {
		writeSSEError(w, cErr)
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
		AuditResponse(requestID, nil, llmerr.HTTPStatus(cErr))
		return
	}
	defer stream.Close()

	w.WriteHeader(http.StatusOK)
	for {
		chunk, nErr := stream.Next()
		if nErr != nil {
			writeSSEError(w, nErr)
			break
		}
		if chunk.Done {
			break
		}

		event := map[string]any{
			"id":      chunk.ID,
			"object":  "chat.completion.chunk",
			"created": chunk.Created,
			"model":   chunk.Model,
			"choices": []map[string]any{
				{"index": 0, "delta": map[string]string{"content": chunk.Delta}},
			},
		}
		data, _ := json.Marshal(event)
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
	AuditResponse(requestID, nil, http.StatusOK)
}

func writeSSEError(w http.ResponseWriter, err *llmerr.Error) {
	payload := map[string]any{
		"error": map[string]string{
			"message": llmerr.UserMessage(err),
			"type":    string(err.Kind),
		},
	}
	data, _ := json.Marshal(payload)
	fmt.Fprintf(w, "data: %s\n\n", data)
}

func writeOpenAIError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"message": message,
			"type":    kind,
		},
	})
}
