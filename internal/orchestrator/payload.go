package orchestrator

import (
	"encoding/json"
	"fmt"

	"github.com/harpou-com/llm-gateway/internal/principal"
	"github.com/harpou-com/llm-gateway/internal/types"
)

// TaskInput is everything Run needs, shaped for round-tripping through
// the task substrate's map[string]any Spec.Payload (spec 4.4: a task
// Spec carries opaque, kind-specific payload data; C9 and the worker
// agree on this shape out-of-band).
type TaskInput struct {
	Conversation []types.Message     `json:"conversation"`
	SID          string              `json:"sid"`
	ModelID      string              `json:"model_id"`
	Principal    principal.Principal `json:"principal"`
}

// EncodePayload marshals a TaskInput into the single-key map shape every
// Store backend (memory or Redis) can carry without losing fidelity:
// json.RawMessage fields inside types.Message would otherwise be mangled
// by a generic map[string]any round-trip through Redis's JSON encoding.
func EncodePayload(in TaskInput) (map[string]any, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: marshal task input: %w", err)
	}
	return map[string]any{"data": string(data)}, nil
}

// DecodePayload reverses EncodePayload.
func DecodePayload(payload map[string]any) (TaskInput, error) {
	raw, ok := payload["data"].(string)
	if !ok {
		return TaskInput{}, fmt.Errorf("orchestrator: task payload missing \"data\" string")
	}
	var in TaskInput
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		return TaskInput{}, fmt.Errorf("orchestrator: unmarshal task input: %w", err)
	}
	return in, nil
}
