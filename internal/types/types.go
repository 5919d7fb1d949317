// Package types holds data shapes shared across package boundaries.
//
// It exists to break import cycles: the orchestrator depends on both the
// connector and the tool registry, and the connector needs to describe tool
// schemas without importing the tool registry package itself. Anything that
// more than one of internal/llmconnector, internal/toolregistry, and
// internal/orchestrator needs to agree on belongs here instead of in one of
// them.
package types

import "encoding/json"

// ToolDefinition is the JSON-Schema-shaped tool description sent to the
// routing LLM as part of the decision-call system prompt.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// MessagePart is one element of a multi-part message content list.
// Kind is either "text" or "image_url".
type MessagePart struct {
	Kind string `json:"type"`
	Text string `json:"text,omitempty"`
	URL  string `json:"url,omitempty"`
}

// Message is a provider-agnostic conversation message. Content is either a
// plain string (most requests) or a list of MessagePart (multimodal
// requests); RawContent preserves whichever the caller sent so re-encoding
// round-trips exactly.
type Message struct {
	Role       string          `json:"role"`
	RawContent json.RawMessage `json:"content"`
}

// Parts decodes Content into a part list regardless of whether the caller
// sent a bare string or a part array.
func (m Message) Parts() ([]MessagePart, error) {
	if len(m.RawContent) == 0 {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(m.RawContent, &s); err == nil {
		if s == "" {
			return nil, nil
		}
		return []MessagePart{{Kind: "text", Text: s}}, nil
	}
	var parts []MessagePart
	if err := json.Unmarshal(m.RawContent, &parts); err != nil {
		return nil, err
	}
	return parts, nil
}

// Text concatenates the text parts of the message, ignoring images. Used
// wherever only the textual question matters (routing, internal-task
// bypass detection).
func (m Message) Text() string {
	parts, err := m.Parts()
	if err != nil {
		return ""
	}
	out := ""
	for _, p := range parts {
		if p.Kind == "text" {
			out += p.Text
		}
	}
	return out
}

// DecisionOutput is what the routing LLM is instructed to emit during the
// orchestrator's decision call (spec 4.3 step 4).
type DecisionOutput struct {
	Action     string         `json:"action"`
	ToolName   string         `json:"tool_name"`
	Parameters map[string]any `json:"parameters"`
}

const (
	ActionCallTool        = "call_tool"
	ActionRespondDirectly = "respond_directly"
)
