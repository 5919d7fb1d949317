package orchestrator

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/harpou-com/llm-gateway/internal/llmconnector"
	. "github.com/harpou-com/llm-gateway/internal/logging"
	"github.com/harpou-com/llm-gateway/internal/types"
)

// decide runs spec 4.3 steps 4-5: build the decision system prompt, call
// the routing LLM in JSON mode, parse and validate its output.
func (o *Orchestrator) decide(ctx context.Context, routingModel, question, sid string) types.DecisionOutput {
	prompt := o.buildDecisionPrompt()

	result, err := o.connector.ChatCompletion(ctx, routingModel, []types.Message{
		userMessage(question),
	}, llmconnector.ChatOptions{SystemPrompt: prompt, JSONMode: true})
	if err != nil {
		L_warn("orchestrator: decision call failed, defaulting to respond_directly", "sid", sid, "error", err)
		return types.DecisionOutput{Action: types.ActionRespondDirectly}
	}

	decision, ok := parseDecision(result.Content)
	if !ok {
		L_debug("orchestrator: decision output unparsable, defaulting to respond_directly", "sid", sid, "raw", result.Content)
		return types.DecisionOutput{Action: types.ActionRespondDirectly}
	}

	// Step 5: hallucination guard.
	if decision.Action == types.ActionCallTool {
		if decision.ToolName == "" || !o.tools.Has(decision.ToolName) || decision.Parameters == nil {
			L_warn("orchestrator: decision named unknown tool or omitted parameters, forcing respond_directly",
				"sid", sid, "tool_name", decision.ToolName)
			return types.DecisionOutput{Action: types.ActionRespondDirectly}
		}
	}
	return decision
}

// buildDecisionPrompt enumerates the tool registry with generated JSON
// examples (spec 4.3 step 4).
func (o *Orchestrator) buildDecisionPrompt() string {
	var b strings.Builder
	b.WriteString("You are a routing assistant. Decide whether the user's request requires a tool call.\n\n")
	b.WriteString(o.tools.BuildToolSummary())
	b.WriteString("\nRespond with exactly one JSON object, either:\n")
	b.WriteString(`{"action":"call_tool","tool_name":"<name>","parameters":{...}}` + "\n")
	b.WriteString(`{"action":"respond_directly"}` + "\n\n")
	b.WriteString("Examples:\n")
	b.WriteString(o.tools.ExampleCalls())
	return b.String()
}

// decisionAliases normalizes alternative key names the decision LLM may
// emit (spec 4.3 step 5: "Normalize alternative key names (e.g. 'outil' /
// 'paramètres')").
var decisionAliases = map[string]string{
	"outil":      "tool_name",
	"nom_outil":  "tool_name",
	"paramètres": "parameters",
	"parametres": "parameters",
}

// parseDecision parses the routing LLM's JSON output into a
// DecisionOutput, tolerating alternate key names before decoding.
func parseDecision(raw string) (types.DecisionOutput, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return types.DecisionOutput{}, false
	}

	var generic map[string]any
	if err := json.Unmarshal([]byte(raw), &generic); err != nil {
		return types.DecisionOutput{}, false
	}

	normalized := make(map[string]any, len(generic))
	for key, value := range generic {
		if canonical, ok := decisionAliases[strings.ToLower(key)]; ok {
			normalized[canonical] = value
		} else {
			normalized[key] = value
		}
	}

	normalizedJSON, err := json.Marshal(normalized)
	if err != nil {
		return types.DecisionOutput{}, false
	}

	var decision types.DecisionOutput
	if err := json.Unmarshal(normalizedJSON, &decision); err != nil {
		return types.DecisionOutput{}, false
	}
	if decision.Action == "" {
		return types.DecisionOutput{}, false
	}
	return decision, true
}

func userMessage(text string) types.Message {
	raw, _ := json.Marshal(text)
	return types.Message{Role: "user", RawContent: raw}
}
