// Package orchestrator implements spec component C7: the decision -> tool
// -> synthesis pipeline a task worker runs for every agentic chat
// completion request. It has no HTTP- or task-substrate-specific
// knowledge — it is a pure function of (conversation, sid, model id,
// principal) to a result string, the shape spec 4.3 names as its
// contract, so C6's worker can run it with at-least-once semantics
// without any special-casing.
package orchestrator

import (
	"context"
	"strings"
	"time"

	"github.com/harpou-com/llm-gateway/internal/config"
	"github.com/harpou-com/llm-gateway/internal/llmconnector"
	"github.com/harpou-com/llm-gateway/internal/llmerr"
	. "github.com/harpou-com/llm-gateway/internal/logging"
	"github.com/harpou-com/llm-gateway/internal/principal"
	"github.com/harpou-com/llm-gateway/internal/toolregistry"
	"github.com/harpou-com/llm-gateway/internal/types"
)

// internalTaskPrefix marks UI-internal requests (title/tag generation)
// that must bypass tool routing entirely (spec 4.3 step 2).
const internalTaskPrefix = "### Task:"

// Orchestrator runs the C7 pipeline over a connector (C3) and tool
// registry (C4).
type Orchestrator struct {
	connector *llmconnector.Connector
	tools     *toolregistry.Store
	cfg       *config.Config
}

// New builds an Orchestrator. tools is a *toolregistry.Store rather than a
// bare *toolregistry.Registry so the gateway-worker's configwatch
// hot-reload can swap in a freshly-built registry underneath it.
func New(connector *llmconnector.Connector, tools *toolregistry.Store, cfg *config.Config) *Orchestrator {
	return &Orchestrator{connector: connector, tools: tools, cfg: cfg}
}

// Run executes spec 4.3's nine steps and returns the final synthesized
// string — the task result a C6 worker persists.
func (o *Orchestrator) Run(ctx context.Context, conversation []types.Message, sid, modelID string, p principal.Principal) string {
	// Step 1: extract user question.
	question, ok := lastUserQuestion(conversation)
	if !ok {
		L_warn("orchestrator: last message is not from the user", "sid", sid)
		return apologize()
	}

	// Step 2: internal-task bypass.
	forceRespondDirectly := strings.HasPrefix(strings.TrimSpace(question), internalTaskPrefix)

	// Step 3: routing model selection.
	routingModel, rErr := o.connector.RoutingModelID(modelID)
	if rErr != nil {
		L_warn("orchestrator: routing model resolution failed, using caller's model", "sid", sid, "error", rErr)
		routingModel = modelID
	}

	decision := types.DecisionOutput{Action: types.ActionRespondDirectly}
	if !forceRespondDirectly && o.tools.Count() > 0 {
		decision = o.decide(ctx, routingModel, question, sid)
	}

	// Step 6: tool execution.
	var toolOutput string
	toolUsed := false
	if decision.Action == types.ActionCallTool {
		params := decision.Parameters
		if params == nil {
			params = map[string]any{}
		}
		params["_user_question"] = question
		L_info("orchestrator: executing tool", "sid", sid, "tool", decision.ToolName)
		toolOutput = o.tools.Execute(ctx, decision.ToolName, params)
		toolUsed = true
	}

	// Step 7: synthesis prompt construction.
	systemPrompt := o.buildSynthesisPrompt(toolUsed, toolOutput, p)

	// Step 8: synthesis call.
	result, err := o.connector.ChatCompletion(ctx, modelID, conversation, llmconnector.ChatOptions{
		SystemPrompt: systemPrompt,
	})
	if err != nil {
		L_error("orchestrator: synthesis call failed", "sid", sid, "error", err)
		return o.apologizeViaLLM(ctx, modelID, llmerr.UserMessage(err))
	}

	content := strings.TrimSpace(result.Content)
	if content == "" {
		return apologize()
	}
	return content
}

// lastUserQuestion returns the text content of the conversation's final
// message, if it is a user message (spec 4.3 step 1).
func lastUserQuestion(conversation []types.Message) (string, bool) {
	if len(conversation) == 0 {
		return "", false
	}
	last := conversation[len(conversation)-1]
	if last.Role != "user" {
		return "", false
	}
	return last.Text(), true
}

// timeContextLine renders spec 4.3 step 7's "always prepend a time
// context line with current local time (configurable zone; fallback UTC
// on failure)".
func timeContextLine(zoneName string) string {
	loc, err := time.LoadLocation(zoneName)
	if err != nil {
		L_debug("orchestrator: unknown timezone, falling back to UTC", "zone", zoneName, "error", err)
		loc = time.UTC
	}
	return "Current date and time: " + time.Now().In(loc).Format("Monday, January 2, 2006 15:04 MST")
}

func apologize() string {
	return "I'm sorry, I wasn't able to generate a response. Please try again."
}
