package orchestrator

import (
	"context"
	"os"
	"strings"

	"github.com/harpou-com/llm-gateway/internal/llmconnector"
	. "github.com/harpou-com/llm-gateway/internal/logging"
	"github.com/harpou-com/llm-gateway/internal/principal"
	"github.com/harpou-com/llm-gateway/internal/types"
)

const genericPersona = "You are a helpful assistant. Answer clearly and concisely."

// buildSynthesisPrompt constructs the final system prompt (spec 4.3 step
// 7): a time-context line, then either a strict tool-output-only
// instruction, the principal's persona file, or a generic fallback.
func (o *Orchestrator) buildSynthesisPrompt(toolUsed bool, toolOutput string, p principal.Principal) string {
	var b strings.Builder
	b.WriteString(timeContextLine(o.cfg.Timezone))
	b.WriteString("\n\n")

	switch {
	case toolUsed:
		b.WriteString("Use ONLY the research information below to answer the user. ")
		b.WriteString("If the information needed is not present, say so explicitly rather than guessing.\n\n")
		b.WriteString("## Research Information\n")
		b.WriteString(toolOutput)
	case p.PersonaPromptFile != "":
		if persona, err := os.ReadFile(p.PersonaPromptFile); err == nil {
			b.WriteString(strings.TrimSpace(string(persona)))
		} else {
			L_warn("orchestrator: failed to load persona prompt file, using generic persona",
				"file", p.PersonaPromptFile, "error", err)
			b.WriteString(genericPersona)
		}
	default:
		b.WriteString(genericPersona)
	}
	return b.String()
}

// apologizeViaLLM implements spec 4.3 step 9's error path: attempt a
// secondary LLM call to generate a polite apology referencing the
// configured admin email, falling back to a hard-coded apology if that
// call also fails.
func (o *Orchestrator) apologizeViaLLM(ctx context.Context, modelID, reason string) string {
	prompt := "Generate a brief, polite apology to the user explaining that their request could not " +
		"be completed due to a technical issue. Do not expose internal error details."
	if o.cfg.SystemAdminEmail != "" {
		prompt += " Mention that if the problem persists, they can contact " + o.cfg.SystemAdminEmail + "."
	}

	result, err := o.connector.ChatCompletion(ctx, modelID, []types.Message{
		userMessage("The underlying error was: " + reason),
	}, llmconnector.ChatOptions{SystemPrompt: prompt})
	if err != nil {
		L_error("orchestrator: secondary apology call also failed, using hard-coded apology", "error", err)
		return apologize()
	}

	content := strings.TrimSpace(result.Content)
	if content == "" {
		return apologize()
	}
	return content
}
