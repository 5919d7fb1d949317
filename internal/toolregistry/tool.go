// Package toolregistry implements spec component C4: a boot-time, read-only
// registry of tool definitions and the executor that dispatches calls by
// type. It follows the teacher's internal/tools package shape (a Tool
// interface plus a name-keyed Registry), generalized to the spec's four
// declarative execution-detail variants instead of the teacher's fixed set
// of hand-written tool structs.
package toolregistry

import (
	"context"

	"github.com/harpou-com/llm-gateway/internal/types"
)

// Tool is the interface every registered tool implements, regardless of
// which execution_details variant backs it.
type Tool interface {
	Name() string
	Description() string
	Schema() map[string]any
	// Execute runs the tool and always returns a string, even on failure —
	// spec 4.2: "tool exceptions are caught and converted to an error
	// string; the orchestrator must tolerate error-strings as tool output."
	Execute(ctx context.Context, params map[string]any) string
}

// ToDefinition converts a Tool into the shape fed to the routing LLM's
// decision-call system prompt (spec 4.3 step 4).
func ToDefinition(t Tool) types.ToolDefinition {
	return types.ToolDefinition{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  t.Schema(),
	}
}

const (
	TypeInternalFunction     = "internal_function"
	TypeAPICall              = "api_call"
	TypeSearchAndReadWebpage = "search_and_read_webpage"
	TypeURLFromTemplate      = "url_from_template"
)
