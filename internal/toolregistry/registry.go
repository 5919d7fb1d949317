package toolregistry

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/harpou-com/llm-gateway/internal/config"
	"github.com/harpou-com/llm-gateway/internal/types"
	"github.com/harpou-com/llm-gateway/internal/webfetch"
)

// Registry is the boot-time, read-only tool registry (spec 5: "Backend
// Registry and Tool Registry: created once at boot, read-only
// thereafter").
type Registry struct {
	tools map[string]Tool
	order []string
}

// Load builds a Registry from the AVAILABLE_TOOLS[] configuration entries,
// constructing the right execution-detail variant for each (spec 4.2). A
// tool whose execution_details fail to decode, or whose name collides with
// an earlier entry, aborts the whole boot sequence — a malformed tool
// config is treated as a fatal misconfiguration, not something to run
// around.
func Load(cfgs []config.ToolConfig, searcher *webfetch.Searcher, reader *webfetch.Reader, globals map[string]string) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(cfgs))}
	for _, c := range cfgs {
		tool, err := build(c, searcher, reader, globals)
		if err != nil {
			return nil, fmt.Errorf("toolregistry: tool %q: %w", c.Name, err)
		}
		if _, exists := r.tools[c.Name]; exists {
			return nil, fmt.Errorf("toolregistry: duplicate tool name %q", c.Name)
		}
		r.tools[c.Name] = tool
		r.order = append(r.order, c.Name)
	}
	return r, nil
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Has reports whether name is a known tool (used by the orchestrator's
// hallucination guard, spec 4.3 step 5).
func (r *Registry) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

// Execute runs a tool by name, tolerating unknown names the way spec 4.2
// requires: "unknown tool or unknown type -> returns a diagnostic string;
// the orchestrator then passes the diagnostic as context rather than
// crashing."
func (r *Registry) Execute(ctx context.Context, name string, params map[string]any) string {
	t, ok := r.tools[name]
	if !ok {
		return fmt.Sprintf("Error: unknown tool %q", name)
	}
	return t.Execute(ctx, params)
}

// Definitions returns every tool's definition in registry order, for the
// decision-call system prompt (spec 4.3 step 4).
func (r *Registry) Definitions() []types.ToolDefinition {
	out := make([]types.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, ToDefinition(r.tools[name]))
	}
	return out
}

// ExampleCalls renders one `{"action":"call_tool",...}` JSON example per
// tool (spec 4.3 step 4: "includes generated JSON examples for each
// tool"), so the decision prompt shows the routing LLM exactly the shape
// it must produce.
func (r *Registry) ExampleCalls() string {
	var sb strings.Builder
	for _, name := range r.order {
		t := r.tools[name]
		sb.WriteString(fmt.Sprintf(
			`{"action":"call_tool","tool_name":%q,"parameters":%s}`+"\n",
			name, exampleParams(t.Schema()),
		))
	}
	return sb.String()
}

// exampleParams produces a minimal placeholder object from a JSON-Schema
// "properties" map, one entry per declared property.
func exampleParams(schema map[string]any) string {
	props, _ := schema["properties"].(map[string]any)
	if len(props) == 0 {
		return "{}"
	}
	var sb strings.Builder
	sb.WriteString("{")
	first := true
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !first {
			sb.WriteString(",")
		}
		first = false
		fmt.Fprintf(&sb, "%q:%q", name, "<"+name+">")
	}
	sb.WriteString("}")
	return sb.String()
}

// Count returns the number of registered tools.
func (r *Registry) Count() int { return len(r.tools) }

// BuildToolSummary renders a human-readable tool list for inclusion in a
// system prompt, grounded on the teacher's registry.BuildToolSummary.
func (r *Registry) BuildToolSummary() string {
	if len(r.tools) == 0 {
		return ""
	}
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("## Available Tools\n")
	sb.WriteString("Tool names are case-sensitive. Call tools exactly as listed.\n")
	for _, name := range names {
		t := r.tools[name]
		sb.WriteString(fmt.Sprintf("- %s: %s\n", name, truncateDescription(t.Description(), 100)))
	}
	return sb.String()
}

func truncateDescription(desc string, maxLen int) string {
	if idx := strings.Index(desc, ". "); idx > 0 && idx < maxLen {
		return desc[:idx+1]
	}
	if len(desc) <= maxLen {
		return desc
	}
	truncated := desc[:maxLen]
	if idx := strings.LastIndex(truncated, " "); idx > maxLen/2 {
		truncated = truncated[:idx]
	}
	return truncated + "..."
}
