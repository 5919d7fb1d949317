package orchestrator

import (
	"testing"

	"github.com/harpou-com/llm-gateway/internal/types"
)

func TestParseDecisionRespondDirectly(t *testing.T) {
	decision, ok := parseDecision(`{"action":"respond_directly"}`)
	if !ok {
		t.Fatal("parseDecision() failed to parse a valid respond_directly payload")
	}
	if decision.Action != types.ActionRespondDirectly {
		t.Errorf("Action = %q, want %q", decision.Action, types.ActionRespondDirectly)
	}
}

func TestParseDecisionCallTool(t *testing.T) {
	decision, ok := parseDecision(`{"action":"call_tool","tool_name":"web_search","parameters":{"query":"weather"}}`)
	if !ok {
		t.Fatal("parseDecision() failed to parse a valid call_tool payload")
	}
	if decision.ToolName != "web_search" {
		t.Errorf("ToolName = %q, want web_search", decision.ToolName)
	}
	if decision.Parameters["query"] != "weather" {
		t.Errorf("Parameters = %+v", decision.Parameters)
	}
}

func TestParseDecisionNormalizesFrenchAliases(t *testing.T) {
	decision, ok := parseDecision(`{"action":"call_tool","outil":"web_search","paramètres":{"query":"weather"}}`)
	if !ok {
		t.Fatal("parseDecision() failed to parse a payload using French key aliases")
	}
	if decision.ToolName != "web_search" {
		t.Errorf("ToolName after alias normalization = %q, want web_search", decision.ToolName)
	}
	if decision.Parameters["query"] != "weather" {
		t.Errorf("Parameters after alias normalization = %+v", decision.Parameters)
	}
}

func TestParseDecisionNormalizesASCIIParametresAlias(t *testing.T) {
	decision, ok := parseDecision(`{"action":"call_tool","nom_outil":"web_search","parametres":{"query":"x"}}`)
	if !ok {
		t.Fatal("parseDecision() failed to parse a payload using the ASCII parametres alias")
	}
	if decision.ToolName != "web_search" || decision.Parameters["query"] != "x" {
		t.Errorf("decision = %+v", decision)
	}
}

func TestParseDecisionRejectsMalformedJSON(t *testing.T) {
	if _, ok := parseDecision("not json at all"); ok {
		t.Error("parseDecision() should reject non-JSON input")
	}
}

func TestParseDecisionRejectsEmptyAction(t *testing.T) {
	if _, ok := parseDecision(`{"tool_name":"x"}`); ok {
		t.Error("parseDecision() should reject a payload with no action field")
	}
}

func TestParseDecisionRejectsEmptyString(t *testing.T) {
	if _, ok := parseDecision(""); ok {
		t.Error("parseDecision() should reject an empty string")
	}
	if _, ok := parseDecision("   "); ok {
		t.Error("parseDecision() should reject a whitespace-only string")
	}
}

func TestUserMessageRoundTrips(t *testing.T) {
	m := userMessage("what's the weather?")
	if m.Role != "user" {
		t.Errorf("Role = %q, want user", m.Role)
	}
	if got := m.Text(); got != "what's the weather?" {
		t.Errorf("Text() = %q, want original question", got)
	}
}
