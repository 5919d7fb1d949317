package llmconnector

import (
	"testing"

	"github.com/harpou-com/llm-gateway/internal/backend"
	"github.com/harpou-com/llm-gateway/internal/config"
	"github.com/harpou-com/llm-gateway/internal/llmerr"
)

func newTestConnector(t *testing.T, cfg *config.Config) *Connector {
	t.Helper()
	registry, err := backend.New(cfg.LLMBackends)
	if err != nil {
		t.Fatalf("backend.New failed: %v", err)
	}
	return New(registry, cfg)
}

func TestResolveExplicitBackendPrefix(t *testing.T) {
	cfg := &config.Config{
		LLMBackends: []config.BackendConfig{
			{Name: "openai", Type: backend.TypeOpenAICompatible, BaseURL: "https://api.openai.com/v1"},
		},
	}
	c := newTestConnector(t, cfg)

	resolved, err := c.Resolve("openai/gpt-4o")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if resolved.BackendName != "openai" || resolved.RawModel != "gpt-4o" {
		t.Errorf("Resolve() = %+v, want backend=openai model=gpt-4o", resolved)
	}
}

func TestResolveUnknownBackendPrefix(t *testing.T) {
	cfg := &config.Config{LLMBackends: []config.BackendConfig{
		{Name: "openai", Type: backend.TypeOpenAICompatible, BaseURL: "https://api.openai.com/v1"},
	}}
	c := newTestConnector(t, cfg)

	_, err := c.Resolve("nonexistent/gpt-4o")
	if err == nil || err.Kind != llmerr.KindBackendNotFound {
		t.Errorf("Resolve() error = %v, want KindBackendNotFound", err)
	}
}

func TestResolveBareModelFallsBackToPrimary(t *testing.T) {
	cfg := &config.Config{
		PrimaryBackendName: "ollama",
		LLMBackends: []config.BackendConfig{
			{Name: "ollama", Type: backend.TypeOllamaCompatible, BaseURL: "http://ollama:11434"},
		},
	}
	c := newTestConnector(t, cfg)

	resolved, err := c.Resolve("llama3")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if resolved.BackendName != "ollama" || resolved.RawModel != "llama3" {
		t.Errorf("Resolve() = %+v, want backend=ollama model=llama3", resolved)
	}
}

func TestResolveBareModelWithoutPrimaryConfigured(t *testing.T) {
	cfg := &config.Config{}
	c := newTestConnector(t, cfg)

	_, err := c.Resolve("llama3")
	if err == nil || err.Kind != llmerr.KindConfigMissing {
		t.Errorf("Resolve() error = %v, want KindConfigMissing", err)
	}
}

func TestRoutingModelIDWithoutRoutingBackendFallsBackToCaller(t *testing.T) {
	cfg := &config.Config{}
	c := newTestConnector(t, cfg)

	got, err := c.RoutingModelID("openai/gpt-4o")
	if err != nil {
		t.Fatalf("RoutingModelID() error = %v", err)
	}
	if got != "openai/gpt-4o" {
		t.Errorf("RoutingModelID() = %q, want caller's own model id", got)
	}
}

func TestRoutingModelIDBuildsFromRoutingBackend(t *testing.T) {
	cfg := &config.Config{
		RoutingBackendName: "router",
		LLMBackends: []config.BackendConfig{
			{Name: "router", Type: backend.TypeOpenAICompatible, BaseURL: "http://router", DefaultModel: "gpt-4o-mini"},
		},
	}
	c := newTestConnector(t, cfg)

	got, err := c.RoutingModelID("irrelevant")
	if err != nil {
		t.Fatalf("RoutingModelID() error = %v", err)
	}
	if got != "router/gpt-4o-mini" {
		t.Errorf("RoutingModelID() = %q, want %q", got, "router/gpt-4o-mini")
	}
}

func TestRoutingModelIDMissingDefaultModel(t *testing.T) {
	cfg := &config.Config{
		RoutingBackendName: "router",
		LLMBackends: []config.BackendConfig{
			{Name: "router", Type: backend.TypeOpenAICompatible, BaseURL: "http://router"},
		},
	}
	c := newTestConnector(t, cfg)

	_, err := c.RoutingModelID("irrelevant")
	if err == nil || err.Kind != llmerr.KindConfigMissing {
		t.Errorf("RoutingModelID() error = %v, want KindConfigMissing", err)
	}
}

func TestFailoverEnabled(t *testing.T) {
	tests := []struct {
		strategy string
		want     bool
	}{
		{"none", false},
		{"", false},
		{"failover", true},
	}
	for _, tt := range tests {
		c := newTestConnector(t, &config.Config{HighAvailabilityStrategy: tt.strategy})
		if got := c.failoverEnabled(); got != tt.want {
			t.Errorf("failoverEnabled() with strategy %q = %v, want %v", tt.strategy, got, tt.want)
		}
	}
}

func TestNextUntriedWalksRegistryOrderSkippingTried(t *testing.T) {
	cfg := &config.Config{
		LLMBackends: []config.BackendConfig{
			{Name: "a", Type: backend.TypeOpenAICompatible, BaseURL: "http://a"},
			{Name: "b", Type: backend.TypeOpenAICompatible, BaseURL: "http://b"},
			{Name: "c", Type: backend.TypeOpenAICompatible, BaseURL: "http://c"},
		},
	}
	c := newTestConnector(t, cfg)

	next, ok := c.nextUntried(map[string]bool{"a": true})
	if !ok || next.Name != "b" {
		t.Errorf("nextUntried() = %+v, %v, want b", next, ok)
	}

	_, ok = c.nextUntried(map[string]bool{"a": true, "b": true, "c": true})
	if ok {
		t.Error("nextUntried() with every backend tried should report false")
	}
}
