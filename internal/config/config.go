// Package config loads the flat set of keys the gateway core consumes.
//
// Loading config files, .env, and Docker secrets is an external collaborator
// per spec.md section 1 ("Out of scope") — this package only defines the
// shape the core needs and a minimal JSON loader, following the teacher
// repo's internal/config pattern of a single aggregate struct plus
// dario.cat/mergo for merging the loaded document over Defaults();
// environment variables only fill fields the document left blank.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"dario.cat/mergo"
)

// BackendConfig is one entry of llm_backends[] (spec 3, 6).
type BackendConfig struct {
	Name           string `json:"name"`
	Type           string `json:"type"` // "openai-compatible" | "ollama-compatible"
	BaseURL        string `json:"base_url"`
	APIKey         string `json:"api_key,omitempty"`
	DefaultModel   string `json:"default_model,omitempty"`
	AutoLoad       bool   `json:"auto_load"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
}

// ToolConfig is one entry of AVAILABLE_TOOLS[] (spec 3: Tool Definition).
// ExecutionDetails is left as raw JSON because its shape depends on Type;
// internal/toolregistry decodes it into the variant-specific struct.
type ToolConfig struct {
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	ParametersSchema map[string]any  `json:"parameters_schema"`
	Type             string          `json:"type"` // internal_function | api_call | search_and_read_webpage | url_from_template
	ExecutionDetails json.RawMessage `json:"execution_details"`
}

// UserConfig is one entry of users[] (spec 3: Principal / User).
type UserConfig struct {
	Key               string `json:"key"`
	Username          string `json:"username"`
	DisplayName       string `json:"display_name"`
	RateLimit         string `json:"rate_limit"` // "100/hour" | "unlimited"
	PersonaPromptFile string `json:"persona_prompt_file,omitempty"`
}

// Config aggregates every key spec.md section 6 enumerates. No field beyond
// what the core actually reads is included — multi-source precedence, CORS,
// and secret-file loading stay unimplemented per the Non-goals.
type Config struct {
	LLMBackends              []BackendConfig `json:"llm_backends"`
	PrimaryBackendName       string          `json:"primary_backend_name"`
	RoutingBackendName       string          `json:"routing_backend_name,omitempty"`
	HighAvailabilityStrategy string          `json:"high_availability_strategy"` // "none" | "failover"
	AvailableTools           []ToolConfig    `json:"AVAILABLE_TOOLS,omitempty"`
	Users                    []UserConfig    `json:"users"`
	SearXNGBaseURL           string          `json:"SEARXNG_BASE_URL,omitempty"`
	AgentModelPrefix         string          `json:"AGENT_MODEL_PREFIX,omitempty"`
	CacheUpdateIntervalMin   int             `json:"llm_cache_update_interval_minutes,omitempty"`
	BackendTimeoutSeconds    int             `json:"LLM_BACKEND_TIMEOUT,omitempty"`
	RateLimitDefault         string          `json:"RATELIMIT_DEFAULT,omitempty"`
	SystemAdminEmail         string          `json:"SYSTEM_ADMIN_EMAIL,omitempty"`
	RoutingPromptFile        string          `json:"routing_prompt_file,omitempty"`

	// Ambient, not named by spec.md's enumerated keys, but needed to boot
	// the domain-stack wiring described in SPEC_FULL.md section B.
	RedisURL    string `json:"redis_url,omitempty"`
	HTTPAddr    string `json:"http_addr,omitempty"`
	MetricsAddr string `json:"metrics_addr,omitempty"`
	Timezone    string `json:"timezone,omitempty"`
}

// Defaults fills in the fallbacks spec.md names explicitly.
func Defaults() *Config {
	return &Config{
		HighAvailabilityStrategy: "none",
		AgentModelPrefix:         "harpou-agent/",
		CacheUpdateIntervalMin:   5,
		BackendTimeoutSeconds:    300,
		RateLimitDefault:         "unlimited",
		HTTPAddr:                 ":8080",
		MetricsAddr:              ":9090",
		Timezone:                 "UTC",
	}
}

// Load reads a JSON config document from path and merges it over Defaults().
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var loaded Config
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg := Defaults()
	if err := mergo.Merge(cfg, loaded, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("config: merge %s: %w", path, err)
	}
	applyEnvFallbacks(cfg)
	return cfg, nil
}

// applyEnvFallbacks fills secret fields the loaded document left blank from
// the environment, following the teacher's applyEnvFallbacks idiom
// (internal/config/config.go): an env var only fills a gap, it never
// overrides a value the config file already set.
func applyEnvFallbacks(cfg *Config) {
	for i := range cfg.LLMBackends {
		b := &cfg.LLMBackends[i]
		if b.APIKey != "" {
			continue
		}
		envVar := strings.ToUpper(strings.ReplaceAll(b.Name, "-", "_")) + "_API_KEY"
		if key := os.Getenv(envVar); key != "" {
			b.APIKey = key
		}
	}
	if cfg.RedisURL == "" {
		if url := os.Getenv("REDIS_URL"); url != "" {
			cfg.RedisURL = url
		}
	}
}

// Backend looks up a backend descriptor by name. Returns false if unknown.
func (c *Config) Backend(name string) (BackendConfig, bool) {
	for _, b := range c.LLMBackends {
		if b.Name == name {
			return b, true
		}
	}
	return BackendConfig{}, false
}
