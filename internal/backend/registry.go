// Package backend holds the immutable, boot-time registry of upstream LLM
// endpoints (spec component C2). It is read-only after construction, so no
// locking is needed — the same "built once, read forever" shape the teacher
// repo uses for its Backend Registry and Tool Registry (spec 5: "Shared-
// resource policy").
package backend

import (
	"fmt"
	"strings"
	"time"

	"github.com/harpou-com/llm-gateway/internal/config"
)

const (
	TypeOpenAICompatible = "openai-compatible"
	TypeOllamaCompatible = "ollama-compatible"

	defaultTimeout = 300 * time.Second
)

// Descriptor is the immutable backend descriptor from spec section 3.
type Descriptor struct {
	Name           string
	Type           string
	BaseURL        string
	APIKey         string
	DefaultModel   string
	AutoLoad       bool
	TimeoutSeconds int
}

// Timeout resolves the effective per-backend timeout, falling back to the
// global default when the backend doesn't set its own (SPEC_FULL.md
// section C.1).
func (d Descriptor) Timeout(globalDefault time.Duration) time.Duration {
	if d.TimeoutSeconds > 0 {
		return time.Duration(d.TimeoutSeconds) * time.Second
	}
	if globalDefault > 0 {
		return globalDefault
	}
	return defaultTimeout
}

// Registry is the immutable list of configured backends, indexed by name.
type Registry struct {
	order  []string
	byName map[string]Descriptor
}

// New builds a Registry from config, normalizing base URLs per spec 3
// ("if type=ollama, /v1 is appended to base_url when absent").
func New(cfgs []config.BackendConfig) (*Registry, error) {
	r := &Registry{byName: make(map[string]Descriptor, len(cfgs))}
	for _, c := range cfgs {
		if _, exists := r.byName[c.Name]; exists {
			return nil, fmt.Errorf("backend: duplicate name %q", c.Name)
		}
		d := Descriptor{
			Name:           c.Name,
			Type:           c.Type,
			BaseURL:        normalizeBaseURL(c.Type, c.BaseURL),
			APIKey:         c.APIKey,
			DefaultModel:   c.DefaultModel,
			AutoLoad:       c.AutoLoad,
			TimeoutSeconds: c.TimeoutSeconds,
		}
		r.byName[c.Name] = d
		r.order = append(r.order, c.Name)
	}
	return r, nil
}

func normalizeBaseURL(typ, baseURL string) string {
	if typ != TypeOllamaCompatible {
		return baseURL
	}
	if strings.HasSuffix(baseURL, "/v1") || strings.HasSuffix(baseURL, "/v1/") {
		return baseURL
	}
	return strings.TrimSuffix(baseURL, "/") + "/v1"
}

// Get returns a backend descriptor by name.
func (r *Registry) Get(name string) (Descriptor, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// OrderedNames returns backend names in registry (configuration) order —
// the order the failover loop walks (spec 4.1, design note: "explicit
// iterative loop over the backend registry in order").
func (r *Registry) OrderedNames() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of configured backends.
func (r *Registry) Len() int { return len(r.order) }
