package toolregistry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/harpou-com/llm-gateway/internal/config"
	. "github.com/harpou-com/llm-gateway/internal/logging"
)

const apiCallTimeout = 15 * time.Second

// apiCallDetails describes a templated HTTP call (spec 4.2: "api_call").
type apiCallDetails struct {
	URLTemplate string            `json:"url_template"` // "{param}" placeholders
	Method      string            `json:"method,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"` // values may contain "$ENV_VAR"
}

type apiCallTool struct {
	base
	details apiCallDetails
	client  *http.Client
}

func newAPICallTool(c config.ToolConfig, details apiCallDetails) Tool {
	if details.Method == "" {
		details.Method = http.MethodGet
	}
	return &apiCallTool{base: newBase(c), details: details, client: &http.Client{Timeout: apiCallTimeout}}
}

func (t *apiCallTool) Execute(ctx context.Context, params map[string]any) string {
	target := substituteTemplate(t.details.URLTemplate, params)

	req, err := http.NewRequestWithContext(ctx, t.details.Method, target, nil)
	if err != nil {
		return fmt.Sprintf("Error: invalid request: %v", err)
	}
	for key, value := range t.details.Headers {
		req.Header.Set(key, expandEnv(value))
	}

	L_debug("toolregistry: api_call executing", "tool", t.name, "url", target)
	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Sprintf("Error: request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Sprintf("Error: failed to read response: %v", err)
	}
	if resp.StatusCode >= 400 {
		L_warn("toolregistry: api_call non-2xx", "tool", t.name, "status", resp.StatusCode)
	}
	return string(body)
}

// substituteTemplate replaces every "{param}" placeholder with its
// URL-encoded value from params (spec 4.2: "parameters are URL-encoded
// before substitution").
func substituteTemplate(tmpl string, params map[string]any) string {
	out := tmpl
	for key, value := range params {
		placeholder := "{" + key + "}"
		if !strings.Contains(out, placeholder) {
			continue
		}
		out = strings.ReplaceAll(out, placeholder, url.QueryEscape(fmt.Sprintf("%v", value)))
	}
	return out
}

// expandEnv expands a leading "$VAR" reference to an environment variable
// so credentials flow from the process environment rather than the
// config file (spec 4.2: "headers support $ENV_VAR expansion").
func expandEnv(value string) string {
	if strings.HasPrefix(value, "$") {
		if v := os.Getenv(strings.TrimPrefix(value, "$")); v != "" {
			return v
		}
	}
	return value
}
