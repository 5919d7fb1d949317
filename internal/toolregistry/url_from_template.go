package toolregistry

import (
	"context"
	"fmt"
	"strings"

	"github.com/harpou-com/llm-gateway/internal/config"
	"github.com/harpou-com/llm-gateway/internal/webfetch"
)

// urlFromTemplateDetails formats a single URL from a query template with
// access to global substitutions (spec 4.2: "url_from_template").
type urlFromTemplateDetails struct {
	QueryTemplate string `json:"query_template"` // e.g. "{SEARXNG_BASE_URL}/search?q={query}"
}

type urlFromTemplateTool struct {
	base
	details urlFromTemplateDetails
	reader  *webfetch.Reader
	globals map[string]string
}

func newURLFromTemplateTool(c config.ToolConfig, details urlFromTemplateDetails, reader *webfetch.Reader, globals map[string]string) Tool {
	return &urlFromTemplateTool{base: newBase(c), details: details, reader: reader, globals: globals}
}

func (t *urlFromTemplateTool) Execute(ctx context.Context, params map[string]any) string {
	if t.reader == nil {
		return "Error: page reading is not configured"
	}

	target := t.details.QueryTemplate
	for key, value := range t.globals {
		target = strings.ReplaceAll(target, "{"+key+"}", value)
	}
	target = substituteTemplate(target, params)

	content, err := t.reader.Read(ctx, target, 0)
	if err != nil {
		return fmt.Sprintf("Error: failed to read %s: %v", target, err)
	}
	return content
}
