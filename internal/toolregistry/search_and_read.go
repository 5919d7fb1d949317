package toolregistry

import (
	"context"
	"fmt"
	"strings"

	"github.com/harpou-com/llm-gateway/internal/config"
	. "github.com/harpou-com/llm-gateway/internal/logging"
	"github.com/harpou-com/llm-gateway/internal/webfetch"
)

// searchAndReadDetails describes a canned search template (spec 4.2:
// "search_and_read_webpage").
type searchAndReadDetails struct {
	QueryTemplate string `json:"query_template"` // Go-style "%s"-free, uses {param} like url_template
	PagesToRead   int    `json:"pages_to_read,omitempty"`
}

// enrichmentKeywords trigger the get_detailed_weather auxiliary search
// rule (spec 4.2: "insect, pollen, UV, air quality, humidex").
var enrichmentKeywords = []string{"insect", "pollen", "uv", "air quality", "humidex"}

type searchAndReadTool struct {
	base
	details  searchAndReadDetails
	searcher *webfetch.Searcher
	reader   *webfetch.Reader
}

func newSearchAndReadTool(c config.ToolConfig, details searchAndReadDetails, searcher *webfetch.Searcher, reader *webfetch.Reader) Tool {
	if details.PagesToRead <= 0 {
		details.PagesToRead = 1
	}
	return &searchAndReadTool{base: newBase(c), details: details, searcher: searcher, reader: reader}
}

func (t *searchAndReadTool) Execute(ctx context.Context, params map[string]any) string {
	if t.searcher == nil || t.reader == nil {
		return "Error: web search is not configured (SEARXNG_BASE_URL missing)"
	}

	query := substituteTemplate(t.details.QueryTemplate, params)
	results, err := t.searcher.Search(ctx, query, t.details.PagesToRead)
	if err != nil {
		L_warn("toolregistry: search_and_read_webpage failed", "tool", t.name, "error", err)
		return fmt.Sprintf("Error: search failed: %v", err)
	}
	if len(results) == 0 {
		return "No results found."
	}

	urls := make([]string, len(results))
	for i, r := range results {
		urls[i] = r.URL
	}
	bodies := t.reader.ReadMany(ctx, urls, 0)

	var sb strings.Builder
	for i, r := range results {
		fmt.Fprintf(&sb, "### %s\n%s\n\n%s\n\n", r.Title, r.URL, bodies[i])
	}

	if t.name == "get_detailed_weather" {
		if question, ok := params["_user_question"].(string); ok && matchesEnrichmentKeyword(question) {
			sb.WriteString(t.enrich(ctx, query))
		}
	}

	return sb.String()
}

// enrich runs the auxiliary search and appends its top-3 snippets (spec
// 4.2: "trigger an auxiliary search and append its top-3 snippets to the
// context").
func (t *searchAndReadTool) enrich(ctx context.Context, baseQuery string) string {
	results, err := t.searcher.Search(ctx, baseQuery+" forecast detail", 3)
	if err != nil || len(results) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("### Additional details\n")
	for _, r := range results {
		fmt.Fprintf(&sb, "- %s (%s): %s\n", r.Title, r.URL, r.Content)
	}
	return sb.String()
}

func matchesEnrichmentKeyword(question string) bool {
	q := strings.ToLower(question)
	for _, kw := range enrichmentKeywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}
