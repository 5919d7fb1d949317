package toolregistry

import (
	"context"
	"fmt"
	"strings"

	"github.com/harpou-com/llm-gateway/internal/config"
	. "github.com/harpou-com/llm-gateway/internal/logging"
	"github.com/harpou-com/llm-gateway/internal/webfetch"
)

// internalFunctionDetails names which well-known function this tool
// dispatches to (spec 4.2: "Dispatch by well-known tool name").
type internalFunctionDetails struct {
	FunctionName   string `json:"function_name"` // "search_web" | "read_webpage"
	PagesToRead    int    `json:"pages_to_read,omitempty"`
	ExcerptsToShow int    `json:"excerpts_to_show,omitempty"`
}

type internalFunctionTool struct {
	base
	details  internalFunctionDetails
	searcher *webfetch.Searcher
	reader   *webfetch.Reader
}

func newInternalFunctionTool(c config.ToolConfig, details internalFunctionDetails, searcher *webfetch.Searcher, reader *webfetch.Reader) (Tool, error) {
	if details.FunctionName == "" {
		details.FunctionName = c.Name // fall back to the tool's own name, e.g. "search_web"
	}
	switch details.FunctionName {
	case "search_web", "read_webpage":
	default:
		return nil, fmt.Errorf("unknown internal function %q", details.FunctionName)
	}
	return &internalFunctionTool{base: newBase(c), details: details, searcher: searcher, reader: reader}, nil
}

func (t *internalFunctionTool) Execute(ctx context.Context, params map[string]any) string {
	switch t.details.FunctionName {
	case "search_web":
		return t.searchWeb(ctx, params)
	case "read_webpage":
		return t.readWebpage(ctx, params)
	default:
		return fmt.Sprintf("Error: unknown internal function %q", t.details.FunctionName)
	}
}

// searchWeb implements spec 4.2's search_web(query): search, read the top
// N results in parallel (N = pages_to_read, default 1), append
// excerpts_to_show additional results as plain snippets.
func (t *internalFunctionTool) searchWeb(ctx context.Context, params map[string]any) string {
	query, _ := params["query"].(string)
	if query == "" {
		return "Error: query is required"
	}
	if t.searcher == nil {
		return "Error: web search is not configured (SEARXNG_BASE_URL missing)"
	}

	pagesToRead := t.details.PagesToRead
	if pagesToRead <= 0 {
		pagesToRead = 1
	}
	extras := t.details.ExcerptsToShow

	results, err := t.searcher.Search(ctx, query, pagesToRead+extras)
	if err != nil {
		L_warn("toolregistry: search_web failed", "query", query, "error", err)
		return fmt.Sprintf("Error: search failed: %v", err)
	}
	if len(results) == 0 {
		return "No results found."
	}

	toRead := results
	if len(toRead) > pagesToRead {
		toRead = toRead[:pagesToRead]
	}
	urls := make([]string, len(toRead))
	for i, r := range toRead {
		urls[i] = r.URL
	}
	bodies := t.reader.ReadMany(ctx, urls, 0)

	var sb strings.Builder
	for i, r := range toRead {
		fmt.Fprintf(&sb, "### %s\n%s\n\n%s\n\n", r.Title, r.URL, bodies[i])
	}
	if len(results) > len(toRead) {
		sb.WriteString("### Additional results\n")
		for _, r := range results[len(toRead):] {
			fmt.Fprintf(&sb, "- %s (%s): %s\n", r.Title, r.URL, r.Content)
		}
	}
	return sb.String()
}

// readWebpage implements spec 4.2's read_webpage(url | [url]): accepts a
// single URL or a list, fetches each in parallel, concatenates.
func (t *internalFunctionTool) readWebpage(ctx context.Context, params map[string]any) string {
	urls := extractURLs(params)
	if len(urls) == 0 {
		return "Error: url is required"
	}
	bodies := t.reader.ReadMany(ctx, urls, 0)

	var sb strings.Builder
	for i, u := range urls {
		fmt.Fprintf(&sb, "### %s\n\n%s\n\n", u, bodies[i])
	}
	return sb.String()
}

// extractURLs pulls a "url" parameter that is either a bare string or a
// JSON array of strings (spec 4.2: "accepts a URL or a list").
func extractURLs(params map[string]any) []string {
	raw, ok := params["url"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
