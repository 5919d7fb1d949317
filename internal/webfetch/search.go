package webfetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	. "github.com/harpou-com/llm-gateway/internal/logging"
)

// SearchResult mirrors one entry of SearXNG's JSON search response.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

type searxngResponse struct {
	Results []SearchResult `json:"results"`
}

// Searcher queries a SearXNG instance over its JSON API (spec section 6:
// `SEARXNG_BASE_URL`).
type Searcher struct {
	baseURL string
	client  *http.Client
}

// NewSearcher builds a Searcher against the configured SearXNG base URL.
func NewSearcher(cfg Config) *Searcher {
	return &Searcher{
		baseURL: cfg.SearXNGBaseURL,
		client:  &http.Client{Timeout: cfg.SearchTimeout},
	}
}

// Search runs a query against SearXNG and returns up to `count` results, in
// the order SearXNG ranked them.
func (s *Searcher) Search(ctx context.Context, query string, count int) ([]SearchResult, error) {
	if s.baseURL == "" {
		return nil, fmt.Errorf("webfetch: SEARXNG_BASE_URL not configured")
	}

	reqURL, err := url.Parse(s.baseURL + "/search")
	if err != nil {
		return nil, fmt.Errorf("webfetch: invalid SearXNG base URL: %w", err)
	}
	q := reqURL.Query()
	q.Set("q", query)
	q.Set("format", "json")
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("webfetch: failed to build search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	L_debug("webfetch: searching", "query", query, "count", count)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webfetch: search request to SearXNG failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("webfetch: failed to read search response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		L_error("webfetch: SearXNG returned non-200", "status", resp.StatusCode)
		return nil, fmt.Errorf("webfetch: SearXNG error: %s", resp.Status)
	}

	var parsed searxngResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("webfetch: failed to parse SearXNG response: %w", err)
	}

	if count > 0 && len(parsed.Results) > count {
		parsed.Results = parsed.Results[:count]
	}
	L_debug("webfetch: search complete", "query", query, "results", len(parsed.Results))
	return parsed.Results, nil
}
