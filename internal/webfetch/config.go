// Package webfetch implements spec component C5: a SearXNG search client
// and an HTML page reader, both consumed by the tool registry (C4). The
// spec treats exact scraping heuristics as contract-only ("search +
// page-reader; used by C4") rather than prescribing extraction internals,
// so this package follows the teacher's webfetch tool structure and
// dependency choices without reproducing its UI-config plumbing.
package webfetch

import "time"

// Config configures both the search client and the page reader.
type Config struct {
	SearXNGBaseURL string        // e.g. "http://searxng:8080"
	SearchTimeout  time.Duration // default 10s, per original_source
	FetchTimeout   time.Duration // default 30s
	UseBrowser     string        // "auto" | "always" | "never"
	BrowserProfile string
	Headless       bool
}

// DefaultConfig returns sane defaults when a deployment doesn't override
// them via the gateway's JSON config.
func DefaultConfig() Config {
	return Config{
		SearchTimeout: 10 * time.Second,
		FetchTimeout:  30 * time.Second,
		UseBrowser:    "never",
		Headless:      true,
	}
}
