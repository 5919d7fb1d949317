package llmconnector

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gabriel-vasile/mimetype"

	. "github.com/harpou-com/llm-gateway/internal/logging"
	"github.com/harpou-com/llm-gateway/internal/types"
)

const (
	imageFetchTimeout = 10 * time.Second
	imageFetchRetries = 1 // one retry on transient error, per spec 4.1
)

var imageHTTPClient = &http.Client{Timeout: imageFetchTimeout}

// InlineImages walks a conversation's messages and replaces every
// http(s) image_url part with a base64 data: URI (spec 4.1). It reports
// whether any substitution occurred, so the caller can disable JSON mode
// (upstream incompatibility) when it did. Already-encoded (data:) URLs are
// left untouched, making the pass idempotent (spec testable property 4).
func InlineImages(ctx context.Context, messages []types.Message) ([]types.Message, bool, error) {
	substituted := false
	out := make([]types.Message, len(messages))

	for i, m := range messages {
		parts, err := m.Parts()
		if err != nil || len(parts) == 0 {
			out[i] = m
			continue
		}

		changed := false
		for j, p := range parts {
			if p.Kind != "image_url" {
				continue
			}
			if !isFetchableURL(p.URL) {
				continue
			}
			dataURI, ok := fetchAndEncode(ctx, p.URL)
			if !ok {
				// SPEC_FULL.md section C.2: leave the original URL in place
				// and log a warning rather than failing the whole request.
				L_warn("llmconnector: image inlining failed, leaving URL as-is", "url", p.URL)
				continue
			}
			parts[j].URL = dataURI
			changed = true
			substituted = true
		}

		if !changed {
			out[i] = m
			continue
		}

		raw, err := json.Marshal(parts)
		if err != nil {
			out[i] = m
			continue
		}
		out[i] = types.Message{Role: m.Role, RawContent: raw}
	}

	return out, substituted, nil
}

func isFetchableURL(url string) bool {
	return len(url) > 7 && (url[:7] == "http://" || (len(url) > 8 && url[:8] == "https://"))
}

// fetchAndEncode fetches an image URL with one retry on transient error and
// returns a base64 data: URI with a sniffed MIME type.
func fetchAndEncode(ctx context.Context, url string) (string, bool) {
	var body []byte
	var err error

	for attempt := 0; attempt <= imageFetchRetries; attempt++ {
		body, err = fetchOnce(ctx, url)
		if err == nil {
			break
		}
	}
	if err != nil {
		return "", false
	}

	mime := mimetype.Detect(body)
	encoded := base64.StdEncoding.EncodeToString(body)
	return "data:" + mime.String() + ";base64," + encoded, true
}

func fetchOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := imageHTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}
