package webfetch

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"

	. "github.com/harpou-com/llm-gateway/internal/logging"
)

// renderPage launches a throwaway headless browser, navigates to urlStr,
// and returns the rendered HTML and page title. One browser process per
// call: this path is a rare fallback (see Reader.readWithBrowser), not a
// pooled resource worth the complexity of the teacher's profile manager.
func renderPage(ctx context.Context, urlStr string, headless bool) (html, title string, err error) {
	l := launcher.New().Headless(headless)
	defer l.Cleanup()

	controlURL, err := l.Launch()
	if err != nil {
		return "", "", fmt.Errorf("webfetch: failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return "", "", fmt.Errorf("webfetch: failed to connect to browser: %w", err)
	}
	defer browser.Close()

	page, err := stealth.Page(browser)
	if err != nil {
		return "", "", fmt.Errorf("webfetch: failed to create stealth page: %w", err)
	}
	defer page.Close()

	if err := page.Navigate(urlStr); err != nil {
		return "", "", fmt.Errorf("webfetch: navigation failed: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		L_warn("webfetch: page load wait timed out", "url", urlStr, "error", err)
	}

	info, err := page.Info()
	if err != nil {
		return "", "", fmt.Errorf("webfetch: failed to read page info: %w", err)
	}

	out, err := page.HTML()
	if err != nil {
		return "", "", fmt.Errorf("webfetch: failed to read rendered HTML: %w", err)
	}
	return out, info.Title, nil
}
