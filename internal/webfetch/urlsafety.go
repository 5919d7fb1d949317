package webfetch

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	. "github.com/harpou-com/llm-gateway/internal/logging"
)

// urlSafetyError reports a URL blocked for SSRF-safety reasons before the
// Reader is allowed to dial it. C4's api_call tools make their own
// requests and are not checked here.
type urlSafetyError struct {
	URL    string
	Reason string
}

func (e *urlSafetyError) Error() string {
	return fmt.Sprintf("webfetch: URL blocked: %s", e.Reason)
}

// validateURLSafety rejects loopback, private, link-local, and cloud
// metadata destinations so tool-driven fetches can't be used to reach
// internal infrastructure.
func validateURLSafety(urlStr string) error {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return &urlSafetyError{URL: urlStr, Reason: fmt.Sprintf("invalid URL: %v", err)}
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return &urlSafetyError{URL: urlStr, Reason: fmt.Sprintf("scheme %q not allowed, only http/https", parsed.Scheme)}
	}

	host := parsed.Hostname()
	if host == "" {
		return &urlSafetyError{URL: urlStr, Reason: "empty hostname"}
	}

	if isCloudMetadataHost(host) {
		return &urlSafetyError{URL: urlStr, Reason: fmt.Sprintf("cloud metadata hostname blocked: %s", host)}
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		ip := net.ParseIP(host)
		if ip == nil {
			return &urlSafetyError{URL: urlStr, Reason: fmt.Sprintf("DNS resolution failed: %v", err)}
		}
		ips = []net.IP{ip}
	}

	for _, ip := range ips {
		if reason := isBlockedIP(ip); reason != "" {
			L_debug("webfetch: blocked IP", "url", urlStr, "host", host, "ip", ip.String(), "reason", reason)
			return &urlSafetyError{URL: urlStr, Reason: fmt.Sprintf("%s (%s resolves to %s)", reason, host, ip.String())}
		}
	}
	return nil
}

func isBlockedIP(ip net.IP) string {
	switch {
	case ip.IsLoopback():
		return "loopback address blocked"
	case ip.IsPrivate():
		return "private network address blocked"
	case ip.IsLinkLocalUnicast():
		return "link-local address blocked"
	case ip.IsLinkLocalMulticast() || ip.IsInterfaceLocalMulticast() || ip.IsMulticast():
		return "multicast address blocked"
	case ip.IsUnspecified():
		return "unspecified address blocked"
	case ip.Equal(net.ParseIP("169.254.169.254")):
		return "cloud metadata address blocked"
	}
	if ip4 := ip.To4(); ip4 != nil && !ip.Equal(ip4) {
		if reason := isBlockedIP(ip4); reason != "" {
			return reason + " (IPv4-mapped)"
		}
	}
	return ""
}

func isCloudMetadataHost(host string) bool {
	host = strings.ToLower(host)
	metadataHosts := []string{
		"metadata.google.internal",
		"metadata.goog",
		"kubernetes.default.svc",
		"kubernetes.default",
		"metadata",
	}
	for _, mh := range metadataHosts {
		if host == mh || strings.HasSuffix(host, "."+mh) {
			return true
		}
	}
	return false
}
