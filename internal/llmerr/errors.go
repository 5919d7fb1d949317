// Package llmerr classifies connector-level failures so the failover loop
// and the HTTP surface can react to them uniformly (spec 4.1, 7).
package llmerr

import (
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Kind is one of the four failure kinds named in spec section 7.
type Kind string

const (
	KindBackendNotFound  Kind = "backend_not_found" // fatal, HTTP 400
	KindConfigMissing    Kind = "config_missing"    // fatal, HTTP 500
	KindConnectionFailed Kind = "connection_failed" // failover candidate
	KindUpstreamError    Kind = "upstream_error"    // pass through status + body
)

// Error wraps an upstream failure with its classification and, for
// KindUpstreamError, the upstream HTTP status so it can be passed through
// verbatim.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int // only meaningful for KindUpstreamError
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs a classified Error.
func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// NewUpstream constructs a KindUpstreamError carrying the status to
// propagate to the caller.
func NewUpstream(statusCode int, message string, cause error) *Error {
	return &Error{Kind: KindUpstreamError, Message: message, StatusCode: statusCode, Err: cause}
}

// Classify inspects a raw error (typically from the HTTP client or the
// go-openai SDK) and assigns it a Kind. An *openai.APIError carries the
// upstream's real HTTP status and is classified as UpstreamError with that
// status preserved verbatim (spec 7: "pass through status + body").
// Network-level failures (connection refused, DNS failure, TLS handshake
// failure, client-side timeout) that never got an APIError back are
// ConnectionFailed instead. This mirrors the original connector's
// separation of APIConnectionError/APITimeoutError (failover-eligible)
// from APIStatusError/generic APIError (not eligible).
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return NewUpstream(apiErr.HTTPStatusCode, apiErr.Message, err)
	}

	msg := err.Error()
	if IsConnectionMessage(msg) || IsTimeoutMessage(msg) {
		return New(KindConnectionFailed, msg, err)
	}
	return NewUpstream(0, msg, err)
}

// IsFailoverError reports whether a classified error should advance the
// failover loop to the next backend. Only connection/timeout failures
// qualify — protocol errors (4xx/5xx responses that made it back from the
// upstream) mean the backend is reachable and the request itself is at
// fault, so retrying against a different backend would not help (spec 4.1:
// "Protocol errors never trigger failover").
func IsFailoverError(e *Error) bool {
	return e != nil && e.Kind == KindConnectionFailed
}

// IsConnectionMessage reports whether a raw error message describes a
// transport-level failure rather than an HTTP response.
func IsConnectionMessage(msg string) bool {
	if msg == "" {
		return false
	}
	lower := strings.ToLower(msg)
	patterns := []string{
		"connection refused",
		"no such host",
		"connection reset",
		"i/o timeout",
		"eof",
		"tls handshake",
		"network is unreachable",
		"dial tcp",
		"broken pipe",
	}
	for _, p := range patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// IsTimeoutMessage reports whether a raw error message describes a client
// or gateway timeout.
func IsTimeoutMessage(msg string) bool {
	if msg == "" {
		return false
	}
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "timeout") ||
		strings.Contains(lower, "timed out") ||
		strings.Contains(lower, "deadline exceeded") ||
		strings.Contains(lower, "context canceled")
}

// UserMessage renders an OpenAI-shaped error message for a classified
// error, never leaking a raw stack trace (spec 7).
func UserMessage(e *Error) string {
	switch e.Kind {
	case KindBackendNotFound:
		return fmt.Sprintf("unknown backend: %s", e.Message)
	case KindConfigMissing:
		return fmt.Sprintf("gateway misconfigured: %s", e.Message)
	case KindConnectionFailed:
		return "upstream backend unreachable"
	case KindUpstreamError:
		return e.Message
	default:
		return "internal error"
	}
}

// HTTPStatus returns the status code an HTTP handler should respond with
// for a classified error.
func HTTPStatus(e *Error) int {
	switch e.Kind {
	case KindBackendNotFound:
		return 400
	case KindConfigMissing:
		return 500
	case KindConnectionFailed:
		return 502
	case KindUpstreamError:
		if e.StatusCode != 0 {
			return e.StatusCode
		}
		return 502
	default:
		return 500
	}
}
