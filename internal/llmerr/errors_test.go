package llmerr

import (
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil error", nil, ""},
		{"connection refused", errors.New("dial tcp: connection refused"), KindConnectionFailed},
		{"timeout", errors.New("context deadline exceeded"), KindConnectionFailed},
		{"dns failure", errors.New("no such host"), KindConnectionFailed},
		{"generic upstream error", errors.New("400 Bad Request"), KindUpstreamError},
		{"already classified passes through", New(KindConfigMissing, "missing key", nil), KindConfigMissing},
		{"openai APIError", &openai.APIError{HTTPStatusCode: 429, Message: "rate limited"}, KindUpstreamError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if tt.err == nil {
				if got != nil {
					t.Fatalf("Classify(nil) = %v, want nil", got)
				}
				return
			}
			if got.Kind != tt.want {
				t.Errorf("Classify(%v).Kind = %v, want %v", tt.err, got.Kind, tt.want)
			}
		})
	}
}

func TestClassifyPreservesAPIErrorStatus(t *testing.T) {
	err := &openai.APIError{HTTPStatusCode: 429, Message: "rate limited"}
	got := Classify(err)
	if got.StatusCode != 429 {
		t.Errorf("StatusCode = %d, want 429", got.StatusCode)
	}
	if HTTPStatus(got) != 429 {
		t.Errorf("HTTPStatus() = %d, want 429 (not the 502 fallback)", HTTPStatus(got))
	}
	if got.Message != "rate limited" {
		t.Errorf("Message = %q, want %q", got.Message, "rate limited")
	}
}

func TestIsFailoverError(t *testing.T) {
	tests := []struct {
		name string
		e    *Error
		want bool
	}{
		{"nil", nil, false},
		{"connection failed", New(KindConnectionFailed, "x", nil), true},
		{"upstream error", NewUpstream(500, "x", nil), false},
		{"backend not found", New(KindBackendNotFound, "x", nil), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFailoverError(tt.e); got != tt.want {
				t.Errorf("IsFailoverError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		e    *Error
		want int
	}{
		{"backend not found", New(KindBackendNotFound, "x", nil), 400},
		{"config missing", New(KindConfigMissing, "x", nil), 500},
		{"connection failed", New(KindConnectionFailed, "x", nil), 502},
		{"upstream error with status", NewUpstream(429, "x", nil), 429},
		{"upstream error without status", NewUpstream(0, "x", nil), 502},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.e); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestUserMessageNeverLeaksCause(t *testing.T) {
	e := New(KindConnectionFailed, "dial tcp 10.0.0.1:443: connection refused", errors.New("secret internal detail"))
	msg := UserMessage(e)
	if msg != "upstream backend unreachable" {
		t.Errorf("UserMessage() = %q, want generic connection-failed message", msg)
	}
}
