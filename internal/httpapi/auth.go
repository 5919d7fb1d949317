package httpapi

import (
	"net/http"
	"strings"

	. "github.com/harpou-com/llm-gateway/internal/logging"
	"github.com/harpou-com/llm-gateway/internal/principal"
)

// authenticate reads "Authorization: Bearer <key>" and resolves it to a
// Principal via the C10 registry (spec 4.6/4.7).
func (s *Server) authenticate(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := bearerKey(r.Header.Get("Authorization"))

		p, ok := s.principals.VerifyKey(key)
		if !ok {
			L_warn("httpapi: auth failed", "ip", clientIP(r))
			writeOpenAIError(w, http.StatusUnauthorized, "invalid_api_key", "Invalid or missing API key")
			return
		}

		ctx := principal.WithPrincipal(r.Context(), p)
		handler(w, r.WithContext(ctx))
	}
}

// rateLimit enforces the principal's per-identity quota (spec 4.6).
func (s *Server) rateLimit(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _ := principal.FromContext(r.Context())
		if !s.principals.Allow(p, clientIP(r)) {
			L_warn("httpapi: rate limited", "user", p.Username)
			writeOpenAIError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "Rate limit exceeded")
			return
		}
		handler(w, r)
	}
}

func bearerKey(authHeader string) string {
	const prefix = "Bearer "
	if strings.HasPrefix(authHeader, prefix) {
		return strings.TrimSpace(authHeader[len(prefix):])
	}
	return ""
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
