// Package principal resolves bearer keys to authenticated callers (spec
// component C10) and enforces their per-principal rate limits (spec 4.6).
package principal

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/harpou-com/llm-gateway/internal/config"
)

// AnonymousUsername names the principal attached to requests when no keys are
// configured at all (spec 4.6: "accepted as an anonymous public_access
// principal, for boot-strapping").
const AnonymousUsername = "public_access"

// Principal is a resolved, authenticated caller (spec 3).
type Principal struct {
	Username          string
	DisplayName       string
	RateLimit         string // "N/hour" | "unlimited"
	PersonaPromptFile string
}

// Registry is the list of bearer key -> Principal entries, built at boot
// and replaced wholesale (never edited in place) by Reload, plus
// the per-principal rate limiters (which do carry mutable state, unlike the
// registry itself — spec 5 keeps the dictionary read-only but says nothing
// forbidding mutable counters alongside it).
//
// Deviates from spec 3's "indexed into a hash map for O(1) lookup": a
// bcrypt hash is salted per-entry, so there is no plaintext key to index a
// map by without storing the secret itself — VerifyKey instead does a
// linear scan, running bcrypt's comparison against each candidate. Fine
// for the user-list sizes this gateway targets; a deployment with many
// thousands of keys would want to index by a fast, non-bcrypt prefix of
// the key instead.
type Registry struct {
	dataMu    sync.RWMutex
	byKeyHash []keyedPrincipal // opaque-secret match list; see VerifyKey
	anonymous bool             // true when no keys are configured

	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter

	defaultRateLimit string
}

type keyedPrincipal struct {
	hash      string
	principal Principal
}

// New builds a principal Registry from config.Users. When users is empty,
// every request is treated as the anonymous public_access principal (spec
// 4.6 bootstrap rule).
func New(users []config.UserConfig, defaultRateLimit string) *Registry {
	r := &Registry{
		limiters:         make(map[string]*rate.Limiter),
		defaultRateLimit: defaultRateLimit,
	}
	if len(users) == 0 {
		r.anonymous = true
		return r
	}
	for _, u := range users {
		r.byKeyHash = append(r.byKeyHash, keyedPrincipal{
			hash: u.Key,
			principal: Principal{
				Username:          u.Username,
				DisplayName:       u.DisplayName,
				RateLimit:         u.RateLimit,
				PersonaPromptFile: u.PersonaPromptFile,
			},
		})
	}
	return r
}

// VerifyKey resolves a bearer key to a Principal. The configured key value
// may be a bcrypt hash (stored form, teacher idiom from internal/user) or a
// plain secret (dev convenience) — both are supported, matching the
// teacher's verifyHash dual-mode check.
func (r *Registry) VerifyKey(key string) (Principal, bool) {
	r.dataMu.RLock()
	defer r.dataMu.RUnlock()

	if r.anonymous {
		return Principal{Username: AnonymousUsername, RateLimit: "unlimited"}, true
	}
	if key == "" {
		return Principal{}, false
	}
	for _, kp := range r.byKeyHash {
		if matchSecret(kp.hash, key) {
			return kp.principal, true
		}
	}
	return Principal{}, false
}

// Reload atomically replaces the user list, the same way New built it
// initially. Called by the gateway-server configwatch hot-reload (spec 5's
// "hot-swaps the in-memory registries" live-reload) when the config file
// changes on disk; in-flight VerifyKey calls either see the old list
// entirely or the new one, never a partial mix.
func (r *Registry) Reload(users []config.UserConfig, defaultRateLimit string) {
	var byKeyHash []keyedPrincipal
	for _, u := range users {
		byKeyHash = append(byKeyHash, keyedPrincipal{
			hash: u.Key,
			principal: Principal{
				Username:          u.Username,
				DisplayName:       u.DisplayName,
				RateLimit:         u.RateLimit,
				PersonaPromptFile: u.PersonaPromptFile,
			},
		})
	}

	r.dataMu.Lock()
	r.byKeyHash = byKeyHash
	r.anonymous = len(users) == 0
	r.defaultRateLimit = defaultRateLimit
	r.dataMu.Unlock()
}

func matchSecret(stored, presented string) bool {
	if len(stored) > 4 && strings.HasPrefix(stored, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(presented)) == nil
	}
	return stored == presented
}

// HashKey produces a bcrypt hash suitable for storing in config.UserConfig.Key.
func HashKey(secret string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	return string(h), err
}

// ctxKey is the request-context key under which a resolved Principal is
// memoized (spec 4.7: "resolved once per request and memoized... repeated
// decorators must not trigger repeated lookups").
type ctxKey struct{}

// WithPrincipal returns a context carrying the resolved principal.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext retrieves the principal memoized by WithPrincipal.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}

// Allow enforces the principal's rate limit (spec 4.6), keyed by username
// (falling back to clientIP only ever applies when resolution genuinely
// failed to produce a principal — in practice every request reaching here
// has one, anonymous or not).
func (r *Registry) Allow(p Principal, clientIP string) bool {
	limitSpec := p.RateLimit
	if limitSpec == "" {
		r.dataMu.RLock()
		limitSpec = r.defaultRateLimit
		r.dataMu.RUnlock()
	}
	if limitSpec == "" || strings.EqualFold(limitSpec, "unlimited") {
		return true
	}

	key := p.Username
	if key == "" {
		key = clientIP
	}

	limiter := r.limiterFor(key, limitSpec)
	return limiter.Allow()
}

func (r *Registry) limiterFor(key, limitSpec string) *rate.Limiter {
	r.limiterMu.Lock()
	defer r.limiterMu.Unlock()

	if l, ok := r.limiters[key]; ok {
		return l
	}

	perSecond, burst := parseRateLimit(limitSpec)
	l := rate.NewLimiter(perSecond, burst)
	r.limiters[key] = l
	return l
}

// parseRateLimit parses strings like "100/hour", "10/minute", "5/second"
// into a rate.Limit (events per second) and a burst size equal to the
// window's full allowance, so a caller can use its whole quota immediately
// and then refills at the steady rate.
func parseRateLimit(spec string) (rate.Limit, int) {
	parts := strings.SplitN(spec, "/", 2)
	n, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || n <= 0 {
		n = 1
	}
	window := time.Hour
	if len(parts) == 2 {
		switch strings.ToLower(strings.TrimSpace(parts[1])) {
		case "second", "sec", "s":
			window = time.Second
		case "minute", "min", "m":
			window = time.Minute
		case "hour", "h":
			window = time.Hour
		case "day", "d":
			window = 24 * time.Hour
		}
	}
	perSecond := rate.Limit(float64(n) / window.Seconds())
	return perSecond, n
}
