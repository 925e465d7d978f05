package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/clawarena/arena/internal/domain"
)

// Authenticator resolves an API key to the agent that owns it.
type Authenticator interface {
	Authenticate(ctx context.Context, apiKey string) (domain.Agent, error)
}

type contextKey int

const agentKey contextKey = 0

// AgentFrom returns the authenticated agent bound to the request context
// by the Identity middleware.
func AgentFrom(ctx context.Context) (domain.Agent, bool) {
	a, ok := ctx.Value(agentKey).(domain.Agent)
	return a, ok
}

// Identity returns middleware that resolves the caller's API key (Bearer
// token or X-API-Key header) to a registered agent and binds it to the
// request context. Requests without a key pass through anonymous; use
// RequireAgent on routes that must have one.
func Identity(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			agent, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				writeUnauthorized(w, "invalid api key")
				return
			}

			ctx := context.WithValue(r.Context(), agentKey, agent)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAgent wraps a handler so it only runs with an authenticated
// agent in the context.
func RequireAgent(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := AgentFrom(r.Context()); !ok {
			writeUnauthorized(w, "missing api key")
			return
		}
		next(w, r)
	}
}

// RequireAdmin wraps a handler so it only runs when the X-Admin-Key
// header matches the configured admin key. An empty configured key
// disables the route entirely.
func RequireAdmin(adminKey string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if adminKey == "" {
			writeUnauthorized(w, "admin access disabled")
			return
		}
		got := strings.TrimSpace(r.Header.Get("X-Admin-Key"))
		// Constant-time comparison to prevent timing attacks.
		if subtle.ConstantTimeCompare([]byte(got), []byte(adminKey)) != 1 {
			writeUnauthorized(w, "invalid admin key")
			return
		}
		next(w, r)
	}
}

// extractToken looks for a token in the Authorization header (Bearer scheme)
// or in the X-API-Key header.
func extractToken(r *http.Request) string {
	// Check Authorization: Bearer <token>
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	// Check X-API-Key header.
	if key := r.Header.Get("X-API-Key"); key != "" {
		return strings.TrimSpace(key)
	}

	return ""
}

// writeUnauthorized sends a 401 response with a JSON error body.
func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
