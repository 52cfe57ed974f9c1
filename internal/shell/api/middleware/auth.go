// Package middleware provides HTTP middleware for the advisor API.
package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/artpar/sfadvisor/internal/core/auth"
)

// =============================================================================
// Auth Configuration
// =============================================================================

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	// Secret verifies HS256 admin tokens. When empty every request is
	// treated as anonymous.
	Secret []byte

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	// Logger for auth middleware logging.
	Logger *slog.Logger
}

// =============================================================================
// Auth Middleware
// =============================================================================

// AuthMiddleware verifies bearer tokens and stores the resulting auth
// context in the request context.
type AuthMiddleware struct {
	config AuthConfig
}

// NewAuthMiddleware creates a new auth middleware with the given config.
func NewAuthMiddleware(cfg AuthConfig) *AuthMiddleware {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &AuthMiddleware{config: cfg}
}

// Handler returns the middleware handler function. Requests without a valid
// token continue unauthenticated; RequireAdmin rejects them where needed.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := auth.Context{}

		if token := auth.BearerToken(r.Header); token != "" && len(m.config.Secret) > 0 {
			parsed, err := auth.ParseToken(m.config.Secret, token, m.config.Now())
			if err != nil {
				m.config.Logger.Warn("rejected bearer token",
					"remote_addr", r.RemoteAddr,
					"path", r.URL.Path,
					"error", err,
				)
			} else {
				ctx = parsed
			}
		}

		r = r.WithContext(auth.WithContext(r.Context(), ctx))

		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// Require Admin Middleware
// =============================================================================

// RequireAdmin rejects requests that do not carry an admin token.
// Must be used AFTER AuthMiddleware.
func RequireAdmin(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := auth.FromContext(r.Context())

			if !ctx.Authenticated {
				logger.Warn("unauthenticated request to admin endpoint",
					"remote_addr", r.RemoteAddr,
					"path", r.URL.Path,
					"method", r.Method,
				)
				w.Header().Set("WWW-Authenticate", `Bearer realm="sfadvisor"`)
				writeJSONError(w, http.StatusUnauthorized, "authentication required", "unauthorized")
				return
			}

			if !auth.CanEditCatalog(ctx) {
				writeJSONError(w, http.StatusForbidden, "admin role required", "forbidden")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// =============================================================================
// JSON Error Response
// =============================================================================

// ErrorResponse is the error body shared with the API handlers.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSONError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message, Code: code})
}
