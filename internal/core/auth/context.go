// Package auth provides the admin authentication context, token issuing and
// verification, password hashing, and authorization checks.
package auth

import (
	"context"
	"strings"
)

// =============================================================================
// Context Key
// =============================================================================

type contextKey string

const authContextKey contextKey = "auth"

// =============================================================================
// Types
// =============================================================================

// RoleAdmin is the only role that may edit the catalog.
const RoleAdmin = "admin"

// Context represents the authentication state of a request.
type Context struct {
	// Subject is the token subject (the admin user name).
	Subject string

	// Role is the role claim carried by the token.
	Role string

	// Authenticated indicates whether a valid token was presented.
	Authenticated bool
}

// IsAdmin reports whether the request carries a valid admin token.
func (c Context) IsAdmin() bool {
	return c.Authenticated && c.Role == RoleAdmin
}

// =============================================================================
// Header Parsing
// =============================================================================

// HeaderAuthorization carries the bearer token.
const HeaderAuthorization = "Authorization"

// HeaderGetter is an interface for getting header values.
// This allows testing without requiring an http.Request.
type HeaderGetter interface {
	Get(key string) string
}

// BearerToken extracts the raw token from an Authorization header.
// Returns "" when the header is missing or not a bearer credential.
func BearerToken(headers HeaderGetter) string {
	h := headers.Get(HeaderAuthorization)
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

// =============================================================================
// Context Storage
// =============================================================================

// WithContext stores the auth context in the request context.
func WithContext(ctx context.Context, authCtx Context) context.Context {
	return context.WithValue(ctx, authContextKey, authCtx)
}

// FromContext retrieves the auth context from the request context.
// If no auth context is found, returns an unauthenticated context.
func FromContext(ctx context.Context) Context {
	if authCtx, ok := ctx.Value(authContextKey).(Context); ok {
		return authCtx
	}
	return Context{Authenticated: false}
}

// =============================================================================
// Helper Types for Testing
// =============================================================================

// MapHeaderGetter wraps a map to implement HeaderGetter interface.
type MapHeaderGetter map[string]string

func (m MapHeaderGetter) Get(key string) string {
	return m[key]
}
