// ABOUTME: Authentication context propagated from the interceptors to bridge handlers.

package auth

import "context"

// AnonymousSubject is the subject attached when auth is disabled.
const AnonymousSubject = "anonymous"

// AuthContext holds the authenticated identity of a bridge caller.
type AuthContext struct {
	Subject   string
	Anonymous bool
}

type authContextKey struct{}

// WithAuth returns a new context with the AuthContext attached.
func WithAuth(ctx context.Context, auth *AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey{}, auth)
}

// FromContext retrieves the AuthContext, or nil if absent.
func FromContext(ctx context.Context) *AuthContext {
	auth, _ := ctx.Value(authContextKey{}).(*AuthContext)
	return auth
}
