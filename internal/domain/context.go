package domain

import "context"

type principalKey struct{}

// ContextPrincipal carries the authenticated identity through request context.
// UserID is opaque to the engine; it only scopes ownership.
type ContextPrincipal struct {
	UserID string
	Email  string
	Issuer string
}

// WithPrincipal stores a ContextPrincipal in the context.
func WithPrincipal(ctx context.Context, p ContextPrincipal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext extracts the ContextPrincipal from the context.
func PrincipalFromContext(ctx context.Context) (ContextPrincipal, bool) {
	p, ok := ctx.Value(principalKey{}).(ContextPrincipal)
	return p, ok
}

// RequireUserID returns the caller's user id or an AccessDeniedError when the
// context carries no identity.
func RequireUserID(ctx context.Context) (string, error) {
	p, ok := PrincipalFromContext(ctx)
	if !ok || p.UserID == "" {
		return "", ErrAccessDenied("no authenticated principal in context")
	}
	return p.UserID, nil
}
