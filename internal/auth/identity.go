// Package auth verifies bearer tokens into caller identities.
package auth

import "context"

// Identity is what the enrollment path knows about a verified caller.
// It contains facts only; mapping to a storage key happens in package identity.
type Identity struct {
	Subject       string // provider-scoped user id (sub)
	Email         string // empty when the token carries no email claim
	EmailVerified bool
}

// Authenticator verifies a raw bearer token.
// Implementations must not treat a missing email as an error; callers decide.
type Authenticator interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(ctx context.Context, token string) (*Identity, error)

func (f AuthenticatorFunc) Verify(ctx context.Context, token string) (*Identity, error) {
	return f(ctx, token)
}

type identityContextKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext returns the identity attached by the auth middleware.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(*Identity)
	return id, ok && id != nil
}
