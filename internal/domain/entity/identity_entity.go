package entity

import "context"

// Identity is the caller recovered from a verified access token.
// IsAdmin is the snapshot taken when the token was issued.
type Identity struct {
	SubjectID string
	IsAdmin   bool
}

type identityCtxKey struct{}

// ContextWithIdentity returns a copy of ctx carrying id.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, id)
}

// IdentityFromContext returns the identity stored by ContextWithIdentity, if any.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityCtxKey{}).(Identity)
	if !ok {
		return nil, false
	}
	return &id, true
}
