package auth

import (
	"context"
	"time"
)

// Identity is the authenticated principal of one request. It is built once
// by the Authenticator, immutable afterwards, and discarded when the request
// completes. It is never persisted.
type Identity struct {
	// SubjectID identifies the authenticated user or site.
	SubjectID string
	// RawRole is the role claim exactly as the credential presented it.
	RawRole string
	// Role is the canonical role; RoleUnknown when normalization found no match.
	Role Role
	// RoleLabel is the display name used in denials and journal records; for
	// an unknown role it carries the trimmed raw string.
	RoleLabel string
	// Coordination is the organizational unit scoping data visibility for
	// non-administrator roles. Empty when the credential carried none.
	Coordination string
	// PermissionLevel mirrors the role definition, 0 for unknown roles.
	PermissionLevel int
	// Actions holds the granted action tags. Unknown roles get the
	// lowest-privilege baseline {read}; this baseline never grants writes.
	Actions Grant
	// ExpiresAt is the credential expiry, used for the refresh hint.
	ExpiresAt time.Time
}

// HasDefinition reports whether the identity's role resolves to a registry
// entry. Identities without one are denied every authorization check.
func (id *Identity) HasDefinition() bool {
	if id == nil {
		return false
	}
	_, ok := Lookup(id.Role)
	return ok
}

type identityContextKey struct{}
type credentialContextKey struct{}

// ContextWithIdentity attaches the authenticated identity to the context.
func ContextWithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// IdentityFromContext extracts the authenticated identity from the context.
func IdentityFromContext(ctx context.Context) *Identity {
	identity, ok := ctx.Value(identityContextKey{}).(*Identity)
	if !ok {
		return nil
	}
	return identity
}

// ContextWithCredential stores the raw bearer credential for the refresh and
// revocation paths.
func ContextWithCredential(ctx context.Context, credential string) context.Context {
	if credential == "" {
		return ctx
	}
	return context.WithValue(ctx, credentialContextKey{}, credential)
}

// CredentialFromContext returns the raw bearer credential if present.
func CredentialFromContext(ctx context.Context) (string, bool) {
	credential, ok := ctx.Value(credentialContextKey{}).(string)
	if !ok || credential == "" {
		return "", false
	}
	return credential, true
}
