package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrorKind classifies authentication failures. All of them are terminal for
// the request; the caller must re-authenticate.
type ErrorKind string

const (
	KindMissingCredential ErrorKind = "missing_credential"
	KindRevoked           ErrorKind = "revoked"
	KindExpired           ErrorKind = "expired"
	KindMalformed         ErrorKind = "malformed"
	KindUnknown           ErrorKind = "unknown"
)

// Error is an authentication failure with a machine-readable kind.
type Error struct {
	Kind ErrorKind
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("authentication failed (%s): %v", e.Kind, e.err)
	}
	return fmt.Sprintf("authentication failed (%s)", e.Kind)
}

func (e *Error) Unwrap() error {
	return e.err
}

func authErr(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, err: err}
}

// Claims is the JWT payload of a gescard credential.
type Claims struct {
	Role         string `json:"role"`
	Coordination string `json:"coordination,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator verifies bearer credentials and produces request identities.
// It holds no per-request state; the only mutable collaborator is the
// injected revocation store.
type Authenticator struct {
	secret           []byte
	issuer           string
	accessTTL        time.Duration
	refreshThreshold time.Duration
	revoked          *RevocationStore
	apiToken         string
	now              func() time.Time
}

// AuthenticatorOption configures the Authenticator.
type AuthenticatorOption func(*Authenticator)

// WithClock overrides the time source (used by tests).
func WithClock(now func() time.Time) AuthenticatorOption {
	return func(a *Authenticator) {
		if now != nil {
			a.now = now
		}
	}
}

// WithRefreshThreshold sets the remaining-validity threshold below which
// Refresh re-issues the credential.
func WithRefreshThreshold(d time.Duration) AuthenticatorOption {
	return func(a *Authenticator) {
		if d > 0 {
			a.refreshThreshold = d
		}
	}
}

// WithAPIToken enables the static-token path for site synchronization
// clients, which authenticate as the API client pseudo-role.
func WithAPIToken(token string) AuthenticatorOption {
	return func(a *Authenticator) {
		a.apiToken = strings.TrimSpace(token)
	}
}

// NewAuthenticator creates an Authenticator signing and verifying HS256
// credentials with the given secret.
func NewAuthenticator(secret, issuer string, accessTTL time.Duration, revoked *RevocationStore, opts ...AuthenticatorOption) *Authenticator {
	a := &Authenticator{
		secret:           []byte(secret),
		issuer:           issuer,
		accessTTL:        accessTTL,
		refreshThreshold: 30 * time.Minute,
		revoked:          revoked,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ExtractBearer pulls the credential out of an Authorization header value.
func ExtractBearer(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", authErr(KindMissingCredential, errors.New("missing authorization header"))
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", authErr(KindMalformed, errors.New("invalid authorization header format"))
	}
	credential := strings.TrimSpace(parts[1])
	if credential == "" {
		return "", authErr(KindMissingCredential, errors.New("empty bearer credential"))
	}
	return credential, nil
}

// Authenticate validates a credential and builds the request identity.
// Revocation is checked before cryptographic verification: the cheap map
// lookup rejects logged-out credentials without touching the signature.
func (a *Authenticator) Authenticate(credential string) (*Identity, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, authErr(KindMissingCredential, errors.New("no credential presented"))
	}

	if a.apiToken != "" && subtle.ConstantTimeCompare([]byte(credential), []byte(a.apiToken)) == 1 {
		return a.apiClientIdentity(), nil
	}

	if a.revoked != nil && a.revoked.IsRevoked(credential) {
		return nil, authErr(KindRevoked, errors.New("credential has been revoked"))
	}

	claims, err := a.verify(credential)
	if err != nil {
		return nil, err
	}
	return a.buildIdentity(claims), nil
}

// AuthenticateHeader extracts the bearer credential from an Authorization
// header and authenticates it, returning the raw credential alongside the
// identity for the refresh and revocation paths.
func (a *Authenticator) AuthenticateHeader(header string) (*Identity, string, error) {
	credential, err := ExtractBearer(header)
	if err != nil {
		return nil, "", err
	}
	identity, err := a.Authenticate(credential)
	if err != nil {
		return nil, "", err
	}
	return identity, credential, nil
}

// Issue signs a fresh credential for the given identity claims.
func (a *Authenticator) Issue(subjectID, role, coordination string) (string, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return "", errors.New("subject id is required")
	}
	now := a.now().UTC()
	claims := Claims{
		Role:         strings.TrimSpace(role),
		Coordination: strings.TrimSpace(coordination),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.accessTTL)),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign credential: %w", err)
	}
	return signed, nil
}

// Revoke invalidates a credential ahead of its natural expiry (logout). The
// credential's own expiry is recorded for the per-entry sweep policy; a
// credential too mangled to decode is held until the next sweep regardless.
func (a *Authenticator) Revoke(credential string) {
	credential = strings.TrimSpace(credential)
	if credential == "" || a.revoked == nil {
		return
	}
	expiry := a.now().Add(a.accessTTL)
	parser := jwt.NewParser()
	var claims Claims
	if _, _, err := parser.ParseUnverified(credential, &claims); err == nil && claims.ExpiresAt != nil {
		expiry = claims.ExpiresAt.Time
	}
	a.revoked.Revoke(credential, expiry)
}

// Refresh re-issues a credential carrying the same identity claims and a
// fresh expiry, but only when remaining validity has dropped below the
// threshold. Otherwise it silently no-ops and returns false. A revoked
// credential can never be laundered into a fresh one.
func (a *Authenticator) Refresh(credential string) (string, bool, error) {
	if a.revoked != nil && a.revoked.IsRevoked(credential) {
		return "", false, authErr(KindRevoked, errors.New("credential has been revoked"))
	}
	claims, err := a.verify(credential)
	if err != nil {
		return "", false, err
	}
	if claims.ExpiresAt == nil {
		return "", false, authErr(KindMalformed, errors.New("credential has no expiry"))
	}
	if claims.ExpiresAt.Time.Sub(a.now()) >= a.refreshThreshold {
		return "", false, nil
	}
	renewed, err := a.Issue(claims.Subject, claims.Role, claims.Coordination)
	if err != nil {
		return "", false, authErr(KindUnknown, err)
	}
	return renewed, true, nil
}

func (a *Authenticator) verify(credential string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(a.issuer),
		jwt.WithTimeFunc(func() time.Time { return a.now() }),
	)
	token, err := parser.ParseWithClaims(credential, &Claims{}, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, authErr(KindExpired, err)
		}
		return nil, authErr(KindMalformed, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, authErr(KindMalformed, errors.New("invalid claims"))
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, authErr(KindMalformed, errors.New("subject missing"))
	}
	return claims, nil
}

func (a *Authenticator) buildIdentity(claims *Claims) *Identity {
	role, label := Normalize(claims.Role)

	identity := &Identity{
		SubjectID:    claims.Subject,
		RawRole:      claims.Role,
		Role:         role,
		RoleLabel:    label,
		Coordination: strings.TrimSpace(claims.Coordination),
	}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}

	if def, ok := Lookup(role); ok {
		identity.PermissionLevel = def.PermissionLevel
		identity.Actions = def.AllowedActions
	} else {
		// Fail-safe baseline for roles without a definition: lowest
		// privilege, read only. Never grants write, delete or admin.
		identity.PermissionLevel = 0
		identity.Actions = GrantOf(ActionRead)
	}
	return identity
}

func (a *Authenticator) apiClientIdentity() *Identity {
	def, _ := Lookup(RoleAPIClient)
	return &Identity{
		SubjectID:       "site-api",
		RawRole:         "api",
		Role:            RoleAPIClient,
		RoleLabel:       RoleAPIClient.Label(),
		PermissionLevel: def.PermissionLevel,
		Actions:         def.AllowedActions,
		// Static tokens have no embedded expiry; refresh never applies.
		ExpiresAt: a.now().Add(24 * time.Hour),
	}
}
