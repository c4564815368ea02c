package auth

import (
	"errors"
	"testing"
	"time"
)

const (
	testSecret = "test-secret"
	testIssuer = "gescard-test"
)

func newTestAuthenticator(t *testing.T, opts ...AuthenticatorOption) (*Authenticator, *RevocationStore) {
	t.Helper()
	revoked := NewRevocationStore(SweepBlanket, 0)
	a := NewAuthenticator(testSecret, testIssuer, 8*time.Hour, revoked, opts...)
	return a, revoked
}

func kindOf(t *testing.T, err error) ErrorKind {
	t.Helper()
	var authError *Error
	if !errors.As(err, &authError) {
		t.Fatalf("expected *auth.Error, got %T: %v", err, err)
	}
	return authError.Kind
}

func TestIssueAuthenticateRoundtrip(t *testing.T) {
	a, _ := newTestAuthenticator(t)

	credential, err := a.Issue("u1", "Chef d'équipe", "Abidjan")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	identity, err := a.Authenticate(credential)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if identity.SubjectID != "u1" {
		t.Errorf("subject = %q", identity.SubjectID)
	}
	if identity.Role != RoleChefEquipe {
		t.Errorf("role = %v, want RoleChefEquipe", identity.Role)
	}
	if identity.Coordination != "Abidjan" {
		t.Errorf("coordination = %q", identity.Coordination)
	}
	if identity.PermissionLevel != 60 {
		t.Errorf("permission level = %d, want 60", identity.PermissionLevel)
	}
}

func TestAuthenticateMissingCredential(t *testing.T) {
	a, _ := newTestAuthenticator(t)
	for _, credential := range []string{"", "   "} {
		_, err := a.Authenticate(credential)
		if kindOf(t, err) != KindMissingCredential {
			t.Errorf("Authenticate(%q) kind = %v, want missing", credential, kindOf(t, err))
		}
	}
}

func TestAuthenticateMalformed(t *testing.T) {
	a, _ := newTestAuthenticator(t)

	_, err := a.Authenticate("not-a-jwt")
	if kindOf(t, err) != KindMalformed {
		t.Fatalf("kind = %v, want malformed", kindOf(t, err))
	}

	// A credential signed with a different secret must also read as malformed.
	other := NewAuthenticator("other-secret", testIssuer, time.Hour, nil)
	forged, err := other.Issue("u1", "admin", "")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	_, err = a.Authenticate(forged)
	if kindOf(t, err) != KindMalformed {
		t.Fatalf("forged credential kind = %v, want malformed", kindOf(t, err))
	}
}

func TestAuthenticateExpired(t *testing.T) {
	current := time.Now()
	clock := func() time.Time { return current }
	a, _ := newTestAuthenticator(t, WithClock(clock))

	credential, err := a.Issue("u1", "admin", "")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	current = current.Add(9 * time.Hour)
	_, err = a.Authenticate(credential)
	if kindOf(t, err) != KindExpired {
		t.Fatalf("kind = %v, want expired", kindOf(t, err))
	}
}

func TestAuthenticateRevoked(t *testing.T) {
	a, _ := newTestAuthenticator(t)

	credential, err := a.Issue("u1", "admin", "")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	a.Revoke(credential)

	_, err = a.Authenticate(credential)
	if kindOf(t, err) != KindRevoked {
		t.Fatalf("kind = %v, want revoked", kindOf(t, err))
	}
}

func TestAuthenticateUnknownRoleBaseline(t *testing.T) {
	a, _ := newTestAuthenticator(t)

	credential, err := a.Issue("u1", "stagiaire", "")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	identity, err := a.Authenticate(credential)
	if err != nil {
		t.Fatalf("authentication must succeed even for unknown roles: %v", err)
	}
	if identity.Role != RoleUnknown {
		t.Fatalf("role = %v, want RoleUnknown", identity.Role)
	}
	if identity.PermissionLevel != 0 {
		t.Fatalf("permission level = %d, want 0", identity.PermissionLevel)
	}
	if identity.Actions.Allows(ActionWrite) || identity.Actions.Allows(ActionDelete) {
		t.Fatal("baseline actions must never include writes")
	}
	if !identity.Actions.Allows(ActionRead) {
		t.Fatal("baseline must include read")
	}
}

func TestAuthenticateAPIToken(t *testing.T) {
	a, _ := newTestAuthenticator(t, WithAPIToken("site-static-token"))

	identity, err := a.Authenticate("site-static-token")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if identity.Role != RoleAPIClient {
		t.Fatalf("role = %v, want RoleAPIClient", identity.Role)
	}
	if !identity.Actions.Allows(ActionSync) {
		t.Fatal("api client must be granted sync")
	}
	if identity.Actions.Allows(ActionWrite) {
		t.Fatal("api client must not be granted write")
	}
}

func TestExtractBearer(t *testing.T) {
	tests := []struct {
		header   string
		want     string
		wantKind ErrorKind
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", ""},
		{"bearer abc", "abc", ""},
		{"", "", KindMissingCredential},
		{"Bearer ", "", KindMissingCredential},
		{"Basic dXNlcg==", "", KindMalformed},
		{"abc.def.ghi", "", KindMalformed},
	}
	for _, tt := range tests {
		got, err := ExtractBearer(tt.header)
		if tt.wantKind == "" {
			if err != nil {
				t.Errorf("ExtractBearer(%q) error: %v", tt.header, err)
				continue
			}
			if got != tt.want {
				t.Errorf("ExtractBearer(%q) = %q, want %q", tt.header, got, tt.want)
			}
			continue
		}
		if err == nil {
			t.Errorf("ExtractBearer(%q) expected error", tt.header)
			continue
		}
		if kindOf(t, err) != tt.wantKind {
			t.Errorf("ExtractBearer(%q) kind = %v, want %v", tt.header, kindOf(t, err), tt.wantKind)
		}
	}
}

func TestRefreshThreshold(t *testing.T) {
	current := time.Now()
	clock := func() time.Time { return current }
	a, _ := newTestAuthenticator(t, WithClock(clock), WithRefreshThreshold(30*time.Minute))

	credential, err := a.Issue("u1", "gestionnaire", "Bouaké")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Plenty of validity left: no re-issue.
	if _, renewed, err := a.Refresh(credential); err != nil || renewed {
		t.Fatalf("Refresh with fresh credential = (%v, %v), want no-op", renewed, err)
	}

	// Cross below the threshold: re-issue with the same claims.
	current = current.Add(8*time.Hour - 10*time.Minute)
	replacement, renewed, err := a.Refresh(credential)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if !renewed {
		t.Fatal("expected a re-issued credential below the threshold")
	}
	identity, err := a.Authenticate(replacement)
	if err != nil {
		t.Fatalf("replacement failed authentication: %v", err)
	}
	if identity.SubjectID != "u1" || identity.Role != RoleGestionnaire || identity.Coordination != "Bouaké" {
		t.Fatalf("replacement identity diverged: %+v", identity)
	}
	if !identity.ExpiresAt.After(current.Add(7 * time.Hour)) {
		t.Fatal("replacement must carry a fresh expiry")
	}
}

func TestRefreshExpiredCredential(t *testing.T) {
	current := time.Now()
	clock := func() time.Time { return current }
	a, _ := newTestAuthenticator(t, WithClock(clock))

	credential, _ := a.Issue("u1", "admin", "")
	current = current.Add(9 * time.Hour)
	if _, _, err := a.Refresh(credential); kindOf(t, err) != KindExpired {
		t.Fatal("an expired credential must not be refreshable")
	}
}

func TestRefreshRevokedCredential(t *testing.T) {
	current := time.Now()
	clock := func() time.Time { return current }
	a, _ := newTestAuthenticator(t, WithClock(clock))

	credential, _ := a.Issue("u1", "admin", "")
	a.Revoke(credential)

	// Even below the refresh threshold, a revoked credential must not be
	// exchanged for a fresh one.
	current = current.Add(8*time.Hour - 5*time.Minute)
	_, renewed, err := a.Refresh(credential)
	if renewed {
		t.Fatal("revoked credential must not be re-issued")
	}
	if kindOf(t, err) != KindRevoked {
		t.Fatalf("kind = %v, want revoked", kindOf(t, err))
	}
}

func TestRevocationSweepBlanket(t *testing.T) {
	store := NewRevocationStore(SweepBlanket, 0)
	store.Revoke("cred-a", time.Now().Add(time.Hour))
	store.Revoke("cred-b", time.Now().Add(2*time.Hour))
	if store.Len() != 2 {
		t.Fatalf("Len = %d, want 2", store.Len())
	}

	store.Sweep()

	// Blanket amnesty: everything is gone, including entries whose
	// credentials are still valid.
	if store.Len() != 0 {
		t.Fatalf("Len after blanket sweep = %d, want 0", store.Len())
	}
	if store.IsRevoked("cred-a") {
		t.Fatal("cred-a should have been amnestied")
	}
}

func TestRevocationSweepPerEntry(t *testing.T) {
	store := NewRevocationStore(SweepPerEntry, 0)
	now := time.Now()
	store.now = func() time.Time { return now }

	store.Revoke("stale", now.Add(-time.Minute))
	store.Revoke("live", now.Add(time.Hour))

	store.Sweep()

	if store.IsRevoked("stale") {
		t.Fatal("entry past its credential expiry should be pruned")
	}
	if !store.IsRevoked("live") {
		t.Fatal("entry with remaining validity must survive the sweep")
	}
}
