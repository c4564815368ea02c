package auth

import (
	"context"
	"errors"
	"testing"

	apperrors "github.com/inventairecocody-sys/gescard-backend-vps-sub001/internal/shared/errors"
)

func identityFor(role Role, coordination string) *Identity {
	def, _ := Lookup(role)
	return &Identity{
		SubjectID:       "u1",
		Role:            role,
		RoleLabel:       role.Label(),
		Coordination:    coordination,
		PermissionLevel: def.PermissionLevel,
		Actions:         def.AllowedActions,
	}
}

type fakeCoordinationLookup struct {
	coordinations map[string]string
	err           error
}

func (f *fakeCoordinationLookup) CoordinationOf(_ context.Context, recordID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	coordination, ok := f.coordinations[recordID]
	if !ok {
		return "", apperrors.NotFound("carte", recordID)
	}
	return coordination, nil
}

func TestAuthorizePageDeniesNilIdentity(t *testing.T) {
	e := NewEvaluator(nil)
	err := e.AuthorizePage(nil, PageCartes)
	if err == nil {
		t.Fatal("nil identity must be denied")
	}
	if !errors.Is(err, apperrors.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestAuthorizePageUnknownRole(t *testing.T) {
	e := NewEvaluator(nil)
	identity := &Identity{SubjectID: "u1", Role: RoleUnknown, RoleLabel: "stagiaire"}
	err := e.AuthorizePage(identity, PageCartes)
	if err == nil {
		t.Fatal("unknown role must be denied")
	}
	appErr := apperrors.AsAppError(err)
	if appErr.Code != "UNKNOWN_ROLE" {
		t.Fatalf("code = %q, want UNKNOWN_ROLE", appErr.Code)
	}
	if !errors.Is(err, apperrors.ErrForbidden) {
		t.Fatal("unknown role is a denial, never a server fault")
	}
}

func TestAuthorizeActionWildcardAdmin(t *testing.T) {
	e := NewEvaluator(nil)
	admin := identityFor(RoleAdministrateur, "")

	// Including actions nobody listed anywhere.
	for _, action := range []string{ActionDelete, ActionManageAccounts, "delete-user", "purge-archive"} {
		if err := e.AuthorizeAction(admin, action); err != nil {
			t.Errorf("administrator denied %q: %v", action, err)
		}
	}
}

func TestAuthorizeActionManageAccounts(t *testing.T) {
	e := NewEvaluator(nil)
	// Gestionnaire has broad action grants but not account management.
	err := e.AuthorizeAction(identityFor(RoleGestionnaire, ""), ActionManageAccounts)
	if err == nil {
		t.Fatal("gestionnaire must not manage accounts")
	}
	if apperrors.AsAppError(err).Code != "ACTION_FORBIDDEN" {
		t.Fatalf("code = %q", apperrors.AsAppError(err).Code)
	}
}

func TestAuthorizeJournal(t *testing.T) {
	e := NewEvaluator(nil)
	if err := e.AuthorizeJournal(identityFor(RoleGestionnaire, "")); err != nil {
		t.Fatalf("gestionnaire journal access: %v", err)
	}
	if err := e.AuthorizeJournal(identityFor(RoleChefEquipe, "")); err == nil {
		t.Fatal("chef d'équipe must not read the journal")
	}
}

func TestAuthorizeStatisticsScopes(t *testing.T) {
	e := NewEvaluator(nil)

	tests := []struct {
		role    Role
		want    StatisticsScope
		wantErr bool
	}{
		{RoleAdministrateur, StatisticsAll, false},
		{RoleGestionnaire, StatisticsAll, false},
		{RoleChefEquipe, StatisticsOwnCoordination, false},
		{RoleConsultant, StatisticsOwnCoordination, false},
		{RoleAPIClient, StatisticsNone, true},
	}
	for _, tt := range tests {
		scope, err := e.AuthorizeStatistics(identityFor(tt.role, "Abidjan"))
		if tt.wantErr {
			if err == nil {
				t.Errorf("%v: expected denial", tt.role)
			}
			continue
		}
		if err != nil {
			t.Errorf("%v: %v", tt.role, err)
			continue
		}
		if scope != tt.want {
			t.Errorf("%v scope = %v, want %v", tt.role, scope, tt.want)
		}
	}
}

func TestAuthorizeColumnEditCrossCoordination(t *testing.T) {
	e := NewEvaluator(nil)
	chef := identityFor(RoleChefEquipe, "Abidjan")

	// Own coordination: allowed, columns limited.
	columns, err := e.AuthorizeColumnEdit(chef, "Abidjan")
	if err != nil {
		t.Fatalf("same coordination: %v", err)
	}
	if !columns.Contains("DELIVRANCE") || columns.Contains("NOM") {
		t.Fatal("chef d'équipe column set wrong")
	}

	// Foreign coordination: denied with the dedicated code.
	_, err = e.AuthorizeColumnEdit(chef, "Bouaké")
	if err == nil {
		t.Fatal("cross-coordination edit must be denied")
	}
	if apperrors.AsAppError(err).Code != "CROSS_COORDINATION_DENIED" {
		t.Fatalf("code = %q", apperrors.AsAppError(err).Code)
	}

	// Record without a recorded coordination: allowed.
	if _, err := e.AuthorizeColumnEdit(chef, ""); err != nil {
		t.Fatalf("record without coordination: %v", err)
	}
}

func TestAuthorizeColumnEditWildcardBypassesScoping(t *testing.T) {
	e := NewEvaluator(nil)
	// Gestionnaire holds the column wildcard, so coordination never blocks.
	gestionnaire := identityFor(RoleGestionnaire, "Abidjan")
	columns, err := e.AuthorizeColumnEdit(gestionnaire, "Bouaké")
	if err != nil {
		t.Fatalf("wildcard role blocked by coordination: %v", err)
	}
	if !columns.IsWildcard() {
		t.Fatal("expected wildcard columns")
	}
}

func TestAuthorizeRecordEdit(t *testing.T) {
	lookup := &fakeCoordinationLookup{coordinations: map[string]string{
		"c1": "Abidjan",
		"c2": "Bouaké",
	}}
	e := NewEvaluator(lookup)
	chef := identityFor(RoleChefEquipe, "Abidjan")

	if _, err := e.AuthorizeRecordEdit(context.Background(), chef, "c1"); err != nil {
		t.Fatalf("own-coordination record: %v", err)
	}

	_, err := e.AuthorizeRecordEdit(context.Background(), chef, "c2")
	if apperrors.AsAppError(err).Code != "CROSS_COORDINATION_DENIED" {
		t.Fatalf("expected cross-coordination denial, got %v", err)
	}

	_, err = e.AuthorizeRecordEdit(context.Background(), chef, "missing")
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not-found passthrough, got %v", err)
	}
}

func TestAuthorizeRecordEditStorageFault(t *testing.T) {
	lookup := &fakeCoordinationLookup{err: errors.New("connection refused")}
	e := NewEvaluator(lookup)

	_, err := e.AuthorizeRecordEdit(context.Background(), identityFor(RoleChefEquipe, "Abidjan"), "c1")
	if err == nil {
		t.Fatal("expected storage fault")
	}
	appErr := apperrors.AsAppError(err)
	if appErr.Code != "STORAGE_UNAVAILABLE" {
		t.Fatalf("code = %q, want STORAGE_UNAVAILABLE", appErr.Code)
	}
	if errors.Is(err, apperrors.ErrForbidden) {
		t.Fatal("a storage fault must never read as an authorization denial")
	}
}
