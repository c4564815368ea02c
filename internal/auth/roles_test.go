package auth

import "testing"

func TestLookupCoversEveryRole(t *testing.T) {
	for _, role := range Roles() {
		def, ok := Lookup(role)
		if !ok {
			t.Errorf("Lookup(%v) missing definition", role)
			continue
		}
		if def.Role != role {
			t.Errorf("Lookup(%v) returned definition for %v", role, def.Role)
		}
		if def.PermissionLevel <= 0 {
			t.Errorf("Lookup(%v) has non-positive permission level %d", role, def.PermissionLevel)
		}
	}
}

func TestLookupFailsClosed(t *testing.T) {
	if _, ok := Lookup(RoleUnknown); ok {
		t.Fatal("RoleUnknown must not resolve to a definition")
	}
	if _, ok := Lookup(Role(99)); ok {
		t.Fatal("out-of-range role must not resolve to a definition")
	}
}

func TestPermissionLevelOrdering(t *testing.T) {
	levels := map[Role]int{
		RoleAdministrateur: 100,
		RoleGestionnaire:   80,
		RoleChefEquipe:     60,
		RoleOperateur:      40,
		RoleConsultant:     20,
		RoleAPIClient:      10,
	}
	for role, want := range levels {
		def, _ := Lookup(role)
		if def.PermissionLevel != want {
			t.Errorf("%v permission level = %d, want %d", role, def.PermissionLevel, want)
		}
	}
}

func TestAdministrateurWildcards(t *testing.T) {
	def, _ := Lookup(RoleAdministrateur)
	if !def.AllowedPages.IsWildcard() || !def.AllowedActions.IsWildcard() {
		t.Fatal("administrator pages and actions must be wildcard grants")
	}
	if !def.ModifiableColumns.IsWildcard() {
		t.Fatal("administrator columns must be the wildcard set")
	}
	if !def.CanManageAccounts || !def.CanViewJournal || !def.CanViewSensitiveFields {
		t.Fatal("administrator must hold every boolean capability")
	}
	// Wildcard must cover names nobody enumerated.
	if !def.AllowedPages.Allows("parametres") {
		t.Error("wildcard page grant must cover unlisted pages")
	}
	if !def.AllowedActions.Allows("purge-archive") {
		t.Error("wildcard action grant must cover unlisted actions")
	}
}

func TestRoleMatrix(t *testing.T) {
	tests := []struct {
		role       Role
		page       string
		pageOK     bool
		action     string
		actionOK   bool
	}{
		{RoleGestionnaire, PageCartes, true, ActionDelete, true},
		{RoleGestionnaire, PageComptes, false, ActionCancel, true},
		{RoleChefEquipe, PageJournal, true, ActionExport, true},
		{RoleChefEquipe, PageComptes, false, ActionDelete, false},
		{RoleOperateur, PageCartes, true, ActionWrite, true},
		{RoleOperateur, PageStatistiques, false, ActionExport, false},
		{RoleConsultant, PageStatistiques, true, ActionExport, true},
		{RoleConsultant, PageCartes, true, ActionWrite, false},
		{RoleAPIClient, PageCartes, false, ActionSync, true},
		{RoleAPIClient, PageJournal, false, ActionWrite, false},
	}
	for _, tt := range tests {
		def, ok := Lookup(tt.role)
		if !ok {
			t.Fatalf("no definition for %v", tt.role)
		}
		if got := def.AllowedPages.Allows(tt.page); got != tt.pageOK {
			t.Errorf("%v page %q = %v, want %v", tt.role, tt.page, got, tt.pageOK)
		}
		if got := def.AllowedActions.Allows(tt.action); got != tt.actionOK {
			t.Errorf("%v action %q = %v, want %v", tt.role, tt.action, got, tt.actionOK)
		}
	}
}

func TestJournalAndAccountCapabilities(t *testing.T) {
	journalOK := map[Role]bool{
		RoleAdministrateur: true,
		RoleGestionnaire:   true,
		RoleChefEquipe:     false,
		RoleOperateur:      false,
		RoleConsultant:     false,
		RoleAPIClient:      false,
	}
	for role, want := range journalOK {
		def, _ := Lookup(role)
		if def.CanViewJournal != want {
			t.Errorf("%v CanViewJournal = %v, want %v", role, def.CanViewJournal, want)
		}
	}
	for _, role := range Roles() {
		def, _ := Lookup(role)
		if def.CanManageAccounts && role != RoleAdministrateur {
			t.Errorf("%v must not manage accounts", role)
		}
	}
}

func TestGrantCaseInsensitive(t *testing.T) {
	g := GrantOf("Read", " WRITE ")
	for _, name := range []string{"read", "READ", " Write "} {
		if !g.Allows(name) {
			t.Errorf("grant should allow %q", name)
		}
	}
	if g.Allows("delete") {
		t.Error("grant should not allow delete")
	}
}
