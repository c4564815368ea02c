package auth

import "testing"

func TestNormalizeSynonyms(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Role
	}{
		{"canonical admin", "administrateur", RoleAdministrateur},
		{"short admin", "admin", RoleAdministrateur},
		{"english admin", "Administrator", RoleAdministrateur},
		{"uppercase", "ADMINISTRATEUR", RoleAdministrateur},
		{"padded", "  admin  ", RoleAdministrateur},

		{"gestionnaire", "gestionnaire", RoleGestionnaire},
		{"manager", "Manager", RoleGestionnaire},
		{"superviseur alias", "superviseur", RoleGestionnaire},
		{"superviseur accented", "Superviséur", RoleGestionnaire},

		{"chef accented apostrophe", "Chef d'équipe", RoleChefEquipe},
		{"chef plain", "chef d'equipe", RoleChefEquipe},
		{"chef no apostrophe", "chef equipe", RoleChefEquipe},
		{"chef short", "CHEF", RoleChefEquipe},
		{"chef extra spaces", "chef   equipe", RoleChefEquipe},

		{"operateur accented", "Opérateur", RoleOperateur},
		{"operateur plain", "operateur", RoleOperateur},
		{"agent", "agent", RoleOperateur},

		{"consultant", "consultant", RoleConsultant},
		{"lecteur", "Lecteur", RoleConsultant},

		{"api", "api", RoleAPIClient},
		{"api client", "API Client", RoleAPIClient},
		{"site", "site", RoleAPIClient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			role, label := Normalize(tt.raw)
			if role != tt.want {
				t.Errorf("Normalize(%q) = %v, want %v", tt.raw, role, tt.want)
			}
			if label != tt.want.Label() {
				t.Errorf("Normalize(%q) label = %q, want %q", tt.raw, label, tt.want.Label())
			}
		})
	}
}

func TestNormalizeUnknownPassesThrough(t *testing.T) {
	role, label := Normalize("stagiaire")
	if role != RoleUnknown {
		t.Fatalf("expected RoleUnknown, got %v", role)
	}
	if label != "stagiaire" {
		t.Fatalf("expected raw string carried through, got %q", label)
	}

	// Trimmed but otherwise untouched.
	role, label = Normalize("  Directeur Régional  ")
	if role != RoleUnknown {
		t.Fatalf("expected RoleUnknown, got %v", role)
	}
	if label != "Directeur Régional" {
		t.Fatalf("expected trimmed original, got %q", label)
	}
}

func TestNormalizeEmpty(t *testing.T) {
	for _, raw := range []string{"", "   ", "\t\n"} {
		role, label := Normalize(raw)
		if role != RoleUnknown || label != "" {
			t.Errorf("Normalize(%q) = (%v, %q), want (RoleUnknown, \"\")", raw, role, label)
		}
	}
}

func TestNormalizeUnknownRoleIsDenied(t *testing.T) {
	// A passed-through unknown role must fail every later permission check.
	role, label := Normalize("stagiaire")
	identity := &Identity{SubjectID: "u1", Role: role, RoleLabel: label}

	e := NewEvaluator(nil)
	if err := e.AuthorizePage(identity, PageCartes); err == nil {
		t.Fatal("expected page denial for unknown role")
	}
	if err := e.AuthorizeAction(identity, ActionRead); err == nil {
		t.Fatal("expected action denial for unknown role")
	}
}
