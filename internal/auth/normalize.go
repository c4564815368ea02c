package auth

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// synonyms maps folded role-string variants onto canonical roles. The source
// configuration accumulated several divergent spellings per role (accents,
// legacy names, English variants); this is the single authoritative table.
var synonyms = map[string]Role{
	"admin":          RoleAdministrateur,
	"administrateur": RoleAdministrateur,
	"administrator":  RoleAdministrateur,

	"gestionnaire": RoleGestionnaire,
	"manager":      RoleGestionnaire,
	// Superviseur is an alias of Gestionnaire, not a distinct tier.
	"superviseur": RoleGestionnaire,
	"supervisor":  RoleGestionnaire,

	"chef":           RoleChefEquipe,
	"chef d'equipe":  RoleChefEquipe,
	"chef equipe":    RoleChefEquipe,
	"chef de equipe": RoleChefEquipe,
	"team lead":      RoleChefEquipe,
	"teamlead":       RoleChefEquipe,

	"operateur": RoleOperateur,
	"operator":  RoleOperateur,
	"agent":     RoleOperateur,

	"consultant":   RoleConsultant,
	"consultation": RoleConsultant,
	"lecteur":      RoleConsultant,
	"viewer":       RoleConsultant,

	"api":        RoleAPIClient,
	"api client": RoleAPIClient,
	"api-client": RoleAPIClient,
	"site":       RoleAPIClient,
}

var foldTransformer = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// foldRole lowers, trims, strips diacritics and collapses inner whitespace.
func foldRole(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	if folded, _, err := transform.String(foldTransformer, s); err == nil {
		s = folded
	}
	return strings.Join(strings.Fields(s), " ")
}

// Normalize maps a free-form role string onto a canonical role.
//
// Unknown non-empty input returns RoleUnknown together with the trimmed
// original string: the raw value is carried through so that downstream
// registry lookups fail closed while denial messages can still name the role
// the credential presented. Empty or absent input returns RoleUnknown and "".
// The function is pure and stable.
func Normalize(raw string) (Role, string) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return RoleUnknown, ""
	}
	if role, ok := synonyms[foldRole(trimmed)]; ok {
		return role, role.Label()
	}
	return RoleUnknown, trimmed
}
