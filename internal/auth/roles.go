// Package auth implements the authorization core: the role registry, role
// normalization, credential verification and the permission evaluator that
// request handlers consult before touching storage.
package auth

import "strings"

// Role is the canonical role enumeration. The zero value is RoleUnknown so
// that an unresolved role can never be mistaken for a granted one.
type Role int

const (
	RoleUnknown Role = iota
	RoleAdministrateur
	RoleGestionnaire
	RoleChefEquipe
	RoleOperateur
	RoleConsultant
	// RoleAPIClient is the pseudo-role of site synchronization clients
	// authenticated by a static token rather than a user credential.
	RoleAPIClient
)

// String returns the canonical role key.
func (r Role) String() string {
	switch r {
	case RoleAdministrateur:
		return "administrateur"
	case RoleGestionnaire:
		return "gestionnaire"
	case RoleChefEquipe:
		return "chef_equipe"
	case RoleOperateur:
		return "operateur"
	case RoleConsultant:
		return "consultant"
	case RoleAPIClient:
		return "api_client"
	default:
		return "unknown"
	}
}

// Label returns the display name used in denial messages and journal records.
func (r Role) Label() string {
	switch r {
	case RoleAdministrateur:
		return "Administrateur"
	case RoleGestionnaire:
		return "Gestionnaire"
	case RoleChefEquipe:
		return "Chef d'équipe"
	case RoleOperateur:
		return "Opérateur"
	case RoleConsultant:
		return "Consultant"
	case RoleAPIClient:
		return "Client API"
	default:
		return "Inconnu"
	}
}

// StatisticsScope describes how much of the statistics data a role may see.
type StatisticsScope string

const (
	StatisticsAll             StatisticsScope = "all"
	StatisticsOwnCoordination StatisticsScope = "own-coordination"
	StatisticsNone            StatisticsScope = "none"
)

// Action tags understood by the evaluator.
const (
	ActionRead   = "read"
	ActionWrite  = "write"
	ActionExport = "export"
	ActionImport = "import"
	ActionDelete = "delete"
	ActionCancel = "cancel"
	ActionSync   = "sync"
	// ActionManageAccounts gates the user administration endpoints.
	ActionManageAccounts = "manage-accounts"
)

// Page names understood by the evaluator.
const (
	PageCartes       = "cartes"
	PageStatistiques = "statistiques"
	PageJournal      = "journal"
	PageComptes      = "comptes"
	PageImport       = "import"
	PageExport       = "export"
)

// Grant is a set of page or action names, optionally the wildcard that
// authorizes everything.
type Grant struct {
	all   bool
	names map[string]struct{}
}

// GrantAll returns the wildcard grant.
func GrantAll() Grant {
	return Grant{all: true}
}

// GrantOf builds a grant from explicit names.
func GrantOf(names ...string) Grant {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		set[n] = struct{}{}
	}
	return Grant{names: set}
}

// Allows reports whether the grant covers name. The wildcard covers every
// name unconditionally.
func (g Grant) Allows(name string) bool {
	if g.all {
		return true
	}
	name = strings.ToLower(strings.TrimSpace(name))
	_, ok := g.names[name]
	return ok
}

// IsWildcard reports whether the grant is the "all" sentinel.
func (g Grant) IsWildcard() bool {
	return g.all
}

// Definition carries the static attributes of one canonical role. The
// registry is compiled-in configuration: built at startup, never mutated,
// safe for unsynchronized concurrent reads.
type Definition struct {
	Role                   Role
	PermissionLevel        int
	AllowedPages           Grant
	AllowedActions         Grant
	ModifiableColumns      ColumnSet
	CanViewJournal         bool
	CanManageAccounts      bool
	CanViewSensitiveFields bool
	StatisticsScope        StatisticsScope
}

var (
	defAdministrateur = Definition{
		Role:                   RoleAdministrateur,
		PermissionLevel:        100,
		AllowedPages:           GrantAll(),
		AllowedActions:         GrantAll(),
		ModifiableColumns:      AllColumns(),
		CanViewJournal:         true,
		CanManageAccounts:      true,
		CanViewSensitiveFields: true,
		StatisticsScope:        StatisticsAll,
	}

	defGestionnaire = Definition{
		Role:            RoleGestionnaire,
		PermissionLevel: 80,
		AllowedPages: GrantOf(
			PageCartes, PageStatistiques, PageJournal, PageImport, PageExport,
		),
		AllowedActions: GrantOf(
			ActionRead, ActionWrite, ActionExport, ActionImport, ActionDelete, ActionCancel,
		),
		ModifiableColumns:      AllColumns(),
		CanViewJournal:         true,
		CanViewSensitiveFields: true,
		StatisticsScope:        StatisticsAll,
	}

	defChefEquipe = Definition{
		Role:              RoleChefEquipe,
		PermissionLevel:   60,
		AllowedPages:      GrantOf(PageCartes, PageStatistiques, PageJournal),
		AllowedActions:    GrantOf(ActionRead, ActionWrite, ActionExport),
		ModifiableColumns: NewColumnSet("DELIVRANCE", "OBSERVATION"),
		StatisticsScope:   StatisticsOwnCoordination,
	}

	defOperateur = Definition{
		Role:              RoleOperateur,
		PermissionLevel:   40,
		AllowedPages:      GrantOf(PageCartes),
		AllowedActions:    GrantOf(ActionRead, ActionWrite),
		ModifiableColumns: NewColumnSet("DELIVRANCE"),
		StatisticsScope:   StatisticsOwnCoordination,
	}

	defConsultant = Definition{
		Role:              RoleConsultant,
		PermissionLevel:   20,
		AllowedPages:      GrantOf(PageCartes, PageStatistiques),
		AllowedActions:    GrantOf(ActionRead, ActionExport),
		ModifiableColumns: NewColumnSet(),
		StatisticsScope:   StatisticsOwnCoordination,
	}

	defAPIClient = Definition{
		Role:              RoleAPIClient,
		PermissionLevel:   10,
		AllowedPages:      GrantOf(),
		AllowedActions:    GrantOf(ActionRead, ActionSync),
		ModifiableColumns: NewColumnSet(),
		StatisticsScope:   StatisticsNone,
	}
)

// Lookup returns the definition of a canonical role. The switch is
// exhaustive over the enumeration; any value outside it fails closed.
func Lookup(role Role) (Definition, bool) {
	switch role {
	case RoleAdministrateur:
		return defAdministrateur, true
	case RoleGestionnaire:
		return defGestionnaire, true
	case RoleChefEquipe:
		return defChefEquipe, true
	case RoleOperateur:
		return defOperateur, true
	case RoleConsultant:
		return defConsultant, true
	case RoleAPIClient:
		return defAPIClient, true
	default:
		return Definition{}, false
	}
}

// Roles lists every canonical role with a definition.
func Roles() []Role {
	return []Role{
		RoleAdministrateur,
		RoleGestionnaire,
		RoleChefEquipe,
		RoleOperateur,
		RoleConsultant,
		RoleAPIClient,
	}
}
