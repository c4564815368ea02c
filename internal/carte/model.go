package carte

import (
	"time"

	"github.com/inventairecocody-sys/gescard-backend-vps-sub001/internal/shared/types"
)

// Column names of the card inventory table as the admin UI presents them.
// Authorization matches them case-insensitively; these are the canonical
// spellings used in responses.
const (
	ColumnNom           = "NOM"
	ColumnPrenoms       = "PRENOMS"
	ColumnDateNaissance = "DATE_NAISSANCE"
	ColumnNNI           = "NNI"
	ColumnCoordination  = "COORDINATION"
	ColumnSite          = "SITE"
	ColumnDelivrance    = "DELIVRANCE"
	ColumnObservation   = "OBSERVATION"
	ColumnStatut        = "STATUT"
)

// Carte is one physical-card inventory record.
type Carte struct {
	ID           types.ID  `json:"id"`
	Nom          string    `json:"nom"`
	Prenoms      string    `json:"prenoms"`
	NNI          string    `json:"nni"`
	Coordination string    `json:"coordination"`
	Site         string    `json:"site"`
	Delivrance   string    `json:"delivrance"`
	Observation  string    `json:"observation"`
	Statut       string    `json:"statut"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
