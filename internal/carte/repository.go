package carte

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/inventairecocody-sys/gescard-backend-vps-sub001/internal/shared/errors"
)

// Repository provides read access to the card inventory for authorization
// purposes. It implements auth.CoordinationLookup.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a card repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CoordinationOf returns the coordination that owns the record. A missing
// record reports not-found; any other failure reports a storage fault so the
// caller never confuses infrastructure trouble with a denial.
func (r *Repository) CoordinationOf(ctx context.Context, recordID string) (string, error) {
	var coordination string
	err := r.pool.QueryRow(ctx, `
		SELECT coordination FROM cartes WHERE id = $1
	`, recordID).Scan(&coordination)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.NotFound("carte", recordID)
		}
		return "", apperrors.StorageUnavailable(err)
	}
	return coordination, nil
}

// Get loads one card record.
func (r *Repository) Get(ctx context.Context, recordID string) (*Carte, error) {
	var c Carte
	err := r.pool.QueryRow(ctx, `
		SELECT id, nom, prenoms, nni, coordination, site,
		       delivrance, observation, statut, created_at, updated_at
		FROM cartes WHERE id = $1
	`, recordID).Scan(
		&c.ID, &c.Nom, &c.Prenoms, &c.NNI, &c.Coordination, &c.Site,
		&c.Delivrance, &c.Observation, &c.Statut, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("carte", recordID)
		}
		return nil, apperrors.StorageUnavailable(err)
	}
	return &c, nil
}
