package journal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/inventairecocody-sys/gescard-backend-vps-sub001/internal/shared/errors"
	"github.com/inventairecocody-sys/gescard-backend-vps-sub001/internal/shared/types"
)

// Repository provides append-only decision journal operations on PostgreSQL.
type Repository struct {
	pool     *pgxpool.Pool
	mu       sync.Mutex
	lastHash string
	sequence int64
}

// NewRepository creates a PostgreSQL-backed journal recorder.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Recorder = (*Repository)(nil)

// Initialize loads the last hash and sequence from the database.
func (r *Repository) Initialize(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var hash string
	var sequence int64
	err := r.pool.QueryRow(ctx, `
		SELECT hash, sequence FROM journal.decisions
		ORDER BY sequence DESC
		LIMIT 1
	`).Scan(&hash, &sequence)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.lastHash = ""
			r.sequence = 0
			return nil
		}
		return apperrors.Wrap(err, "failed to load journal chain state")
	}

	r.lastHash = hash
	r.sequence = sequence
	return nil
}

// Append appends a decision (thread-safe), chaining it to the previous one.
func (r *Repository) Append(ctx context.Context, decision *Decision) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sequence++
	decision.Sequence = r.sequence
	decision.PrevHash = r.lastHash
	decision.Hash = decision.ComputeHash()

	_, err := r.pool.Exec(ctx, `
		INSERT INTO journal.decisions (
			id, recorded_at, hash, prev_hash,
			subject_id, role, coordination,
			action, resource, outcome, reason,
			masked_fields, request_ip
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)`,
		decision.ID, decision.RecordedAt, decision.Hash, decision.PrevHash,
		decision.SubjectID, decision.Role, decision.Coordination,
		decision.Action, decision.Resource, decision.Outcome, decision.Reason,
		decision.MaskedFields, decision.RequestIP,
	)
	if err != nil {
		r.sequence--
		return apperrors.Wrap(err, "failed to append journal decision")
	}

	r.lastHash = decision.Hash
	return nil
}

// ListFilter narrows List results.
type ListFilter struct {
	SubjectID string
	Outcome   Outcome
	Since     time.Time
	Limit     int
}

// List returns recent decisions, newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]*Decision, error) {
	query := `
		SELECT id, sequence, recorded_at, hash, prev_hash,
		       subject_id, role, coordination,
		       action, resource, outcome, reason,
		       masked_fields, request_ip
		FROM journal.decisions
		WHERE 1=1`
	args := []any{}
	idx := 1

	if filter.SubjectID != "" {
		query += fmt.Sprintf(" AND subject_id = $%d", idx)
		args = append(args, filter.SubjectID)
		idx++
	}
	if filter.Outcome != "" {
		query += fmt.Sprintf(" AND outcome = $%d", idx)
		args = append(args, filter.Outcome)
		idx++
	}
	if !filter.Since.IsZero() {
		query += fmt.Sprintf(" AND recorded_at >= $%d", idx)
		args = append(args, filter.Since)
		idx++
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query += fmt.Sprintf(" ORDER BY sequence DESC LIMIT $%d", idx)
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list journal decisions")
	}
	defer rows.Close()

	var decisions []*Decision
	for rows.Next() {
		var d Decision
		var id types.ID
		if err := rows.Scan(
			&id, &d.Sequence, &d.RecordedAt, &d.Hash, &d.PrevHash,
			&d.SubjectID, &d.Role, &d.Coordination,
			&d.Action, &d.Resource, &d.Outcome, &d.Reason,
			&d.MaskedFields, &d.RequestIP,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan journal decision")
		}
		d.ID = id
		decisions = append(decisions, &d)
	}
	return decisions, rows.Err()
}
