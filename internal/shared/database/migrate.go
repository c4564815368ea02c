package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate creates the tables owned by this service. The card and user tables
// belong to the inventory application and are provisioned elsewhere; only the
// decision journal is owned here.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		`CREATE SCHEMA IF NOT EXISTS journal`,
		`CREATE TABLE IF NOT EXISTS journal.decisions (
			id            UUID PRIMARY KEY,
			sequence      BIGSERIAL,
			recorded_at   TIMESTAMPTZ NOT NULL,
			hash          TEXT NOT NULL,
			prev_hash     TEXT,
			subject_id    TEXT NOT NULL,
			role          TEXT NOT NULL,
			coordination  TEXT,
			action        TEXT NOT NULL,
			resource      TEXT NOT NULL,
			outcome       TEXT NOT NULL,
			reason        TEXT,
			masked_fields TEXT[],
			request_ip    TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_journal_decisions_subject
			ON journal.decisions (subject_id, recorded_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_journal_decisions_outcome
			ON journal.decisions (outcome, recorded_at DESC)`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
