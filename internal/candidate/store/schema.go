package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema is the candidate persistence layout. The candidates row carries the
// version token compared on every conditional write, plus the denormalized
// institution list; the full aggregate lives in the JSONB payload.
const Schema = `
CREATE TABLE IF NOT EXISTS candidates (
	publication_id TEXT PRIMARY KEY,
	version        UUID NOT NULL,
	applicable     BOOLEAN NOT NULL,
	reporting_year TEXT NOT NULL DEFAULT '',
	institutions   TEXT[] NOT NULL DEFAULT '{}',
	payload        JSONB NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS approvals (
	publication_id TEXT NOT NULL REFERENCES candidates (publication_id) ON DELETE CASCADE,
	institution_id TEXT NOT NULL,
	status         TEXT NOT NULL,
	assignee       TEXT NOT NULL DEFAULT '',
	finalized_by   TEXT NOT NULL DEFAULT '',
	finalized_at   TIMESTAMPTZ,
	reason         TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (publication_id, institution_id)
);

CREATE TABLE IF NOT EXISTS reporting_periods (
	publishing_year TEXT PRIMARY KEY,
	start_date      TIMESTAMPTZ NOT NULL,
	reporting_date  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_candidates_reporting_year ON candidates (reporting_year) WHERE applicable;
CREATE INDEX IF NOT EXISTS idx_approvals_institution ON approvals (institution_id, status);
`

// Migrate applies the schema. Idempotent; safe to run at startup.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
