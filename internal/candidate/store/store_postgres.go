package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"nvi/internal/candidate/models"
	"nvi/pkg/platform/sentinel"
)

// PostgresStore implements CandidateStore on PostgreSQL. Optimistic
// concurrency uses the version column: updates are conditional on the version
// read earlier, and zero affected rows distinguishes a lost race from a
// missing candidate.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres creates a PostgreSQL-backed candidate store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindByPublicationID(ctx context.Context, publicationID string) (*Record, error) {
	var (
		payload []byte
		version string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT payload, version FROM candidates WHERE publication_id = $1
	`, publicationID).Scan(&payload, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find candidate: %w", err)
	}

	candidate, err := DecodeCandidate(payload)
	if err != nil {
		return nil, err
	}
	approvals, err := s.fetchApprovals(ctx, publicationID)
	if err != nil {
		return nil, err
	}
	return &Record{Candidate: candidate, Approvals: approvals, Version: version}, nil
}

func (s *PostgresStore) Create(ctx context.Context, candidate models.Candidate, approvals []models.Approval) (string, error) {
	payload, err := EncodeCandidate(candidate)
	if err != nil {
		return "", err
	}
	version := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin create: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO candidates (publication_id, version, applicable, reporting_year, institutions, payload, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (publication_id) DO NOTHING
	`, candidate.PublicationID, version, candidate.Applicable, candidate.ReportingYear,
		pq.Array(candidate.InstitutionIDs()), payload, time.Now())
	if err != nil {
		return "", fmt.Errorf("insert candidate: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("insert candidate rows affected: %w", err)
	}
	if affected == 0 {
		return "", sentinel.ErrAlreadyExists
	}

	for _, a := range approvals {
		if err := upsertApproval(ctx, tx, candidate.PublicationID, a); err != nil {
			return "", err
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit create: %w", err)
	}
	return version, nil
}

func (s *PostgresStore) Update(ctx context.Context, candidate models.Candidate, approvals []models.Approval, expectedVersion string) (string, error) {
	payload, err := EncodeCandidate(candidate)
	if err != nil {
		return "", err
	}
	newVersion := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := bumpVersion(ctx, tx, candidate.PublicationID, expectedVersion, newVersion, func() error {
		_, err := tx.ExecContext(ctx, `
			UPDATE candidates
			SET applicable = $2, reporting_year = $3, institutions = $4, payload = $5, updated_at = $6
			WHERE publication_id = $1
		`, candidate.PublicationID, candidate.Applicable, candidate.ReportingYear,
			pq.Array(candidate.InstitutionIDs()), payload, time.Now())
		return err
	}); err != nil {
		return "", err
	}

	// Reconcile approvals to exactly the given set.
	institutionIDs := make([]string, 0, len(approvals))
	for _, a := range approvals {
		institutionIDs = append(institutionIDs, a.InstitutionID)
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM approvals
		WHERE publication_id = $1 AND institution_id != ALL($2)
	`, candidate.PublicationID, pq.Array(institutionIDs)); err != nil {
		return "", fmt.Errorf("delete removed approvals: %w", err)
	}
	for _, a := range approvals {
		if err := upsertApproval(ctx, tx, candidate.PublicationID, a); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit update: %w", err)
	}
	return newVersion, nil
}

func (s *PostgresStore) SaveApproval(ctx context.Context, publicationID string, approval models.Approval, expectedVersion string) (string, error) {
	newVersion := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin save approval: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := bumpVersion(ctx, tx, publicationID, expectedVersion, newVersion, nil); err != nil {
		return "", err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE approvals
		SET status = $3, assignee = $4, finalized_by = $5, finalized_at = $6, reason = $7
		WHERE publication_id = $1 AND institution_id = $2
	`, publicationID, approval.InstitutionID, string(approval.Status),
		approval.Assignee, approval.FinalizedBy, approval.FinalizedDate, approval.Reason)
	if err != nil {
		return "", fmt.Errorf("update approval: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("update approval rows affected: %w", err)
	}
	if affected == 0 {
		return "", sentinel.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit save approval: %w", err)
	}
	return newVersion, nil
}

// bumpVersion performs the compare-and-swap on the candidate's version token
// and optionally runs an additional candidate-row update inside the same
// transaction.
func bumpVersion(ctx context.Context, tx *sql.Tx, publicationID, expectedVersion, newVersion string, then func() error) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE candidates SET version = $3
		WHERE publication_id = $1 AND version = $2
	`, publicationID, expectedVersion, newVersion)
	if err != nil {
		return fmt.Errorf("bump version: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("bump version rows affected: %w", err)
	}
	if affected == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx, `
			SELECT EXISTS (SELECT 1 FROM candidates WHERE publication_id = $1)
		`, publicationID).Scan(&exists); err != nil {
			return fmt.Errorf("check candidate existence: %w", err)
		}
		if !exists {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrVersionConflict
	}
	if then != nil {
		return then()
	}
	return nil
}

func upsertApproval(ctx context.Context, tx *sql.Tx, publicationID string, a models.Approval) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO approvals (publication_id, institution_id, status, assignee, finalized_by, finalized_at, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (publication_id, institution_id) DO UPDATE
		SET status = EXCLUDED.status, assignee = EXCLUDED.assignee,
		    finalized_by = EXCLUDED.finalized_by, finalized_at = EXCLUDED.finalized_at,
		    reason = EXCLUDED.reason
	`, publicationID, a.InstitutionID, string(a.Status), a.Assignee, a.FinalizedBy, a.FinalizedDate, a.Reason)
	if err != nil {
		return fmt.Errorf("upsert approval %s: %w", a.InstitutionID, err)
	}
	return nil
}

func (s *PostgresStore) fetchApprovals(ctx context.Context, publicationID string) ([]models.Approval, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT institution_id, status, assignee, finalized_by, finalized_at, reason
		FROM approvals
		WHERE publication_id = $1
		ORDER BY institution_id
	`, publicationID)
	if err != nil {
		return nil, fmt.Errorf("fetch approvals: %w", err)
	}
	defer rows.Close()

	var approvals []models.Approval
	for rows.Next() {
		var (
			a           models.Approval
			status      string
			finalizedAt sql.NullTime
		)
		if err := rows.Scan(&a.InstitutionID, &status, &a.Assignee, &a.FinalizedBy, &finalizedAt, &a.Reason); err != nil {
			return nil, fmt.Errorf("scan approval: %w", err)
		}
		a.Status = models.ApprovalStatus(status)
		if finalizedAt.Valid {
			t := finalizedAt.Time
			a.FinalizedDate = &t
		}
		approvals = append(approvals, a)
	}
	return approvals, rows.Err()
}
