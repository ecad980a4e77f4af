package store

import (
	"context"

	"nvi/internal/candidate/models"
)

// Record is a candidate as read from storage: the aggregate, its approvals,
// and the opaque version token every conditional write compares against.
type Record struct {
	Candidate models.Candidate
	Approvals []models.Approval
	Version   string
}

// CandidateStore persists candidates and their approvals. The version token
// changes on every successful write; a write against a stale token returns
// sentinel.ErrVersionConflict and the caller re-reads and re-decides. The
// candidate row also carries the denormalized institution id list so removed
// institutions are detectable without a secondary scan.
type CandidateStore interface {
	// FindByPublicationID returns the record or sentinel.ErrNotFound.
	FindByPublicationID(ctx context.Context, publicationID string) (*Record, error)

	// Create inserts a new candidate with its approvals; returns the initial
	// version token, or sentinel.ErrAlreadyExists when another writer got
	// there first.
	Create(ctx context.Context, candidate models.Candidate, approvals []models.Approval) (string, error)

	// Update replaces the candidate and reconciles its approvals to exactly
	// the given list, conditional on expectedVersion.
	Update(ctx context.Context, candidate models.Candidate, approvals []models.Approval, expectedVersion string) (string, error)

	// SaveApproval writes one approval and bumps the candidate's version,
	// conditional on expectedVersion.
	SaveApproval(ctx context.Context, publicationID string, approval models.Approval, expectedVersion string) (string, error)
}
