// Package service implements the consistency coordinator: given a fresh
// evaluation result it decides create / update / reset / mark-not-applicable
// and performs the write under optimistic concurrency, re-deriving the whole
// decision from freshly read state on every version conflict.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"nvi/internal/candidate/metrics"
	"nvi/internal/candidate/models"
	"nvi/internal/candidate/store"
	"nvi/internal/period"
	pkgerrors "nvi/pkg/domain-errors"
	"nvi/pkg/platform/sentinel"
	"nvi/pkg/requestcontext"
)

// maxWriteAttempts bounds the conflict-retry loop. Conflicts are expected
// under concurrent delivery; a decision is never reapplied, only re-derived.
const maxWriteAttempts = 3

// Service is the consistency coordinator and the approval-update entry point.
type Service struct {
	store   store.CandidateStore
	periods *period.Service
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New builds the coordinator.
func New(candidateStore store.CandidateStore, periods *period.Service, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{store: candidateStore, periods: periods, metrics: m, logger: logger}
}

// Get returns a candidate with its approvals.
func (s *Service) Get(ctx context.Context, publicationID string) (*store.Record, error) {
	rec, err := s.store.FindByPublicationID(ctx, publicationID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "no candidate for publication %s", publicationID)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, "read candidate", err)
	}
	return rec, nil
}

// Upsert applies an evaluation result to the durable candidate. The returned
// record is nil for the no-op case (unknown publication evaluated as
// non-candidate). Version conflicts are retried with a full re-read and
// re-decision; exhaustion surfaces as CodeConflict.
func (s *Service) Upsert(ctx context.Context, eval models.Evaluation) (*store.Record, error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveUpsertDuration(time.Since(start).Seconds())
	}()

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		rec, err := s.store.FindByPublicationID(ctx, eval.PublicationID())
		exists := true
		if errors.Is(err, sentinel.ErrNotFound) {
			exists = false
		} else if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, "read candidate", err)
		}

		out, err := s.decideAndWrite(ctx, eval, rec, exists)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, sentinel.ErrVersionConflict) ||
			errors.Is(err, sentinel.ErrAlreadyExists) ||
			errors.Is(err, sentinel.ErrNotFound) {
			// Lost the race; the winner's write may change our decision.
			s.metrics.RecordConflict()
			s.logger.InfoContext(ctx, "candidate upsert lost version race, re-deciding",
				"publication_id", eval.PublicationID(), "attempt", attempt+1)
			continue
		}
		return nil, err
	}
	return nil, pkgerrors.Newf(pkgerrors.CodeConflict,
		"upsert for %s exhausted %d attempts", eval.PublicationID(), maxWriteAttempts)
}

func (s *Service) decideAndWrite(ctx context.Context, eval models.Evaluation, rec *store.Record, exists bool) (*store.Record, error) {
	switch ev := eval.(type) {
	case models.NonCandidateEvaluation:
		if !exists {
			// Never was a candidate; nothing to record.
			s.metrics.RecordUpsert(metrics.ActionNoOp)
			return nil, nil
		}
		return s.markNotApplicable(ctx, rec)
	case models.CandidateEvaluation:
		if !exists {
			return s.create(ctx, ev.Candidate)
		}
		return s.update(ctx, rec, ev.Candidate)
	default:
		return nil, pkgerrors.Newf(pkgerrors.CodeInternal, "unknown evaluation variant %T", eval)
	}
}

func (s *Service) create(ctx context.Context, candidate models.Candidate) (*store.Record, error) {
	if err := candidate.Validate(); err != nil {
		return nil, err
	}
	approvals := make([]models.Approval, 0, len(candidate.InstitutionPoints))
	for _, ip := range candidate.InstitutionPoints {
		approvals = append(approvals, models.NewApproval(ip.InstitutionID))
	}
	version, err := s.store.Create(ctx, candidate, approvals)
	if err != nil {
		return nil, wrapWriteErr("create candidate", err)
	}
	s.metrics.RecordUpsert(metrics.ActionCreate)
	s.logger.InfoContext(ctx, "candidate created",
		"publication_id", candidate.PublicationID,
		"institutions", len(approvals),
		"total_points", candidate.TotalPoints.String(),
	)
	return &store.Record{Candidate: candidate, Approvals: approvals, Version: version}, nil
}

// markNotApplicable keeps the candidate row but strips its entitlements: no
// institution points, zero total, excluded from reporting. Approval rows stay
// as a historical record.
func (s *Service) markNotApplicable(ctx context.Context, rec *store.Record) (*store.Record, error) {
	if !rec.Candidate.Applicable {
		// Already not applicable; nothing to write.
		s.metrics.RecordUpsert(metrics.ActionNoOp)
		return rec, nil
	}
	candidate := rec.Candidate
	candidate.Applicable = false
	candidate.InstitutionPoints = nil
	candidate.TotalPoints = decimal.Zero.Round(models.PointScale)

	version, err := s.store.Update(ctx, candidate, rec.Approvals, rec.Version)
	if err != nil {
		return nil, wrapWriteErr("mark candidate not applicable", err)
	}
	s.metrics.RecordUpsert(metrics.ActionNotApplicable)
	s.logger.InfoContext(ctx, "candidate marked not applicable",
		"publication_id", candidate.PublicationID)
	return &store.Record{Candidate: candidate, Approvals: rec.Approvals, Version: version}, nil
}

func (s *Service) update(ctx context.Context, rec *store.Record, next models.Candidate) (*store.Record, error) {
	if err := next.Validate(); err != nil {
		return nil, err
	}

	if rec.Candidate.Applicable && !criticalFieldsChanged(rec.Candidate, next) {
		// Cosmetic re-evaluation: refresh the stored fields, leave every
		// approval exactly as it is.
		version, err := s.store.Update(ctx, next, rec.Approvals, rec.Version)
		if err != nil {
			return nil, wrapWriteErr("update candidate", err)
		}
		s.metrics.RecordUpsert(metrics.ActionUpdate)
		return &store.Record{Candidate: next, Approvals: rec.Approvals, Version: version}, nil
	}

	approvals, resets := reconcileApprovals(rec.Approvals, rec.Candidate, next)
	version, err := s.store.Update(ctx, next, approvals, rec.Version)
	if err != nil {
		return nil, wrapWriteErr("update candidate", err)
	}
	action := metrics.ActionUpdate
	if resets > 0 {
		action = metrics.ActionReset
	}
	s.metrics.RecordUpsert(action)
	s.logger.InfoContext(ctx, "candidate re-evaluated",
		"publication_id", next.PublicationID,
		"institutions", len(approvals),
		"approvals_reset", resets,
	)
	return &store.Record{Candidate: next, Approvals: approvals, Version: version}, nil
}

// ApprovalUpdate carries one approval status change requested by a caller.
type ApprovalUpdate struct {
	Status models.ApprovalStatus
	// Assignee applies to Pending; empty defaults to the authenticated user.
	Assignee string
	// Reason is required when Status is Rejected.
	Reason string
}

// UpdateApprovalStatus applies a review action to one institution's approval.
// Callers may assign and finalize; resets are reserved for the coordinator.
// All changes require the candidate's reporting period to be open.
func (s *Service) UpdateApprovalStatus(ctx context.Context, publicationID, institutionID string, update ApprovalUpdate) (*store.Record, error) {
	username := requestcontext.Username(ctx)
	if username == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "authenticated username is required")
	}
	if update.Status == models.ApprovalStatusNew {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition,
			"approvals cannot be reset through the API")
	}

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		rec, err := s.Get(ctx, publicationID)
		if err != nil {
			return nil, err
		}
		if !rec.Candidate.Applicable {
			return nil, pkgerrors.Newf(pkgerrors.CodeInvalidTransition,
				"publication %s is not an applicable candidate", publicationID)
		}
		approval, idx := findApproval(rec.Approvals, institutionID)
		if idx < 0 {
			return nil, pkgerrors.Newf(pkgerrors.CodeNotFound,
				"institution %s has no approval on publication %s", institutionID, publicationID)
		}
		if err := s.periods.RequireOpen(ctx, rec.Candidate.ReportingYear); err != nil {
			return nil, err
		}

		switch update.Status {
		case models.ApprovalStatusPending:
			assignee := update.Assignee
			if assignee == "" {
				assignee = username
			}
			err = approval.Assign(assignee)
		default:
			err = approval.Finalize(update.Status, username, update.Reason, requestcontext.Now(ctx))
		}
		if err != nil {
			return nil, err
		}

		version, err := s.store.SaveApproval(ctx, publicationID, approval, rec.Version)
		if errors.Is(err, sentinel.ErrVersionConflict) {
			s.metrics.RecordConflict()
			continue
		}
		if err != nil {
			return nil, wrapWriteErr("save approval", err)
		}
		rec.Approvals[idx] = approval
		rec.Version = version
		s.metrics.RecordApprovalUpdate(string(approval.Status))
		s.logger.InfoContext(ctx, "approval updated",
			"publication_id", publicationID,
			"institution_id", institutionID,
			"status", approval.Status,
		)
		return rec, nil
	}
	return nil, pkgerrors.Newf(pkgerrors.CodeConflict,
		"approval update for %s/%s exhausted %d attempts", publicationID, institutionID, maxWriteAttempts)
}

func findApproval(approvals []models.Approval, institutionID string) (models.Approval, int) {
	for i, a := range approvals {
		if a.InstitutionID == institutionID {
			return a, i
		}
	}
	return models.Approval{}, -1
}

// wrapWriteErr passes conflict sentinels through untouched for the retry loop
// and classifies everything else as a dependency failure.
func wrapWriteErr(op string, err error) error {
	if errors.Is(err, sentinel.ErrVersionConflict) ||
		errors.Is(err, sentinel.ErrAlreadyExists) ||
		errors.Is(err, sentinel.ErrNotFound) {
		return err
	}
	var de *pkgerrors.Error
	if errors.As(err, &de) {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, op, err)
}
