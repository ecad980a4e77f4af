package models

import (
	"strings"
	"time"

	pkgerrors "nvi/pkg/domain-errors"
)

// ApprovalStatus is the review state of one institution's approval.
type ApprovalStatus string

const (
	ApprovalStatusNew      ApprovalStatus = "New"
	ApprovalStatusPending  ApprovalStatus = "Pending"
	ApprovalStatusApproved ApprovalStatus = "Approved"
	ApprovalStatusRejected ApprovalStatus = "Rejected"
)

// ParseApprovalStatus validates a raw status string.
func ParseApprovalStatus(raw string) (ApprovalStatus, error) {
	switch ApprovalStatus(raw) {
	case ApprovalStatusNew, ApprovalStatusPending, ApprovalStatusApproved, ApprovalStatusRejected:
		return ApprovalStatus(raw), nil
	}
	return "", pkgerrors.Newf(pkgerrors.CodeValidation, "unknown approval status %q", raw)
}

// IsFinalized reports whether the status is terminal.
func (s ApprovalStatus) IsFinalized() bool {
	return s == ApprovalStatusApproved || s == ApprovalStatusRejected
}

// Approval is one institution's independent review decision on a candidate.
// New approvals have no assignee; finalized approvals carry who decided, when,
// and (for rejections) why.
type Approval struct {
	InstitutionID string
	Status        ApprovalStatus
	Assignee      string
	FinalizedBy   string
	FinalizedDate *time.Time
	Reason        string
}

// NewApproval creates the initial approval for an institution.
func NewApproval(institutionID string) Approval {
	return Approval{InstitutionID: institutionID, Status: ApprovalStatusNew}
}

// Assign moves the approval to Pending with the given assignee. Reassignment
// of a Pending approval is allowed; finalized approvals cannot be reassigned.
func (a *Approval) Assign(assignee string) error {
	if strings.TrimSpace(assignee) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "assignee must not be blank")
	}
	if a.Status.IsFinalized() {
		return pkgerrors.Newf(pkgerrors.CodeInvalidTransition,
			"approval for %s is finalized as %s and cannot be reassigned", a.InstitutionID, a.Status)
	}
	a.Status = ApprovalStatusPending
	a.Assignee = assignee
	return nil
}

// Finalize moves the approval to Approved or Rejected. Finalizing a New
// approval implicitly assigns the finalizer. Rejection requires a reason.
// Finalized approvals are terminal; only a coordinator reset reopens them.
func (a *Approval) Finalize(status ApprovalStatus, finalizedBy string, reason string, at time.Time) error {
	if !status.IsFinalized() {
		return pkgerrors.Newf(pkgerrors.CodeInvalidTransition, "%s is not a finalized status", status)
	}
	if strings.TrimSpace(finalizedBy) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "finalizing user must not be blank")
	}
	if a.Status.IsFinalized() {
		return pkgerrors.Newf(pkgerrors.CodeInvalidTransition,
			"approval for %s is already finalized as %s", a.InstitutionID, a.Status)
	}
	if status == ApprovalStatusRejected && strings.TrimSpace(reason) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "rejection requires a reason")
	}
	if a.Assignee == "" {
		a.Assignee = finalizedBy
	}
	a.Status = status
	a.FinalizedBy = finalizedBy
	a.FinalizedDate = &at
	if status == ApprovalStatusRejected {
		a.Reason = reason
	} else {
		a.Reason = ""
	}
	return nil
}

// Reset returns the approval to New and clears assignment and finalization
// metadata. Only the consistency coordinator calls this, when an institution's
// point calculation changed on re-evaluation.
func (a *Approval) Reset() {
	a.Status = ApprovalStatusNew
	a.Assignee = ""
	a.FinalizedBy = ""
	a.FinalizedDate = nil
	a.Reason = ""
}
