package handler

import (
	"time"

	"nvi/internal/candidate/models"
	"nvi/internal/candidate/store"
)

// CandidateResponse is the REST view of a candidate with its approvals.
type CandidateResponse struct {
	PublicationID     string              `json:"publicationId"`
	Applicable        bool                `json:"applicable"`
	InstanceType      string              `json:"instanceType,omitempty"`
	ReportingYear     string              `json:"reportingYear,omitempty"`
	TotalPoints       string              `json:"totalPoints"`
	InstitutionPoints []InstitutionPoints `json:"institutionPoints,omitempty"`
	Approvals         []ApprovalResponse  `json:"approvals"`
	ReportStatus      string              `json:"reportStatus"`
}

// InstitutionPoints is one institution's share in the response.
type InstitutionPoints struct {
	InstitutionID string `json:"institutionId"`
	Points        string `json:"points"`
}

// ApprovalResponse is one institution's review state.
type ApprovalResponse struct {
	InstitutionID string     `json:"institutionId"`
	Status        string     `json:"status"`
	Assignee      string     `json:"assignee,omitempty"`
	FinalizedBy   string     `json:"finalizedBy,omitempty"`
	FinalizedDate *time.Time `json:"finalizedDate,omitempty"`
	Reason        string     `json:"reason,omitempty"`
}

func toCandidateResponse(rec *store.Record) CandidateResponse {
	resp := CandidateResponse{
		PublicationID: rec.Candidate.PublicationID,
		Applicable:    rec.Candidate.Applicable,
		InstanceType:  string(rec.Candidate.InstanceType),
		ReportingYear: rec.Candidate.ReportingYear,
		TotalPoints:   rec.Candidate.TotalPoints.String(),
		ReportStatus:  reportStatus(rec),
	}
	for _, ip := range rec.Candidate.InstitutionPoints {
		resp.InstitutionPoints = append(resp.InstitutionPoints, InstitutionPoints{
			InstitutionID: ip.InstitutionID,
			Points:        ip.Points.String(),
		})
	}
	for _, a := range rec.Approvals {
		resp.Approvals = append(resp.Approvals, ApprovalResponse{
			InstitutionID: a.InstitutionID,
			Status:        string(a.Status),
			Assignee:      a.Assignee,
			FinalizedBy:   a.FinalizedBy,
			FinalizedDate: a.FinalizedDate,
			Reason:        a.Reason,
		})
	}
	return resp
}

// reportStatus derives the aggregate review state across institutions:
// reported statuses diverge into "dispute" when institutions disagree.
func reportStatus(rec *store.Record) string {
	if !rec.Candidate.Applicable {
		return "notApplicable"
	}
	var approved, rejected, open int
	for _, a := range rec.Approvals {
		switch a.Status {
		case models.ApprovalStatusApproved:
			approved++
		case models.ApprovalStatusRejected:
			rejected++
		default:
			open++
		}
	}
	switch {
	case approved > 0 && rejected > 0:
		return "dispute"
	case open > 0:
		return "pending"
	case rejected > 0:
		return "rejected"
	default:
		return "approved"
	}
}
