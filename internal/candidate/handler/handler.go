package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"nvi/internal/candidate/models"
	"nvi/internal/candidate/service"
	"nvi/internal/candidate/store"
	"nvi/internal/transport/http/shared"
	pkgerrors "nvi/pkg/domain-errors"
)

// Service is the candidate surface the handler depends on.
type Service interface {
	Get(ctx context.Context, publicationID string) (*store.Record, error)
	UpdateApprovalStatus(ctx context.Context, publicationID, institutionID string, update service.ApprovalUpdate) (*store.Record, error)
}

// Handler serves candidate and approval endpoints.
type Handler struct {
	candidates Service
	logger     *slog.Logger
}

// New creates a candidate Handler.
func New(candidates Service, logger *slog.Logger) *Handler {
	return &Handler{candidates: candidates, logger: logger}
}

// Register mounts the candidate routes. Publication and institution ids are
// URIs and arrive query-escaped in the path.
func (h *Handler) Register(r chi.Router) {
	r.Get("/candidates/{publicationId}", h.handleGetCandidate)
	r.Put("/candidates/{publicationId}/approvals/{institutionId}/status", h.handleUpdateStatus)
	r.Put("/candidates/{publicationId}/approvals/{institutionId}/assignee", h.handleUpdateAssignee)
}

func (h *Handler) handleGetCandidate(w http.ResponseWriter, r *http.Request) {
	publicationID, err := pathURI(r, "publicationId")
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	rec, err := h.candidates.Get(r.Context(), publicationID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toCandidateResponse(rec))
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	publicationID, err := pathURI(r, "publicationId")
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	institutionID, err := pathURI(r, "institutionId")
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, pkgerrors.New(pkgerrors.CodeValidation, "invalid request body"))
		return
	}
	status, err := models.ParseApprovalStatus(req.Status)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	rec, err := h.candidates.UpdateApprovalStatus(r.Context(), publicationID, institutionID, service.ApprovalUpdate{
		Status: status,
		Reason: req.Reason,
	})
	if err != nil {
		h.logger.WarnContext(r.Context(), "approval status update rejected",
			"publication_id", publicationID,
			"institution_id", institutionID,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toCandidateResponse(rec))
}

func (h *Handler) handleUpdateAssignee(w http.ResponseWriter, r *http.Request) {
	publicationID, err := pathURI(r, "publicationId")
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	institutionID, err := pathURI(r, "institutionId")
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req UpdateAssigneeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, pkgerrors.New(pkgerrors.CodeValidation, "invalid request body"))
		return
	}

	rec, err := h.candidates.UpdateApprovalStatus(r.Context(), publicationID, institutionID, service.ApprovalUpdate{
		Status:   models.ApprovalStatusPending,
		Assignee: req.Assignee,
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toCandidateResponse(rec))
}

func pathURI(r *http.Request, param string) (string, error) {
	raw := chi.URLParam(r, param)
	decoded, err := url.QueryUnescape(raw)
	if err != nil || decoded == "" {
		return "", pkgerrors.Newf(pkgerrors.CodeValidation, "invalid %s", param)
	}
	return decoded, nil
}
