package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"nvi/internal/period"
	"nvi/internal/transport/http/shared"
	pkgerrors "nvi/pkg/domain-errors"
	"nvi/pkg/requestcontext"
)

// Handler serves reporting-period administration endpoints.
type Handler struct {
	periods *period.Service
	logger  *slog.Logger
}

// New creates a period Handler.
func New(periods *period.Service, logger *slog.Logger) *Handler {
	return &Handler{periods: periods, logger: logger}
}

// Register mounts the period routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/periods", h.handleList)
	r.Get("/periods/{year}", h.handleGet)
	r.Post("/periods", h.handleCreate)
	r.Put("/periods/{year}", h.handleUpdate)
}

// PeriodRequest creates or updates a reporting period.
type PeriodRequest struct {
	PublishingYear string    `json:"publishingYear"`
	StartDate      time.Time `json:"startDate"`
	ReportingDate  time.Time `json:"reportingDate"`
}

// PeriodResponse is the REST view of one period.
type PeriodResponse struct {
	PublishingYear string    `json:"publishingYear"`
	StartDate      time.Time `json:"startDate"`
	ReportingDate  time.Time `json:"reportingDate"`
	Open           bool      `json:"open"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	periods, err := h.periods.List(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	out := make([]PeriodResponse, 0, len(periods))
	now := requestcontext.Now(r.Context())
	for _, p := range periods {
		out = append(out, toPeriodResponse(p, now))
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.periods.Find(r.Context(), chi.URLParam(r, "year"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toPeriodResponse(p, requestcontext.Now(r.Context())))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req PeriodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, pkgerrors.New(pkgerrors.CodeValidation, "invalid request body"))
		return
	}
	p, err := h.periods.Create(r.Context(), period.Period{
		PublishingYear: req.PublishingYear,
		StartDate:      req.StartDate,
		ReportingDate:  req.ReportingDate,
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	h.logger.InfoContext(r.Context(), "reporting period created", "year", p.PublishingYear)
	shared.WriteJSON(w, http.StatusCreated, toPeriodResponse(p, requestcontext.Now(r.Context())))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req PeriodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, pkgerrors.New(pkgerrors.CodeValidation, "invalid request body"))
		return
	}
	p, err := h.periods.Update(r.Context(), period.Period{
		PublishingYear: chi.URLParam(r, "year"),
		StartDate:      req.StartDate,
		ReportingDate:  req.ReportingDate,
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toPeriodResponse(p, requestcontext.Now(r.Context())))
}

func toPeriodResponse(p period.Period, now time.Time) PeriodResponse {
	return PeriodResponse{
		PublishingYear: p.PublishingYear,
		StartDate:      p.StartDate,
		ReportingDate:  p.ReportingDate,
		Open:           p.IsOpen(now),
	}
}
