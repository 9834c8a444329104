package handler

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/taxledger/internal/adapter/http/dto"
	"github.com/iho/taxledger/internal/domain"
	"github.com/iho/taxledger/internal/usecase"
)

// PeriodService defines the behavior needed by PeriodHandler.
type PeriodService interface {
	CreatePeriod(ctx context.Context, input usecase.CreatePeriodInput) (*domain.FiscalPeriod, error)
	ListPeriods(ctx context.Context, tenantID string) ([]*domain.FiscalPeriod, error)
	ClosePeriod(ctx context.Context, tenantID, actorID, id string) (*domain.FiscalPeriod, error)
	ReopenPeriod(ctx context.Context, tenantID, actorID, id string) (*domain.FiscalPeriod, error)
	LockPeriod(ctx context.Context, tenantID, actorID, id string) (*domain.FiscalPeriod, error)
	UnlockPeriod(ctx context.Context, tenantID, actorID, id string, override bool) (*domain.FiscalPeriod, error)
}

// PeriodHandler handles fiscal period HTTP requests.
type PeriodHandler struct {
	periodUC PeriodService
}

// NewPeriodHandler creates a new PeriodHandler.
func NewPeriodHandler(periodUC PeriodService) *PeriodHandler {
	return &PeriodHandler{periodUC: periodUC}
}

// Create opens a fiscal period.
func (h *PeriodHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreatePeriodRequest
	if !decode(w, r, &req) {
		return
	}

	tenantID, actorID := tenantAndActor(r)
	input, err := req.ToUseCaseInput(tenantID, actorID)
	if err != nil {
		badInput(w, err)
		return
	}

	period, err := h.periodUC.CreatePeriod(r.Context(), input)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, period)
}

// List lists the tenant's periods by start date.
func (h *PeriodHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := tenantAndActor(r)
	periods, err := h.periodUC.ListPeriods(r.Context(), tenantID)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ListPeriodsResponse{Periods: periods})
}

// Close closes an open period.
func (h *PeriodHandler) Close(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.periodUC.ClosePeriod)
}

// Reopen reopens a closed period.
func (h *PeriodHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.periodUC.ReopenPeriod)
}

// Lock locks a period permanently unless an override unlocks it.
func (h *PeriodHandler) Lock(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.periodUC.LockPeriod)
}

// Unlock returns a locked period to closed. The body must carry override=true.
func (h *PeriodHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	var req dto.UnlockPeriodRequest
	if !decodeOptional(w, r, &req) {
		return
	}

	tenantID, actorID := tenantAndActor(r)
	period, err := h.periodUC.UnlockPeriod(r.Context(), tenantID, actorID, chi.URLParam(r, "id"), req.Override)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, period)
}

func (h *PeriodHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	fn func(ctx context.Context, tenantID, actorID, id string) (*domain.FiscalPeriod, error),
) {
	tenantID, actorID := tenantAndActor(r)
	period, err := fn(r.Context(), tenantID, actorID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, period)
}

// decodeOptional is decode for bodies that may be empty.
func decodeOptional(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body", nil)
		return false
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return true
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return decode(w, r, v)
}
