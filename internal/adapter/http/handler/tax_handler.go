package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/taxledger/internal/adapter/http/dto"
	"github.com/iho/taxledger/internal/domain"
	"github.com/iho/taxledger/internal/usecase"
)

// TaxService defines the behavior needed by TaxHandler.
type TaxService interface {
	CreateTaxCode(ctx context.Context, input usecase.CreateTaxCodeInput) (*domain.TaxCode, error)
	ListTaxCodes(ctx context.Context, tenantID, code string) ([]domain.TaxCode, error)
	ComputeDocument(ctx context.Context, tenantID string, lines []domain.TaxLineInput) ([]domain.TaxLineResult, domain.DocumentTotals, error)
}

// TaxHandler handles tax code maintenance and tax previews.
type TaxHandler struct {
	taxUC TaxService
}

// NewTaxHandler creates a new TaxHandler.
func NewTaxHandler(taxUC TaxService) *TaxHandler {
	return &TaxHandler{taxUC: taxUC}
}

// CreateCode adds an effective-dated rate row.
func (h *TaxHandler) CreateCode(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateTaxCodeRequest
	if !decode(w, r, &req) {
		return
	}

	tenantID, actorID := tenantAndActor(r)
	input, err := req.ToUseCaseInput(tenantID, actorID)
	if err != nil {
		badInput(w, err)
		return
	}

	code, err := h.taxUC.CreateTaxCode(r.Context(), input)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, code)
}

// ListCodes lists the rate rows of one code, or of every code when none is given.
func (h *TaxHandler) ListCodes(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := tenantAndActor(r)
	code := chi.URLParam(r, "code")
	if code == "" {
		code = r.URL.Query().Get("code")
	}
	codes, err := h.taxUC.ListTaxCodes(r.Context(), tenantID, code)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ListTaxCodesResponse{TaxCodes: codes})
}

// Compute prices lines without storing anything.
func (h *TaxHandler) Compute(w http.ResponseWriter, r *http.Request) {
	var req dto.ComputeTaxRequest
	if !decode(w, r, &req) {
		return
	}

	lines, err := req.ToDomain()
	if err != nil {
		badInput(w, err)
		return
	}

	tenantID, _ := tenantAndActor(r)
	results, totals, err := h.taxUC.ComputeDocument(r.Context(), tenantID, lines)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ComputeTaxFromDomain(results, totals))
}
