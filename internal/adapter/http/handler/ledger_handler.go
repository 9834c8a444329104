package handler

import (
	"context"
	"net/http"

	"github.com/iho/taxledger/internal/adapter/http/dto"
	"github.com/iho/taxledger/internal/usecase"
)

// ReconciliationService defines the behavior needed by LedgerHandler.
type ReconciliationService interface {
	TrialBalance(ctx context.Context, tenantID string) (*usecase.TrialBalance, error)
	GenerateReconciliationReport(ctx context.Context, tenantID string) (*usecase.ReconciliationReport, error)
}

// LedgerHandler handles ledger-wide reports.
type LedgerHandler struct {
	reconUC ReconciliationService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(reconUC ReconciliationService) *LedgerHandler {
	return &LedgerHandler{reconUC: reconUC}
}

// CheckConsistency reports whether total debits equal total credits.
// An inconsistent ledger answers 409 with the full report.
func (h *LedgerHandler) CheckConsistency(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := tenantAndActor(r)
	report, err := h.reconUC.GenerateReconciliationReport(r.Context(), tenantID)
	if err != nil {
		respondError(w, err)
		return
	}

	status := http.StatusOK
	if !report.LedgerConsistent {
		status = http.StatusConflict
	}
	writeJSON(w, status, dto.ConsistencyFromReport(report))
}

// TrialBalance returns per-account debits, credits and balances.
func (h *LedgerHandler) TrialBalance(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := tenantAndActor(r)
	tb, err := h.reconUC.TrialBalance(r.Context(), tenantID)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.TrialBalanceFromUseCase(tb))
}
