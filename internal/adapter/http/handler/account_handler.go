package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/taxledger/internal/adapter/http/dto"
	"github.com/iho/taxledger/internal/domain"
	"github.com/iho/taxledger/internal/usecase"
)

// AccountService defines the behavior needed by AccountHandler.
type AccountService interface {
	CreateAccount(ctx context.Context, input usecase.CreateAccountInput) (*domain.Account, error)
	GetAccount(ctx context.Context, tenantID, id string) (*domain.Account, error)
	ListAccounts(ctx context.Context, input usecase.ListAccountsInput) ([]*domain.Account, error)
	DeactivateAccount(ctx context.Context, tenantID, actorID, id string) (*domain.Account, error)
	ActivateAccount(ctx context.Context, tenantID, actorID, id string) (*domain.Account, error)
	SetPostingProfile(ctx context.Context, input usecase.SetPostingProfileInput) (*domain.PostingProfile, error)
	GetPostingProfile(ctx context.Context, tenantID string) (*domain.PostingProfile, error)
}

// AccountHandler handles chart-of-accounts HTTP requests.
type AccountHandler struct {
	accountUC AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountUC AccountService) *AccountHandler {
	return &AccountHandler{accountUC: accountUC}
}

// Create creates a new account.
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAccountRequest
	if !decode(w, r, &req) {
		return
	}

	tenantID, actorID := tenantAndActor(r)
	account, err := h.accountUC.CreateAccount(r.Context(), req.ToUseCaseInput(tenantID, actorID))
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.AccountFromDomain(account))
}

// Get retrieves an account by ID.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := tenantAndActor(r)
	account, err := h.accountUC.GetAccount(r.Context(), tenantID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// List lists accounts in code order.
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := tenantAndActor(r)
	accounts, err := h.accountUC.ListAccounts(r.Context(), usecase.ListAccountsInput{
		TenantID: tenantID,
		Limit:    parseIntQuery(r, "limit", 20),
		Offset:   parseIntQuery(r, "offset", 0),
	})
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListAccountsResponse{
		Accounts: dto.AccountsFromDomain(accounts),
		Total:    int64(len(accounts)),
	})
}

// Deactivate stops an account from accepting postings.
func (h *AccountHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	tenantID, actorID := tenantAndActor(r)
	account, err := h.accountUC.DeactivateAccount(r.Context(), tenantID, actorID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// Activate re-enables postings to an account.
func (h *AccountHandler) Activate(w http.ResponseWriter, r *http.Request) {
	tenantID, actorID := tenantAndActor(r)
	account, err := h.accountUC.ActivateAccount(r.Context(), tenantID, actorID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// SetPostingProfile replaces the tenant's control accounts.
func (h *AccountHandler) SetPostingProfile(w http.ResponseWriter, r *http.Request) {
	var req dto.PostingProfileRequest
	if !decode(w, r, &req) {
		return
	}

	tenantID, actorID := tenantAndActor(r)
	profile, err := h.accountUC.SetPostingProfile(r.Context(), req.ToUseCaseInput(tenantID, actorID))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.PostingProfileFromDomain(profile))
}

// GetPostingProfile returns the tenant's control accounts.
func (h *AccountHandler) GetPostingProfile(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := tenantAndActor(r)
	profile, err := h.accountUC.GetPostingProfile(r.Context(), tenantID)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.PostingProfileFromDomain(profile))
}
