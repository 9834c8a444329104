package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iho/taxledger/internal/domain"
)

// AccountUseCase handles the chart of accounts and the posting profile.
type AccountUseCase struct {
	txManager   TransactionManager
	accountRepo AccountRepository
	profileRepo PostingProfileRepository
	recorder    recorder
	idGen       IDGenerator
	clock       Clock
}

// NewAccountUseCase creates a new AccountUseCase.
func NewAccountUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	profileRepo PostingProfileRepository,
	auditRepo AuditRepository,
	idGen IDGenerator,
) *AccountUseCase {
	return &AccountUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		profileRepo: profileRepo,
		recorder:    recorder{auditRepo: auditRepo, idGen: idGen},
		idGen:       idGen,
		clock:       SystemClock(),
	}
}

// WithClock overrides the clock.
func (uc *AccountUseCase) WithClock(c Clock) *AccountUseCase {
	uc.clock = c
	return uc
}

// CreateAccountInput represents input for creating an account.
type CreateAccountInput struct {
	TenantID string
	ActorID  string
	Code     string
	Name     string
	Type     domain.AccountType
	ParentID *string
	IsHeader bool
}

// CreateAccount creates a new active account.
func (uc *AccountUseCase) CreateAccount(ctx context.Context, input CreateAccountInput) (*domain.Account, error) {
	if err := domain.ValidateTenantID(input.TenantID); err != nil {
		return nil, err
	}

	code := strings.TrimSpace(input.Code)
	if err := domain.ValidateAccountCode(code); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if err := domain.ValidateAccountName(name); err != nil {
		return nil, err
	}
	if !input.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidAccountType, input.Type)
	}

	now := uc.clock.Now()
	account := &domain.Account{
		ID:        uc.idGen.Generate(),
		TenantID:  input.TenantID,
		Code:      code,
		Name:      name,
		Type:      input.Type,
		Depth:     1,
		IsHeader:  input.IsHeader,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	if input.ParentID != nil && *input.ParentID != "" {
		parents, err := uc.accountRepo.GetByIDsForShare(txCtx, tx, input.TenantID, []string{*input.ParentID})
		if err != nil {
			return nil, err
		}
		if len(parents) == 0 {
			return nil, &domain.AccountError{AccountID: *input.ParentID, Err: domain.ErrAccountNotFound}
		}
		if err := account.ValidateChildOf(parents[0]); err != nil {
			return nil, err
		}
		parentID := parents[0].ID
		account.ParentID = &parentID
		account.Depth = parents[0].Depth + 1
	}

	if err := uc.accountRepo.Create(txCtx, tx, account); err != nil {
		return nil, err
	}

	if err := uc.recorder.audit(txCtx, tx, input.TenantID, input.ActorID, domain.AuditActionAccountCreate,
		"account", account.ID, nil, account, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	return account, nil
}

// GetAccount retrieves an account by ID.
func (uc *AccountUseCase) GetAccount(ctx context.Context, tenantID, id string) (*domain.Account, error) {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}
	return uc.accountRepo.GetByID(ctx, tenantID, id)
}

// GetAccountByCode retrieves an account by its chart code.
func (uc *AccountUseCase) GetAccountByCode(ctx context.Context, tenantID, code string) (*domain.Account, error) {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}
	return uc.accountRepo.GetByCode(ctx, tenantID, code)
}

// ListAccountsInput represents input for listing accounts.
type ListAccountsInput struct {
	TenantID string
	Limit    int
	Offset   int
}

// ListAccounts lists accounts with pagination, ordered by code.
func (uc *AccountUseCase) ListAccounts(ctx context.Context, input ListAccountsInput) ([]*domain.Account, error) {
	if err := domain.ValidateTenantID(input.TenantID); err != nil {
		return nil, err
	}
	limit, offset, _ := domain.ValidatePagination(input.Limit, input.Offset)
	return uc.accountRepo.List(ctx, input.TenantID, limit, offset)
}

// DeactivateAccount stops further postings to an account. Posted entries
// are unaffected.
func (uc *AccountUseCase) DeactivateAccount(ctx context.Context, tenantID, actorID, id string) (*domain.Account, error) {
	return uc.setActive(ctx, tenantID, actorID, id, false)
}

// ActivateAccount re-enables postings to an account.
func (uc *AccountUseCase) ActivateAccount(ctx context.Context, tenantID, actorID, id string) (*domain.Account, error) {
	return uc.setActive(ctx, tenantID, actorID, id, true)
}

func (uc *AccountUseCase) setActive(ctx context.Context, tenantID, actorID, id string, active bool) (*domain.Account, error) {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	accounts, err := uc.accountRepo.GetByIDsForShare(txCtx, tx, tenantID, []string{id})
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, &domain.AccountError{AccountID: id, Err: domain.ErrAccountNotFound}
	}

	account := accounts[0]
	before := *account
	now := uc.clock.Now()

	// SetActive takes the exclusive row lock, so in-flight postings that
	// re-read the account finish first.
	if err := uc.accountRepo.SetActive(txCtx, tx, tenantID, id, active, now); err != nil {
		return nil, err
	}
	account.IsActive = active
	account.UpdatedAt = now

	if err := uc.recorder.audit(txCtx, tx, tenantID, actorID, domain.AuditActionAccountUpdate,
		"account", id, before, account, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	return account, nil
}

// SetPostingProfileInput represents the control accounts of a tenant.
type SetPostingProfileInput struct {
	TenantID                string
	ActorID                 string
	ReceivableAccountID     string
	PayableAccountID        string
	OutputTaxAccountID      string
	InputTaxAccountID       string
	ExemptSalesAccountID    string
	ExemptPurchaseAccountID string
}

// SetPostingProfile replaces the tenant's control accounts. Every account
// must be a postable account of the tenant.
func (uc *AccountUseCase) SetPostingProfile(ctx context.Context, input SetPostingProfileInput) (*domain.PostingProfile, error) {
	if err := domain.ValidateTenantID(input.TenantID); err != nil {
		return nil, err
	}

	now := uc.clock.Now()
	profile := &domain.PostingProfile{
		TenantID:                input.TenantID,
		ReceivableAccountID:     input.ReceivableAccountID,
		PayableAccountID:        input.PayableAccountID,
		OutputTaxAccountID:      input.OutputTaxAccountID,
		InputTaxAccountID:       input.InputTaxAccountID,
		ExemptSalesAccountID:    input.ExemptSalesAccountID,
		ExemptPurchaseAccountID: input.ExemptPurchaseAccountID,
		UpdatedAt:               now,
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	ids := uniqueSorted(profile.AccountIDs())
	accounts, err := uc.accountRepo.GetByIDsForShare(txCtx, tx, input.TenantID, ids)
	if err != nil {
		return nil, err
	}
	found := make(map[string]*domain.Account, len(accounts))
	for _, a := range accounts {
		found[a.ID] = a
	}
	for _, id := range ids {
		a, ok := found[id]
		if !ok {
			return nil, &domain.AccountError{AccountID: id, Err: domain.ErrAccountNotFound}
		}
		if err := a.ValidatePostable(); err != nil {
			return nil, err
		}
	}

	before, err := uc.profileRepo.GetTx(txCtx, tx, input.TenantID)
	if err != nil && !errors.Is(err, domain.ErrPostingProfileNotSet) {
		return nil, err
	}

	if err := uc.profileRepo.Upsert(txCtx, tx, profile); err != nil {
		return nil, err
	}

	if err := uc.recorder.audit(txCtx, tx, input.TenantID, input.ActorID, domain.AuditActionProfileUpdate,
		"posting_profile", input.TenantID, before, profile, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	return profile, nil
}

// GetPostingProfile returns the tenant's control accounts.
func (uc *AccountUseCase) GetPostingProfile(ctx context.Context, tenantID string) (*domain.PostingProfile, error) {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}
	return uc.profileRepo.Get(ctx, tenantID)
}
