package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iho/taxledger/internal/domain"
)

// ErrInconsistentLedger is returned when a tenant's debits and credits differ.
var ErrInconsistentLedger = errors.New("ledger is inconsistent: debits != credits")

// ReconciliationUseCase handles tenant-wide ledger checks
type ReconciliationUseCase struct {
	ledgerRepo LedgerRepository
	clock      Clock
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(ledgerRepo LedgerRepository) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		ledgerRepo: ledgerRepo,
		clock:      SystemClock(),
	}
}

// WithClock overrides the clock.
func (uc *ReconciliationUseCase) WithClock(c Clock) *ReconciliationUseCase {
	uc.clock = c
	return uc
}

// CheckLedgerConsistency verifies that every debit posted by the tenant is
// matched by a credit.
func (uc *ReconciliationUseCase) CheckLedgerConsistency(ctx context.Context, tenantID string) error {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return err
	}

	totalDebits, totalCredits, err := uc.ledgerRepo.CheckConsistency(ctx, tenantID)
	if err != nil {
		return err
	}

	if !totalDebits.Equal(totalCredits) {
		return fmt.Errorf("%w: debits=%s credits=%s difference=%s",
			ErrInconsistentLedger,
			totalDebits.String(),
			totalCredits.String(),
			totalDebits.Sub(totalCredits).String(),
		)
	}

	return nil
}

// TrialBalanceLine is one account of a trial balance.
type TrialBalanceLine struct {
	AccountID string
	Code      string
	Name      string
	Type      domain.AccountType
	Debits    domain.Money
	Credits   domain.Money
	// Balance is debits less credits for assets and expenses, and credits
	// less debits otherwise.
	Balance domain.Money
}

// TrialBalance is the per-account summary of a tenant's ledger.
type TrialBalance struct {
	TenantID     string
	Lines        []TrialBalanceLine
	TotalDebits  domain.Money
	TotalCredits domain.Money
	Balanced     bool
	GeneratedAt  time.Time
}

// TrialBalance sums every posted line per account.
func (uc *ReconciliationUseCase) TrialBalance(ctx context.Context, tenantID string) (*TrialBalance, error) {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}

	totals, err := uc.ledgerRepo.AccountTotals(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	tb := &TrialBalance{
		TenantID:    tenantID,
		Lines:       make([]TrialBalanceLine, 0, len(totals)),
		GeneratedAt: uc.clock.Now(),
	}
	for _, t := range totals {
		balance := t.Credits.Sub(t.Debits)
		if t.Type == domain.AccountTypeAsset || t.Type == domain.AccountTypeExpense {
			balance = t.Debits.Sub(t.Credits)
		}
		tb.Lines = append(tb.Lines, TrialBalanceLine{
			AccountID: t.AccountID,
			Code:      t.Code,
			Name:      t.Name,
			Type:      t.Type,
			Debits:    t.Debits,
			Credits:   t.Credits,
			Balance:   balance,
		})
		tb.TotalDebits = tb.TotalDebits.Add(t.Debits)
		tb.TotalCredits = tb.TotalCredits.Add(t.Credits)
	}
	tb.Balanced = tb.TotalDebits.Equal(tb.TotalCredits)

	return tb, nil
}

// ReconciliationReport combines the consistency check with the trial balance
type ReconciliationReport struct {
	TenantID         string
	TotalAccounts    int
	LedgerConsistent bool
	Difference       domain.Money
	TrialBalance     *TrialBalance
	CheckedAt        time.Time
}

// GenerateReconciliationReport generates a reconciliation report for a tenant
func (uc *ReconciliationUseCase) GenerateReconciliationReport(ctx context.Context, tenantID string) (*ReconciliationReport, error) {
	tb, err := uc.TrialBalance(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	ledgerErr := uc.CheckLedgerConsistency(ctx, tenantID)
	if ledgerErr != nil && !errors.Is(ledgerErr, ErrInconsistentLedger) {
		return nil, ledgerErr
	}

	return &ReconciliationReport{
		TenantID:         tenantID,
		TotalAccounts:    len(tb.Lines),
		LedgerConsistent: ledgerErr == nil && tb.Balanced,
		Difference:       tb.TotalDebits.Sub(tb.TotalCredits),
		TrialBalance:     tb,
		CheckedAt:        uc.clock.Now(),
	}, nil
}
