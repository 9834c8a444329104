package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/taxledger/internal/domain"
	"github.com/iho/taxledger/internal/usecase"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	ParentID  *string   `json:"parent_id,omitempty"`
	Depth     int       `json:"depth"`
	IsHeader  bool      `json:"is_header"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AccountFromDomain converts domain account to response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:        a.ID,
		Code:      a.Code,
		Name:      a.Name,
		Type:      string(a.Type),
		ParentID:  a.ParentID,
		Depth:     a.Depth,
		IsHeader:  a.IsHeader,
		IsActive:  a.IsActive,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.Account) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// ListAccountsResponse represents a page of accounts.
type ListAccountsResponse struct {
	Accounts []*AccountResponse `json:"accounts"`
	Total    int64              `json:"total"`
}

// PostingProfileResponse represents a tenant's control accounts.
type PostingProfileResponse struct {
	ReceivableAccountID     string    `json:"receivable_account_id"`
	PayableAccountID        string    `json:"payable_account_id"`
	OutputTaxAccountID      string    `json:"output_tax_account_id"`
	InputTaxAccountID       string    `json:"input_tax_account_id"`
	ExemptSalesAccountID    string    `json:"exempt_sales_account_id"`
	ExemptPurchaseAccountID string    `json:"exempt_purchase_account_id"`
	UpdatedAt               time.Time `json:"updated_at"`
}

// PostingProfileFromDomain converts a posting profile to response.
func PostingProfileFromDomain(p *domain.PostingProfile) *PostingProfileResponse {
	return &PostingProfileResponse{
		ReceivableAccountID:     p.ReceivableAccountID,
		PayableAccountID:        p.PayableAccountID,
		OutputTaxAccountID:      p.OutputTaxAccountID,
		InputTaxAccountID:       p.InputTaxAccountID,
		ExemptSalesAccountID:    p.ExemptSalesAccountID,
		ExemptPurchaseAccountID: p.ExemptPurchaseAccountID,
		UpdatedAt:               p.UpdatedAt,
	}
}

// TaxLineResponse is a priced line.
type TaxLineResponse struct {
	Net     domain.Money     `json:"net"`
	Tax     domain.Money     `json:"tax"`
	Gross   domain.Money     `json:"gross"`
	Rate    *decimal.Decimal `json:"rate,omitempty"`
	TaxCode string           `json:"tax_code,omitempty"`
}

// ComputeTaxResponse carries priced lines and their totals.
type ComputeTaxResponse struct {
	Lines  []TaxLineResponse     `json:"lines"`
	Totals domain.DocumentTotals `json:"totals"`
}

// ComputeTaxFromDomain converts engine results to response.
func ComputeTaxFromDomain(results []domain.TaxLineResult, totals domain.DocumentTotals) *ComputeTaxResponse {
	resp := &ComputeTaxResponse{Lines: make([]TaxLineResponse, len(results)), Totals: totals}
	for i, r := range results {
		line := TaxLineResponse{Net: r.Net, Tax: r.Tax, Gross: r.Gross}
		if r.Code != nil {
			rate := r.Code.Rate
			line.Rate = &rate
			line.TaxCode = r.Code.Code
		}
		resp.Lines[i] = line
	}
	return resp
}

// DocumentResponse is a document and the entry an operation posted for it.
type DocumentResponse struct {
	*domain.Document
	Entry *domain.JournalEntry `json:"journal_entry,omitempty"`
}

// DocumentFromResult converts a use case result to response.
func DocumentFromResult(res *usecase.DocumentResult) *DocumentResponse {
	return &DocumentResponse{Document: res.Document, Entry: res.Entry}
}

// ListDocumentsResponse represents a page of documents.
type ListDocumentsResponse struct {
	Documents []*domain.Document `json:"documents"`
	Total     int64              `json:"total"`
}

// ListEntriesResponse represents a page of journal entries.
type ListEntriesResponse struct {
	Entries []*domain.JournalEntry `json:"entries"`
	Total   int64                  `json:"total"`
}

// ListPeriodsResponse lists a tenant's fiscal periods.
type ListPeriodsResponse struct {
	Periods []*domain.FiscalPeriod `json:"periods"`
}

// ListTaxCodesResponse lists tax code rows.
type ListTaxCodesResponse struct {
	TaxCodes []domain.TaxCode `json:"tax_codes"`
}

// TrialBalanceLineResponse is one account of a trial balance.
type TrialBalanceLineResponse struct {
	AccountID string       `json:"account_id"`
	Code      string       `json:"code"`
	Name      string       `json:"name"`
	Type      string       `json:"type"`
	Debits    domain.Money `json:"debits"`
	Credits   domain.Money `json:"credits"`
	Balance   domain.Money `json:"balance"`
}

// TrialBalanceResponse is the per-account summary of a tenant's ledger.
type TrialBalanceResponse struct {
	Lines        []TrialBalanceLineResponse `json:"lines"`
	TotalDebits  domain.Money               `json:"total_debits"`
	TotalCredits domain.Money               `json:"total_credits"`
	Balanced     bool                       `json:"balanced"`
	GeneratedAt  time.Time                  `json:"generated_at"`
}

// TrialBalanceFromUseCase converts a trial balance to response.
func TrialBalanceFromUseCase(tb *usecase.TrialBalance) *TrialBalanceResponse {
	resp := &TrialBalanceResponse{
		Lines:        make([]TrialBalanceLineResponse, len(tb.Lines)),
		TotalDebits:  tb.TotalDebits,
		TotalCredits: tb.TotalCredits,
		Balanced:     tb.Balanced,
		GeneratedAt:  tb.GeneratedAt,
	}
	for i, l := range tb.Lines {
		resp.Lines[i] = TrialBalanceLineResponse{
			AccountID: l.AccountID,
			Code:      l.Code,
			Name:      l.Name,
			Type:      string(l.Type),
			Debits:    l.Debits,
			Credits:   l.Credits,
			Balance:   l.Balance,
		}
	}
	return resp
}

// ConsistencyResponse reports whether a tenant's ledger balances.
type ConsistencyResponse struct {
	Consistent    bool                  `json:"consistent"`
	TotalAccounts int                   `json:"total_accounts"`
	Difference    domain.Money          `json:"difference"`
	TrialBalance  *TrialBalanceResponse `json:"trial_balance"`
	CheckedAt     time.Time             `json:"checked_at"`
}

// ConsistencyFromReport converts a reconciliation report to response.
func ConsistencyFromReport(r *usecase.ReconciliationReport) *ConsistencyResponse {
	return &ConsistencyResponse{
		Consistent:    r.LedgerConsistent,
		TotalAccounts: r.TotalAccounts,
		Difference:    r.Difference,
		TrialBalance:  TrialBalanceFromUseCase(r.TrialBalance),
		CheckedAt:     r.CheckedAt,
	}
}
