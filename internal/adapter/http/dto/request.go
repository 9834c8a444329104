package dto

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/iho/taxledger/internal/domain"
	"github.com/iho/taxledger/internal/usecase"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = time.DateOnly

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the validate tags of a request.
func Validate(req any) error {
	return validate.Struct(req)
}

func parseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: expected YYYY-MM-DD, got %q", field, value)
	}
	return t, nil
}

func parseOptionalDate(field string, value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	t, err := parseDate(field, *value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateAccountRequest represents a request to create an account.
type CreateAccountRequest struct {
	Code     string  `json:"code"      validate:"required,max=32"`
	Name     string  `json:"name"      validate:"required,max=255"`
	Type     string  `json:"type"      validate:"required,oneof=asset liability equity revenue expense"`
	ParentID *string `json:"parent_id,omitempty"`
	IsHeader bool    `json:"is_header"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateAccountRequest) ToUseCaseInput(tenantID, actorID string) usecase.CreateAccountInput {
	return usecase.CreateAccountInput{
		TenantID: tenantID,
		ActorID:  actorID,
		Code:     r.Code,
		Name:     r.Name,
		Type:     domain.AccountType(r.Type),
		ParentID: r.ParentID,
		IsHeader: r.IsHeader,
	}
}

// PostingProfileRequest replaces a tenant's control accounts.
type PostingProfileRequest struct {
	ReceivableAccountID     string `json:"receivable_account_id"      validate:"required"`
	PayableAccountID        string `json:"payable_account_id"         validate:"required"`
	OutputTaxAccountID      string `json:"output_tax_account_id"      validate:"required"`
	InputTaxAccountID       string `json:"input_tax_account_id"       validate:"required"`
	ExemptSalesAccountID    string `json:"exempt_sales_account_id"    validate:"required"`
	ExemptPurchaseAccountID string `json:"exempt_purchase_account_id" validate:"required"`
}

// ToUseCaseInput converts to use case input.
func (r *PostingProfileRequest) ToUseCaseInput(tenantID, actorID string) usecase.SetPostingProfileInput {
	return usecase.SetPostingProfileInput{
		TenantID:                tenantID,
		ActorID:                 actorID,
		ReceivableAccountID:     r.ReceivableAccountID,
		PayableAccountID:        r.PayableAccountID,
		OutputTaxAccountID:      r.OutputTaxAccountID,
		InputTaxAccountID:       r.InputTaxAccountID,
		ExemptSalesAccountID:    r.ExemptSalesAccountID,
		ExemptPurchaseAccountID: r.ExemptPurchaseAccountID,
	}
}

// CreateTaxCodeRequest adds a rate row to a tax code's history.
type CreateTaxCodeRequest struct {
	Code          string          `json:"code"           validate:"required,max=32"`
	Description   string          `json:"description"`
	Rate          decimal.Decimal `json:"rate"`
	EffectiveFrom string          `json:"effective_from" validate:"required"`
	EffectiveTo   *string         `json:"effective_to,omitempty"`
	IsZeroRated   bool            `json:"is_zero_rated"`
	IsExempt      bool            `json:"is_exempt"`
	IsOutOfScope  bool            `json:"is_out_of_scope"`
	Claimable     bool            `json:"claimable"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateTaxCodeRequest) ToUseCaseInput(tenantID, actorID string) (usecase.CreateTaxCodeInput, error) {
	from, err := parseDate("effective_from", r.EffectiveFrom)
	if err != nil {
		return usecase.CreateTaxCodeInput{}, err
	}
	to, err := parseOptionalDate("effective_to", r.EffectiveTo)
	if err != nil {
		return usecase.CreateTaxCodeInput{}, err
	}
	return usecase.CreateTaxCodeInput{
		TenantID:      tenantID,
		ActorID:       actorID,
		Code:          r.Code,
		Description:   r.Description,
		Rate:          r.Rate,
		EffectiveFrom: from,
		EffectiveTo:   to,
		IsZeroRated:   r.IsZeroRated,
		IsExempt:      r.IsExempt,
		IsOutOfScope:  r.IsOutOfScope,
		Claimable:     r.Claimable,
	}, nil
}

// TaxLineRequest is one line to price.
type TaxLineRequest struct {
	Quantity         decimal.Decimal `json:"quantity"`
	UnitPrice        domain.Money    `json:"unit_price"`
	DiscountPct      decimal.Decimal `json:"discount_pct"`
	TaxCode          string          `json:"tax_code"           validate:"required_without=IsExemptOverride"`
	IsInclusive      bool            `json:"is_inclusive"`
	IsExemptOverride bool            `json:"is_exempt_override"`
}

// ComputeTaxRequest prices a set of lines as of a date.
type ComputeTaxRequest struct {
	AsOf  string           `json:"as_of" validate:"required"`
	Lines []TaxLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// ToDomain converts to tax engine inputs.
func (r *ComputeTaxRequest) ToDomain() ([]domain.TaxLineInput, error) {
	asOf, err := parseDate("as_of", r.AsOf)
	if err != nil {
		return nil, err
	}
	lines := make([]domain.TaxLineInput, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = domain.TaxLineInput{
			Quantity:         l.Quantity,
			UnitPrice:        l.UnitPrice,
			DiscountPct:      l.DiscountPct,
			TaxCode:          l.TaxCode,
			AsOf:             asOf,
			IsInclusive:      l.IsInclusive,
			IsExemptOverride: l.IsExemptOverride,
		}
	}
	return lines, nil
}

// CreatePeriodRequest opens a fiscal period.
type CreatePeriodRequest struct {
	Name      string `json:"name"       validate:"max=64"`
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date"   validate:"required"`
}

// ToUseCaseInput converts to use case input.
func (r *CreatePeriodRequest) ToUseCaseInput(tenantID, actorID string) (usecase.CreatePeriodInput, error) {
	start, err := parseDate("start_date", r.StartDate)
	if err != nil {
		return usecase.CreatePeriodInput{}, err
	}
	end, err := parseDate("end_date", r.EndDate)
	if err != nil {
		return usecase.CreatePeriodInput{}, err
	}
	return usecase.CreatePeriodInput{
		TenantID:  tenantID,
		ActorID:   actorID,
		Name:      r.Name,
		StartDate: start,
		EndDate:   end,
	}, nil
}

// UnlockPeriodRequest moves a locked period back to closed.
type UnlockPeriodRequest struct {
	Override bool `json:"override"`
}

// DocumentLineRequest is one line of a document.
type DocumentLineRequest struct {
	AccountID           string          `json:"account_id"  validate:"required"`
	Description         string          `json:"description" validate:"max=500"`
	Quantity            decimal.Decimal `json:"quantity"`
	UnitPrice           domain.Money    `json:"unit_price"`
	DiscountPct         decimal.Decimal `json:"discount_pct"`
	TaxCode             string          `json:"tax_code"`
	IsTaxInclusive      bool            `json:"is_tax_inclusive"`
	IsTaxExemptOverride bool            `json:"is_tax_exempt_override"`
}

func (l DocumentLineRequest) toUseCase() usecase.DocumentLineInput {
	return usecase.DocumentLineInput{
		AccountID:           l.AccountID,
		Description:         l.Description,
		Quantity:            l.Quantity,
		UnitPrice:           l.UnitPrice,
		DiscountPct:         l.DiscountPct,
		TaxCode:             l.TaxCode,
		IsTaxInclusive:      l.IsTaxInclusive,
		IsTaxExemptOverride: l.IsTaxExemptOverride,
	}
}

// DocumentRequest carries the editable fields of a draft.
type DocumentRequest struct {
	Kind           string                `json:"kind"            validate:"omitempty,oneof=invoice credit_note debit_note quote"`
	Direction      string                `json:"direction"       validate:"omitempty,oneof=sales purchase"`
	CounterpartyID string                `json:"counterparty_id" validate:"required"`
	Reference      string                `json:"reference"       validate:"max=128"`
	Date           string                `json:"date"            validate:"required"`
	DueDate        *string               `json:"due_date,omitempty"`
	Currency       string                `json:"currency"        validate:"required,len=3,uppercase"`
	Lines          []DocumentLineRequest `json:"lines"           validate:"required,min=1,dive"`
}

func (r *DocumentRequest) header() (date time.Time, due *time.Time, lines []usecase.DocumentLineInput, err error) {
	if date, err = parseDate("date", r.Date); err != nil {
		return
	}
	if due, err = parseOptionalDate("due_date", r.DueDate); err != nil {
		return
	}
	lines = make([]usecase.DocumentLineInput, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = l.toUseCase()
	}
	return
}

// ToCreateInput converts to a CreateDraft input. Kind and direction are
// required on create.
func (r *DocumentRequest) ToCreateInput(tenantID, actorID string) (usecase.CreateDraftInput, error) {
	if r.Kind == "" || r.Direction == "" {
		return usecase.CreateDraftInput{}, fmt.Errorf("kind and direction are required")
	}
	date, due, lines, err := r.header()
	if err != nil {
		return usecase.CreateDraftInput{}, err
	}
	return usecase.CreateDraftInput{
		TenantID:       tenantID,
		ActorID:        actorID,
		Kind:           domain.DocumentKind(r.Kind),
		Direction:      domain.DocumentDirection(r.Direction),
		CounterpartyID: r.CounterpartyID,
		Reference:      r.Reference,
		Date:           date,
		DueDate:        due,
		Currency:       r.Currency,
		Lines:          lines,
	}, nil
}

// ToUpdateInput converts to an UpdateDraft input.
func (r *DocumentRequest) ToUpdateInput(tenantID, actorID, id string) (usecase.UpdateDraftInput, error) {
	date, due, lines, err := r.header()
	if err != nil {
		return usecase.UpdateDraftInput{}, err
	}
	return usecase.UpdateDraftInput{
		TenantID:       tenantID,
		ActorID:        actorID,
		DocumentID:     id,
		CounterpartyID: r.CounterpartyID,
		Reference:      r.Reference,
		Date:           date,
		DueDate:        due,
		Currency:       r.Currency,
		Lines:          lines,
	}, nil
}

// VoidRequest carries the mandatory void reason.
type VoidRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// PaymentRequest records money received or paid against a document.
type PaymentRequest struct {
	Amount domain.Money `json:"amount"`
}

// OverdueRequest flags a document as overdue as of a date.
type OverdueRequest struct {
	AsOf string `json:"as_of" validate:"required"`
}

// AsOfDate parses AsOf.
func (r *OverdueRequest) AsOfDate() (time.Time, error) {
	return parseDate("as_of", r.AsOf)
}

// JournalLineRequest is one side of a manual posting.
type JournalLineRequest struct {
	AccountID   string       `json:"account_id" validate:"required"`
	Debit       domain.Money `json:"debit"`
	Credit      domain.Money `json:"credit"`
	Description string       `json:"description" validate:"max=500"`
}

// PostEntryRequest posts a manual journal entry.
type PostEntryRequest struct {
	EntryDate string               `json:"entry_date" validate:"required"`
	Currency  string               `json:"currency"   validate:"required,len=3,uppercase"`
	Memo      string               `json:"memo"       validate:"max=500"`
	Source    *domain.SourceRef    `json:"source,omitempty"`
	Lines     []JournalLineRequest `json:"lines"      validate:"required,min=2,dive"`
}

// ToUseCaseInput converts to use case input.
func (r *PostEntryRequest) ToUseCaseInput(tenantID, actorID string) (usecase.PostEntryInput, error) {
	date, err := parseDate("entry_date", r.EntryDate)
	if err != nil {
		return usecase.PostEntryInput{}, err
	}
	lines := make([]usecase.PostLineInput, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = usecase.PostLineInput{
			AccountID:   l.AccountID,
			Debit:       l.Debit,
			Credit:      l.Credit,
			Description: l.Description,
		}
	}
	return usecase.PostEntryInput{
		TenantID:  tenantID,
		ActorID:   actorID,
		EntryDate: date,
		Currency:  r.Currency,
		Memo:      r.Memo,
		Source:    r.Source,
		Lines:     lines,
	}, nil
}

// ReverseEntryRequest reverses a posted entry.
type ReverseEntryRequest struct {
	Reason    string  `json:"reason"     validate:"required,max=500"`
	EntryDate *string `json:"entry_date,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *ReverseEntryRequest) ToUseCaseInput(tenantID, actorID, entryID string) (usecase.ReverseEntryInput, error) {
	date, err := parseOptionalDate("entry_date", r.EntryDate)
	if err != nil {
		return usecase.ReverseEntryInput{}, err
	}
	return usecase.ReverseEntryInput{
		TenantID:  tenantID,
		ActorID:   actorID,
		EntryID:   entryID,
		Reason:    r.Reason,
		EntryDate: date,
	}, nil
}
