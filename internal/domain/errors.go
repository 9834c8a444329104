package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// Core taxonomy. Typed errors below match these through errors.Is.
	ErrPrecision         = errors.New("precision error")
	ErrUnknownTaxRate    = errors.New("unknown tax rate")
	ErrUnbalancedEntry   = errors.New("unbalanced journal entry")
	ErrInvalidTransition = errors.New("invalid document transition")
	ErrAlreadyReversed   = errors.New("journal entry already reversed")
	ErrClosedPeriod      = errors.New("fiscal period is closed")
	ErrSequenceConflict  = errors.New("sequence conflict")

	// Tenant errors
	ErrTenantRequired = errors.New("tenant id is required")
	ErrInvalidTenant  = errors.New("invalid tenant id")

	// Account errors
	ErrAccountNotFound      = errors.New("account not found")
	ErrAccountExists        = errors.New("account code already exists")
	ErrHeaderAccount        = errors.New("header accounts cannot receive postings")
	ErrAccountInactive      = errors.New("account is inactive")
	ErrAccountDepthExceeded = errors.New("account hierarchy too deep")
	ErrInvalidParentAccount = errors.New("invalid parent account")
	ErrInvalidAccountType   = errors.New("invalid account type")
	ErrPostingProfileNotSet = errors.New("posting profile not configured")

	// Tax errors
	ErrTaxCodeNotFound   = errors.New("tax code not found")
	ErrInvalidTaxCode    = errors.New("invalid tax code")
	ErrInvalidTaxRate    = errors.New("tax rate must be between 0 and 1")
	ErrInvalidTaxRange   = errors.New("invalid tax code effective range")
	ErrTaxRangeOverlap   = errors.New("tax code effective range overlaps an existing rate")
	ErrInvalidQuantity   = errors.New("quantity must not be negative")
	ErrInvalidDiscount   = errors.New("discount must be between 0 and 100")
	ErrNegativeUnitPrice = errors.New("unit price must not be negative")

	// Journal errors
	ErrEntryNotFound        = errors.New("journal entry not found")
	ErrTooFewJournalLines   = errors.New("journal entry needs at least two lines")
	ErrInvalidJournalLine   = errors.New("journal line must have exactly one positive side")
	ErrReversalReasonNeeded = errors.New("reversal reason is required")

	// Document errors
	ErrDocumentNotFound    = errors.New("document not found")
	ErrDocumentNotEditable = errors.New("only draft documents can be changed")
	ErrNoLines             = errors.New("document has no lines")
	ErrNegativeTotal       = errors.New("document totals must not be negative")
	ErrVoidReasonRequired  = errors.New("void reason is required")
	ErrInvalidPayment      = errors.New("payment amount must be positive")
	ErrOverpayment         = errors.New("payment exceeds amount due")
	ErrNotOverdue          = errors.New("document is not past its due date")
	ErrInvalidDocumentKind = errors.New("invalid document kind")

	// Period errors
	ErrPeriodNotFound          = errors.New("fiscal period not found")
	ErrPeriodOverlap           = errors.New("fiscal period overlaps an existing period")
	ErrInvalidPeriodRange      = errors.New("fiscal period end must not be before start")
	ErrInvalidPeriodTransition = errors.New("invalid fiscal period transition")
)

// PrecisionError reports money input that is not an exact decimal.
type PrecisionError struct {
	Input  string
	Reason string
}

func (e *PrecisionError) Error() string {
	return fmt.Sprintf("precision error: %s (%q)", e.Reason, e.Input)
}

func (e *PrecisionError) Is(target error) bool { return target == ErrPrecision }

// UnknownTaxRateError reports a tax code with no row effective on AsOf.
type UnknownTaxRateError struct {
	Code string
	AsOf time.Time
}

func (e *UnknownTaxRateError) Error() string {
	return fmt.Sprintf("unknown tax rate: no %q rate effective on %s", e.Code, e.AsOf.Format(time.DateOnly))
}

func (e *UnknownTaxRateError) Is(target error) bool { return target == ErrUnknownTaxRate }

// UnbalancedEntryError reports debits and credits that differ.
type UnbalancedEntryError struct {
	EntryID string
	Debits  Money
	Credits Money
}

func (e *UnbalancedEntryError) Error() string {
	if e.EntryID != "" {
		return fmt.Sprintf("unbalanced journal entry %s: debits %s, credits %s", e.EntryID, e.Debits, e.Credits)
	}
	return fmt.Sprintf("unbalanced journal entry: debits %s, credits %s", e.Debits, e.Credits)
}

func (e *UnbalancedEntryError) Is(target error) bool { return target == ErrUnbalancedEntry }

// InvalidTransitionError names the rejected (from, to) pair.
type InvalidTransitionError struct {
	DocumentID string
	From       DocumentStatus
	To         DocumentStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid document transition %s -> %s", e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// AlreadyReversedError is returned when reversing an entry twice.
type AlreadyReversedError struct {
	EntryID    string
	ReversedBy string
}

func (e *AlreadyReversedError) Error() string {
	return fmt.Sprintf("journal entry %s already reversed by %s", e.EntryID, e.ReversedBy)
}

func (e *AlreadyReversedError) Is(target error) bool { return target == ErrAlreadyReversed }

// ClosedPeriodError reports a posting date inside a closed or locked period.
type ClosedPeriodError struct {
	Date     time.Time
	PeriodID string
	Status   PeriodStatus
}

func (e *ClosedPeriodError) Error() string {
	return fmt.Sprintf("fiscal period %s is %s for %s", e.PeriodID, e.Status, e.Date.Format(time.DateOnly))
}

func (e *ClosedPeriodError) Is(target error) bool { return target == ErrClosedPeriod }

// SequenceConflictError reports a duplicate or non-monotonic number.
type SequenceConflictError struct {
	TenantID string
	Kind     SequenceKind
	Number   int64
}

func (e *SequenceConflictError) Error() string {
	return fmt.Sprintf("sequence conflict: %s number %d already issued for tenant %s", e.Kind, e.Number, e.TenantID)
}

func (e *SequenceConflictError) Is(target error) bool { return target == ErrSequenceConflict }

// AccountError attaches the offending account id to an account failure.
type AccountError struct {
	AccountID string
	Err       error
}

func (e *AccountError) Error() string {
	return fmt.Sprintf("account %s: %v", e.AccountID, e.Err)
}

func (e *AccountError) Unwrap() error { return e.Err }
