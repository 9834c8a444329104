package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DocumentKind is the commercial kind of a document.
type DocumentKind string

const (
	DocumentKindInvoice    DocumentKind = "invoice"
	DocumentKindCreditNote DocumentKind = "credit_note"
	DocumentKindDebitNote  DocumentKind = "debit_note"
	DocumentKindQuote      DocumentKind = "quote"
)

// Valid reports whether k is a known kind.
func (k DocumentKind) Valid() bool {
	switch k {
	case DocumentKindInvoice, DocumentKindCreditNote, DocumentKindDebitNote, DocumentKindQuote:
		return true
	}
	return false
}

// Posts reports whether approving a document of this kind creates a journal entry.
func (k DocumentKind) Posts() bool {
	return k != DocumentKindQuote
}

// DocumentDirection separates customer documents from supplier documents.
type DocumentDirection string

const (
	DirectionSales    DocumentDirection = "sales"
	DirectionPurchase DocumentDirection = "purchase"
)

// Valid reports whether d is a known direction.
func (d DocumentDirection) Valid() bool {
	return d == DirectionSales || d == DirectionPurchase
}

// DocumentStatus is a state of the document lifecycle.
type DocumentStatus string

const (
	DocumentStatusDraft         DocumentStatus = "DRAFT"
	DocumentStatusApproved      DocumentStatus = "APPROVED"
	DocumentStatusSent          DocumentStatus = "SENT"
	DocumentStatusPartiallyPaid DocumentStatus = "PARTIALLY_PAID"
	DocumentStatusPaid          DocumentStatus = "PAID"
	DocumentStatusOverdue       DocumentStatus = "OVERDUE"
	DocumentStatusVoid          DocumentStatus = "VOID"
)

var documentTransitions = map[DocumentStatus][]DocumentStatus{
	DocumentStatusDraft: {DocumentStatusApproved},
	DocumentStatusApproved: {
		DocumentStatusSent, DocumentStatusPartiallyPaid, DocumentStatusPaid,
		DocumentStatusOverdue, DocumentStatusVoid,
	},
	DocumentStatusSent: {
		DocumentStatusPartiallyPaid, DocumentStatusPaid, DocumentStatusOverdue, DocumentStatusVoid,
	},
	DocumentStatusPartiallyPaid: {
		DocumentStatusPartiallyPaid, DocumentStatusPaid, DocumentStatusOverdue, DocumentStatusVoid,
	},
	DocumentStatusOverdue: {DocumentStatusPartiallyPaid, DocumentStatusPaid, DocumentStatusVoid},
	DocumentStatusPaid:    {DocumentStatusVoid},
	DocumentStatusVoid:    {},
}

// CanTransitionTo reports whether from -> to is a legal lifecycle step.
func (s DocumentStatus) CanTransitionTo(to DocumentStatus) bool {
	for _, allowed := range documentTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// DocumentLine is one priced line of a document. The amount fields are
// computed and never set by callers.
type DocumentLine struct {
	LineNumber          int             `json:"line_number"`
	AccountID           string          `json:"account_id"`
	Description         string          `json:"description,omitempty"`
	Quantity            decimal.Decimal `json:"quantity"`
	UnitPrice           Money           `json:"unit_price"`
	DiscountPct         decimal.Decimal `json:"discount_pct"`
	TaxCode             string          `json:"tax_code"`
	IsTaxInclusive      bool            `json:"is_tax_inclusive"`
	IsTaxExemptOverride bool            `json:"is_tax_exempt_override"`
	NetAmount           Money           `json:"net_amount"`
	TaxAmount           Money           `json:"tax_amount"`
	GrossAmount         Money           `json:"gross_amount"`
	// TaxClaimable is copied from the resolved tax code; purchase postings
	// use it to decide between an input-tax line and folding tax into cost.
	TaxClaimable bool `json:"tax_claimable"`
}

// TaxInput returns the tax engine input for the line as of asOf.
func (l *DocumentLine) TaxInput(asOf time.Time) TaxLineInput {
	return TaxLineInput{
		Quantity:         l.Quantity,
		UnitPrice:        l.UnitPrice,
		DiscountPct:      l.DiscountPct,
		TaxCode:          l.TaxCode,
		AsOf:             asOf,
		IsInclusive:      l.IsTaxInclusive,
		IsExemptOverride: l.IsTaxExemptOverride,
	}
}

// Apply stores a computed result on the line.
func (l *DocumentLine) Apply(r TaxLineResult) {
	l.NetAmount = r.Net
	l.TaxAmount = r.Tax
	l.GrossAmount = r.Gross
	l.TaxClaimable = r.Code != nil && r.Code.Claimable
}

// Document is an invoice, credit note, debit note or quote.
type Document struct {
	ID                   string            `json:"id"`
	TenantID             string            `json:"tenant_id"`
	Kind                 DocumentKind      `json:"kind"`
	Direction            DocumentDirection `json:"direction"`
	Number               string            `json:"number,omitempty"`
	SequenceNumber       int64             `json:"sequence_number,omitempty"`
	Status               DocumentStatus    `json:"status"`
	CounterpartyID       string            `json:"counterparty_id"`
	Reference            string            `json:"reference,omitempty"`
	Date                 time.Time         `json:"date"`
	DueDate              *time.Time        `json:"due_date,omitempty"`
	Currency             string            `json:"currency"`
	Lines                []DocumentLine    `json:"lines"`
	Totals               DocumentTotals    `json:"totals"`
	AmountPaid           Money             `json:"amount_paid"`
	LinkedJournalEntryID *string           `json:"linked_journal_entry_id,omitempty"`
	VoidReason           *string           `json:"void_reason,omitempty"`
	ApprovedAt           *time.Time        `json:"approved_at,omitempty"`
	VoidedAt             *time.Time        `json:"voided_at,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

// IsEditable reports whether lines and header fields may still change.
func (d *Document) IsEditable() bool {
	return d.Status == DocumentStatusDraft
}

// TransitionTo moves the document to status to, or returns an
// InvalidTransitionError naming the rejected pair.
func (d *Document) TransitionTo(to DocumentStatus) error {
	if !d.Status.CanTransitionTo(to) {
		return &InvalidTransitionError{DocumentID: d.ID, From: d.Status, To: to}
	}
	d.Status = to
	return nil
}

// AmountDue is the gross total less payments recorded so far.
func (d *Document) AmountDue() Money {
	return d.Totals.GrossTotal.Sub(d.AmountPaid)
}

// Recompute runs every line through the tax engine as of the document date
// and replaces line amounts and totals.
func (d *Document) Recompute(rates TaxRateResolver) error {
	results := make([]TaxLineResult, len(d.Lines))
	for i := range d.Lines {
		r, err := ComputeLine(d.Lines[i].TaxInput(d.Date), rates)
		if err != nil {
			return fmt.Errorf("line %d: %w", d.Lines[i].LineNumber, err)
		}
		d.Lines[i].Apply(r)
		results[i] = r
	}
	totals, err := SumLines(results)
	if err != nil {
		return err
	}
	d.Totals = totals
	return nil
}

// TaxCodes returns the distinct tax codes referenced by non-exempt lines.
func (d *Document) TaxCodes() []string {
	seen := make(map[string]struct{})
	var codes []string
	for _, l := range d.Lines {
		if l.IsTaxExemptOverride {
			continue
		}
		if _, ok := seen[l.TaxCode]; ok {
			continue
		}
		seen[l.TaxCode] = struct{}{}
		codes = append(codes, l.TaxCode)
	}
	return codes
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	c := *d
	c.Lines = append([]DocumentLine(nil), d.Lines...)
	c.DueDate = cloneTime(d.DueDate)
	c.ApprovedAt = cloneTime(d.ApprovedAt)
	c.VoidedAt = cloneTime(d.VoidedAt)
	c.LinkedJournalEntryID = cloneString(d.LinkedJournalEntryID)
	c.VoidReason = cloneString(d.VoidReason)
	return &c
}

// SequenceKind returns the numbering sequence for the document.
func (d *Document) SequenceKind() SequenceKind {
	return DocumentSequenceKind(d.Direction, d.Kind)
}

var documentPrefixes = map[DocumentDirection]map[DocumentKind]string{
	DirectionSales: {
		DocumentKindInvoice:    "INV",
		DocumentKindCreditNote: "CN",
		DocumentKindDebitNote:  "DN",
		DocumentKindQuote:      "QT",
	},
	DirectionPurchase: {
		DocumentKindInvoice:    "BILL",
		DocumentKindCreditNote: "VCN",
		DocumentKindDebitNote:  "VDN",
		DocumentKindQuote:      "PQT",
	},
}

// NumberPrefix returns the human-readable prefix for formatted numbers.
func (d *Document) NumberPrefix() string {
	return documentPrefixes[d.Direction][d.Kind]
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
