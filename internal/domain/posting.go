package domain

import (
	"fmt"
	"time"
)

// PostingProfile holds the control accounts a tenant posts documents against.
type PostingProfile struct {
	TenantID string `json:"tenant_id"`
	// ReceivableAccountID is debited with the gross of sales documents.
	ReceivableAccountID string `json:"receivable_account_id"`
	// PayableAccountID is credited with the gross of purchase documents.
	PayableAccountID   string `json:"payable_account_id"`
	OutputTaxAccountID string `json:"output_tax_account_id"`
	InputTaxAccountID  string `json:"input_tax_account_id"`
	// ExemptSalesAccountID receives exempt-override sales lines, which are
	// liabilities (e.g. deposits) rather than revenue.
	ExemptSalesAccountID    string    `json:"exempt_sales_account_id"`
	ExemptPurchaseAccountID string    `json:"exempt_purchase_account_id"`
	UpdatedAt               time.Time `json:"updated_at"`
}

// AccountIDs returns every account the profile references.
func (p *PostingProfile) AccountIDs() []string {
	return []string{
		p.ReceivableAccountID,
		p.PayableAccountID,
		p.OutputTaxAccountID,
		p.InputTaxAccountID,
		p.ExemptSalesAccountID,
		p.ExemptPurchaseAccountID,
	}
}

// Validate checks that every account is set.
func (p *PostingProfile) Validate() error {
	for _, id := range p.AccountIDs() {
		if id == "" {
			return fmt.Errorf("%w: all profile accounts are required", ErrPostingProfileNotSet)
		}
	}
	return nil
}

// BuildDocumentPosting maps an approved document to journal lines.
//
// Sales invoices and debit notes debit the receivable for the gross total,
// credit each line's account with its net and credit output tax with its
// tax. Purchase documents credit the payable and debit each line's account;
// tax goes to input tax when the code is claimable and is folded into the
// line's debit otherwise. Exempt-override lines use the profile's exempt
// accounts. Credit notes post the mirror image. Zero lines are omitted.
func BuildDocumentPosting(doc *Document, profile *PostingProfile) ([]JournalLine, error) {
	if !doc.Kind.Posts() {
		return nil, fmt.Errorf("%w: %s documents are not posted", ErrInvalidDocumentKind, doc.Kind)
	}

	var lines []JournalLine
	switch doc.Direction {
	case DirectionSales:
		lines = salesPosting(doc, profile)
	case DirectionPurchase:
		lines = purchasePosting(doc, profile)
	default:
		return nil, fmt.Errorf("%w: direction %q", ErrInvalidDocumentKind, doc.Direction)
	}

	if doc.Kind == DocumentKindCreditNote {
		for i := range lines {
			lines[i] = lines[i].Swapped()
		}
	}

	out := lines[:0]
	for _, l := range lines {
		if l.Debit.IsZero() && l.Credit.IsZero() {
			continue
		}
		l.LineNumber = len(out) + 1
		out = append(out, l)
	}
	return out, nil
}

func salesPosting(doc *Document, profile *PostingProfile) []JournalLine {
	label := doc.Number
	lines := []JournalLine{DebitLine(profile.ReceivableAccountID, doc.Totals.GrossTotal, label)}
	for _, dl := range doc.Lines {
		account := dl.AccountID
		if dl.IsTaxExemptOverride {
			account = profile.ExemptSalesAccountID
		}
		lines = append(lines, CreditLine(account, dl.NetAmount, lineLabel(label, dl)))
		lines = append(lines, CreditLine(profile.OutputTaxAccountID, dl.TaxAmount, lineLabel(label, dl)))
	}
	return lines
}

func purchasePosting(doc *Document, profile *PostingProfile) []JournalLine {
	label := doc.Number
	var lines []JournalLine
	for _, dl := range doc.Lines {
		account := dl.AccountID
		if dl.IsTaxExemptOverride {
			account = profile.ExemptPurchaseAccountID
		}
		if dl.TaxClaimable {
			lines = append(lines, DebitLine(account, dl.NetAmount, lineLabel(label, dl)))
			lines = append(lines, DebitLine(profile.InputTaxAccountID, dl.TaxAmount, lineLabel(label, dl)))
		} else {
			lines = append(lines, DebitLine(account, dl.NetAmount.Add(dl.TaxAmount), lineLabel(label, dl)))
		}
	}
	return append(lines, CreditLine(profile.PayableAccountID, doc.Totals.GrossTotal, label))
}

func lineLabel(number string, dl DocumentLine) string {
	if dl.Description == "" {
		return fmt.Sprintf("%s line %d", number, dl.LineNumber)
	}
	return fmt.Sprintf("%s line %d: %s", number, dl.LineNumber, dl.Description)
}
