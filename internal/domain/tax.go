package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// TaxCode is one rate row of a tax code. Rows sharing a Code form its rate
// history and have disjoint [EffectiveFrom, EffectiveTo) ranges.
type TaxCode struct {
	ID            string          `json:"id"`
	TenantID      string          `json:"tenant_id"`
	Code          string          `json:"code"`
	Description   string          `json:"description,omitempty"`
	Rate          decimal.Decimal `json:"rate"`
	EffectiveFrom time.Time       `json:"effective_from"`
	EffectiveTo   *time.Time      `json:"effective_to,omitempty"`
	IsZeroRated   bool            `json:"is_zero_rated"`
	IsExempt      bool            `json:"is_exempt"`
	IsOutOfScope  bool            `json:"is_out_of_scope"`
	Claimable     bool            `json:"claimable"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Validate checks the rate bounds and the effective range.
func (c *TaxCode) Validate() error {
	if c.Code == "" {
		return fmt.Errorf("%w: code is required", ErrInvalidTaxCode)
	}
	if c.Rate.IsNegative() || c.Rate.GreaterThan(one) {
		return fmt.Errorf("%w: got %s", ErrInvalidTaxRate, c.Rate)
	}
	if c.EffectiveTo != nil && !DateOnly(*c.EffectiveTo).After(DateOnly(c.EffectiveFrom)) {
		return fmt.Errorf("%w: effective_to must be after effective_from", ErrInvalidTaxRange)
	}
	return nil
}

// Chargeable reports whether the code produces tax at its rate.
func (c *TaxCode) Chargeable() bool {
	return !c.IsZeroRated && !c.IsExempt && !c.IsOutOfScope
}

// EffectiveOn reports whether d falls inside [EffectiveFrom, EffectiveTo).
func (c *TaxCode) EffectiveOn(d time.Time) bool {
	day := DateOnly(d)
	if day.Before(DateOnly(c.EffectiveFrom)) {
		return false
	}
	return c.EffectiveTo == nil || day.Before(DateOnly(*c.EffectiveTo))
}

// Overlaps reports whether the two effective ranges intersect.
func (c *TaxCode) Overlaps(o *TaxCode) bool {
	startsBeforeOtherEnds := o.EffectiveTo == nil || DateOnly(c.EffectiveFrom).Before(DateOnly(*o.EffectiveTo))
	otherStartsBeforeEnd := c.EffectiveTo == nil || DateOnly(o.EffectiveFrom).Before(DateOnly(*c.EffectiveTo))
	return startsBeforeOtherEnds && otherStartsBeforeEnd
}

// TaxRateResolver resolves a code to the row effective on a date.
type TaxRateResolver interface {
	Resolve(code string, asOf time.Time) (TaxCode, error)
}

// TaxTable is an in-memory set of tax code rows.
type TaxTable []TaxCode

// Resolve returns the row of code effective on asOf.
func (t TaxTable) Resolve(code string, asOf time.Time) (TaxCode, error) {
	for i := range t {
		if t[i].Code == code && t[i].EffectiveOn(asOf) {
			return t[i], nil
		}
	}
	return TaxCode{}, &UnknownTaxRateError{Code: code, AsOf: DateOnly(asOf)}
}

// Codes returns the distinct codes in the table, sorted.
func (t TaxTable) Codes() []string {
	seen := make(map[string]struct{}, len(t))
	codes := make([]string, 0, len(t))
	for _, row := range t {
		if _, ok := seen[row.Code]; ok {
			continue
		}
		seen[row.Code] = struct{}{}
		codes = append(codes, row.Code)
	}
	sort.Strings(codes)
	return codes
}

// TaxLineInput is the input of ComputeLine.
type TaxLineInput struct {
	Quantity         decimal.Decimal
	UnitPrice        Money
	DiscountPct      decimal.Decimal
	TaxCode          string
	AsOf             time.Time
	IsInclusive      bool
	IsExemptOverride bool
}

// TaxLineResult holds the computed amounts of one line.
type TaxLineResult struct {
	Net   Money
	Tax   Money
	Gross Money
	// Code is the resolved row. It is nil for exempt overrides, which skip
	// resolution.
	Code *TaxCode
}

// ComputeLine computes net, tax and gross for one line. The result depends
// only on its arguments.
func ComputeLine(in TaxLineInput, rates TaxRateResolver) (TaxLineResult, error) {
	if in.Quantity.IsNegative() {
		return TaxLineResult{}, fmt.Errorf("%w: got %s", ErrInvalidQuantity, in.Quantity)
	}
	if in.DiscountPct.IsNegative() || in.DiscountPct.GreaterThan(hundred) {
		return TaxLineResult{}, fmt.Errorf("%w: got %s", ErrInvalidDiscount, in.DiscountPct)
	}
	if in.UnitPrice.IsNegative() {
		return TaxLineResult{}, ErrNegativeUnitPrice
	}

	// quantity * price * (100 - pct) / 100, rounded once.
	lineAmount, err := in.UnitPrice.ScaleChecked(in.Quantity.Mul(hundred.Sub(in.DiscountPct)), hundred)
	if err != nil {
		return TaxLineResult{}, err
	}

	if in.IsExemptOverride {
		return TaxLineResult{Net: lineAmount, Tax: Zero(), Gross: lineAmount}, nil
	}

	code, err := rates.Resolve(in.TaxCode, in.AsOf)
	if err != nil {
		return TaxLineResult{}, err
	}

	result := TaxLineResult{Code: &code}
	switch {
	case !code.Chargeable():
		result.Net = lineAmount
		result.Tax = Zero()
	case in.IsInclusive:
		result.Tax = lineAmount.Scale(code.Rate, one.Add(code.Rate))
		result.Net = lineAmount.Sub(result.Tax)
	default:
		result.Net = lineAmount
		result.Tax = lineAmount.MulRatio(code.Rate)
	}
	if result.Gross, err = result.Net.AddChecked(result.Tax); err != nil {
		return TaxLineResult{}, err
	}

	return result, nil
}

// DocumentTotals are the element-wise sums of line results.
type DocumentTotals struct {
	Subtotal   Money `json:"subtotal"`
	TaxTotal   Money `json:"tax_total"`
	GrossTotal Money `json:"gross_total"`
}

// SumLines totals a set of line results. It fails with a PrecisionError when
// a total is out of range.
func SumLines(results []TaxLineResult) (DocumentTotals, error) {
	nets := make([]Money, len(results))
	taxes := make([]Money, len(results))
	grosses := make([]Money, len(results))
	for i, r := range results {
		nets[i], taxes[i], grosses[i] = r.Net, r.Tax, r.Gross
	}

	var (
		totals DocumentTotals
		err    error
	)
	if totals.Subtotal, err = SumChecked(nets...); err != nil {
		return DocumentTotals{}, err
	}
	if totals.TaxTotal, err = SumChecked(taxes...); err != nil {
		return DocumentTotals{}, err
	}
	if totals.GrossTotal, err = SumChecked(grosses...); err != nil {
		return DocumentTotals{}, err
	}
	return totals, nil
}

// IsNegative reports whether any total is below zero.
func (t DocumentTotals) IsNegative() bool {
	return t.Subtotal.IsNegative() || t.TaxTotal.IsNegative() || t.GrossTotal.IsNegative()
}

// DateOnly truncates t to midnight UTC of its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
