package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Source kinds for journal entries.
const (
	SourceKindDocument = "document"
	SourceKindManual   = "manual"
)

// SourceRef points back at whatever produced a journal entry.
type SourceRef struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// JournalLine is one side of a posting. Exactly one of Debit and Credit is
// positive.
type JournalLine struct {
	EntryID     string `json:"entry_id"`
	LineNumber  int    `json:"line_number"`
	AccountID   string `json:"account_id"`
	Debit       Money  `json:"debit"`
	Credit      Money  `json:"credit"`
	Description string `json:"description,omitempty"`
}

// Validate checks the one-sided rule.
func (l *JournalLine) Validate() error {
	if l.Debit.IsNegative() || l.Credit.IsNegative() {
		return fmt.Errorf("%w: line %d has a negative amount", ErrInvalidJournalLine, l.LineNumber)
	}
	if l.Debit.IsZero() == l.Credit.IsZero() {
		return fmt.Errorf("%w: line %d", ErrInvalidJournalLine, l.LineNumber)
	}
	return nil
}

// Swapped returns the line with debit and credit exchanged.
func (l JournalLine) Swapped() JournalLine {
	l.Debit, l.Credit = l.Credit, l.Debit
	return l
}

// DebitLine is a convenience constructor for a debit posting.
func DebitLine(accountID string, amount Money, description string) JournalLine {
	return JournalLine{AccountID: accountID, Debit: amount, Description: description}
}

// CreditLine is a convenience constructor for a credit posting.
func CreditLine(accountID string, amount Money, description string) JournalLine {
	return JournalLine{AccountID: accountID, Credit: amount, Description: description}
}

// JournalEntry is a posted, balanced set of lines. Once stored, only the
// reversal stamp (IsReversed, ReversedByEntryID, ReversedAt) ever changes.
type JournalEntry struct {
	ID                string          `json:"id"`
	TenantID          string          `json:"tenant_id"`
	EntryNumber       int64           `json:"entry_number"`
	EntryDate         time.Time       `json:"entry_date"`
	Currency          string          `json:"currency"`
	ExchangeRate      decimal.Decimal `json:"exchange_rate"`
	Memo              string          `json:"memo,omitempty"`
	Source            *SourceRef      `json:"source,omitempty"`
	ReversalOf        *string         `json:"reversal_of,omitempty"`
	IsReversed        bool            `json:"is_reversed"`
	ReversedByEntryID *string         `json:"reversed_by_entry_id,omitempty"`
	ReversedAt        *time.Time      `json:"reversed_at,omitempty"`
	Lines             []JournalLine   `json:"lines"`
	CreatedBy         string          `json:"created_by,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// Totals returns the sums of the debit and credit columns.
func (e *JournalEntry) Totals() (debits, credits Money) {
	return TotalLines(e.Lines)
}

// TotalLines sums both columns of a line set.
func TotalLines(lines []JournalLine) (debits, credits Money) {
	ds := make([]Money, len(lines))
	cs := make([]Money, len(lines))
	for i, l := range lines {
		ds[i], cs[i] = l.Debit, l.Credit
	}
	return Sum(ds...), Sum(cs...)
}

// ValidateJournalLines checks line count, the one-sided rule and balance.
func ValidateJournalLines(lines []JournalLine) error {
	if len(lines) < 2 {
		return ErrTooFewJournalLines
	}
	for i := range lines {
		if err := lines[i].Validate(); err != nil {
			return err
		}
	}
	ds := make([]Money, len(lines))
	cs := make([]Money, len(lines))
	for i, l := range lines {
		ds[i], cs[i] = l.Debit, l.Credit
	}
	debits, err := SumChecked(ds...)
	if err != nil {
		return err
	}
	credits, err := SumChecked(cs...)
	if err != nil {
		return err
	}
	if !debits.Equal(credits) {
		return &UnbalancedEntryError{Debits: debits, Credits: credits}
	}
	return nil
}

// ValidateBalance re-checks an assembled entry.
func (e *JournalEntry) ValidateBalance() error {
	if err := ValidateJournalLines(e.Lines); err != nil {
		var unbalanced *UnbalancedEntryError
		if errors.As(err, &unbalanced) {
			unbalanced.EntryID = e.ID
		}
		return err
	}
	return nil
}

// ReversalLines returns the entry's lines with every side flipped.
func (e *JournalEntry) ReversalLines() []JournalLine {
	out := make([]JournalLine, len(e.Lines))
	for i, l := range e.Lines {
		s := l.Swapped()
		s.EntryID = ""
		out[i] = s
	}
	return out
}

// AccountIDs returns the distinct accounts touched by lines, in first-seen order.
func AccountIDs(lines []JournalLine) []string {
	seen := make(map[string]struct{}, len(lines))
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.AccountID]; ok {
			continue
		}
		seen[l.AccountID] = struct{}{}
		ids = append(ids, l.AccountID)
	}
	return ids
}

// Clone returns a deep copy.
func (e *JournalEntry) Clone() *JournalEntry {
	c := *e
	c.Lines = append([]JournalLine(nil), e.Lines...)
	if e.Source != nil {
		src := *e.Source
		c.Source = &src
	}
	c.ReversalOf = cloneString(e.ReversalOf)
	c.ReversedByEntryID = cloneString(e.ReversedByEntryID)
	c.ReversedAt = cloneTime(e.ReversedAt)
	return &c
}
