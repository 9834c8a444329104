package domain

import "fmt"

// SequenceKind names an independent numbering sequence within a tenant.
type SequenceKind string

// SequenceJournalEntry numbers journal entries.
const SequenceJournalEntry SequenceKind = "journal_entry"

// DocumentSequenceKind returns the sequence of a (direction, kind) pair, e.g.
// "sales.invoice".
func DocumentSequenceKind(direction DocumentDirection, kind DocumentKind) SequenceKind {
	return SequenceKind(string(direction) + "." + string(kind))
}

// FormatDocumentNumber renders "{prefix}-{zero padded n}".
func FormatDocumentNumber(prefix string, n int64, width int) string {
	return fmt.Sprintf("%s-%0*d", prefix, width, n)
}
