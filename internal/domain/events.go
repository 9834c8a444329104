package domain

import "time"

// Event types
const (
	EventTypeDocumentApproved     = "document.approved"
	EventTypeDocumentVoided       = "document.voided"
	EventTypeDocumentPaid         = "document.payment_recorded"
	EventTypeJournalEntryPosted   = "journal_entry.posted"
	EventTypeJournalEntryReversed = "journal_entry.reversed"
)

// Aggregate types
const (
	AggregateTypeDocument     = "document"
	AggregateTypeJournalEntry = "journal_entry"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	TenantID      string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// DocumentApprovedEvent payload
type DocumentApprovedEvent struct {
	DocumentID     string `json:"document_id"`
	Kind           string `json:"kind"`
	Direction      string `json:"direction"`
	Number         string `json:"number"`
	JournalEntryID string `json:"journal_entry_id,omitempty"`
	GrossTotal     string `json:"gross_total"`
	Currency       string `json:"currency"`
}

// DocumentVoidedEvent payload
type DocumentVoidedEvent struct {
	DocumentID      string `json:"document_id"`
	Number          string `json:"number"`
	Reason          string `json:"reason"`
	ReversalEntryID string `json:"reversal_entry_id,omitempty"`
}

// JournalEntryPostedEvent payload
type JournalEntryPostedEvent struct {
	EntryID     string `json:"entry_id"`
	EntryNumber int64  `json:"entry_number"`
	EntryDate   string `json:"entry_date"`
	Total       string `json:"total"`
	SourceKind  string `json:"source_kind,omitempty"`
	SourceID    string `json:"source_id,omitempty"`
}

// JournalEntryReversedEvent payload
type JournalEntryReversedEvent struct {
	OriginalEntryID string `json:"original_entry_id"`
	ReversalEntryID string `json:"reversal_entry_id"`
	Reason          string `json:"reason"`
}

// Payload flattens an event struct into an outbox payload.
func Payload(v any) map[string]any {
	return MarshalState(v)
}
