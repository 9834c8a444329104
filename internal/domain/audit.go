package domain

import (
	"encoding/json"
	"time"
)

// AuditLog represents an audit trail entry for compliance and debugging
type AuditLog struct {
	ID           string
	TenantID     string
	ActorID      string // Who performed the action
	Action       string // What action (document.approve, journal_entry.reverse, etc.)
	ResourceType string // Type of resource (document, journal_entry, account)
	ResourceID   string // ID of the resource
	RequestID    string // Request ID for tracing
	BeforeState  JSON   // State before the action
	AfterState   JSON   // State after the action
	Status       string // success, failure, error
	ErrorMessage string // If status=error, the error message
	CreatedAt    time.Time
}

// JSON is a type alias for JSON data
type JSON map[string]any

// AuditAction represents different types of auditable actions
type AuditAction string

const (
	AuditActionAccountCreate    AuditAction = "account.create"
	AuditActionAccountUpdate    AuditAction = "account.update"
	AuditActionProfileUpdate    AuditAction = "posting_profile.update"
	AuditActionTaxCodeCreate    AuditAction = "tax_code.create"
	AuditActionPeriodCreate     AuditAction = "period.create"
	AuditActionPeriodTransition AuditAction = "period.transition"
	AuditActionDocumentCreate   AuditAction = "document.create"
	AuditActionDocumentUpdate   AuditAction = "document.update"
	AuditActionDocumentDelete   AuditAction = "document.delete"
	AuditActionDocumentApprove  AuditAction = "document.approve"
	AuditActionDocumentVoid     AuditAction = "document.void"
	AuditActionDocumentStatus   AuditAction = "document.status"
	AuditActionJournalPost      AuditAction = "journal_entry.post"
	AuditActionJournalReverse   AuditAction = "journal_entry.reverse"
)

// AuditStatus represents the status of an audited action
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailure AuditStatus = "failure"
	AuditStatusError   AuditStatus = "error"
)

// SystemActor is recorded when the caller supplies no actor.
const SystemActor = "system"

// MarshalState converts a domain object to JSON for audit logging
func MarshalState(v any) JSON {
	if v == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return JSON{"error": "failed to marshal state"}
	}

	var result JSON
	if err := json.Unmarshal(data, &result); err != nil {
		return JSON{"error": "failed to unmarshal state"}
	}

	return result
}

// AuditFilter defines filters for querying audit logs
type AuditFilter struct {
	TenantID     string
	ActorID      string
	Action       string
	ResourceType string
	ResourceID   string
	StartDate    *time.Time
	EndDate      *time.Time
	Limit        int
	Offset       int
}
