package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/taxledger/internal/domain"
)

// Every repository method is scoped by tenantID. A row owned by another
// tenant is reported as not found.

// AccountRepository defines data access for the chart of accounts.
type AccountRepository interface {
	Create(ctx context.Context, tx Transaction, account *domain.Account) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.Account, error)
	GetByCode(ctx context.Context, tenantID, code string) (*domain.Account, error)
	// GetByIDsForShare reads accounts with a shared lock so that a concurrent
	// deactivation waits for the caller's commit. Missing ids are omitted.
	GetByIDsForShare(ctx context.Context, tx Transaction, tenantID string, ids []string) ([]*domain.Account, error)
	SetActive(ctx context.Context, tx Transaction, tenantID, id string, active bool, updatedAt time.Time) error
	List(ctx context.Context, tenantID string, limit, offset int) ([]*domain.Account, error)
}

// PostingProfileRepository stores the per-tenant control accounts. Both
// getters return ErrPostingProfileNotSet when the tenant has none.
type PostingProfileRepository interface {
	Get(ctx context.Context, tenantID string) (*domain.PostingProfile, error)
	GetTx(ctx context.Context, tx Transaction, tenantID string) (*domain.PostingProfile, error)
	Upsert(ctx context.Context, tx Transaction, profile *domain.PostingProfile) error
}

// TaxCodeRepository defines data access for tax code rate rows.
type TaxCodeRepository interface {
	Create(ctx context.Context, tx Transaction, code *domain.TaxCode) error
	// ListByCodes returns every row of the given codes, all dates.
	ListByCodes(ctx context.Context, tenantID string, codes []string) ([]domain.TaxCode, error)
	// ListByCodesTx is ListByCodes inside tx with a shared lock.
	ListByCodesTx(ctx context.Context, tx Transaction, tenantID string, codes []string) ([]domain.TaxCode, error)
	List(ctx context.Context, tenantID string) ([]domain.TaxCode, error)
}

// SequenceRepository owns the per (tenant, kind) counters.
type SequenceRepository interface {
	// Next increments the counter inside tx and returns the new value. The
	// increment commits or rolls back with tx.
	Next(ctx context.Context, tx Transaction, tenantID string, kind domain.SequenceKind) (int64, error)
	// Current returns the last committed value, zero when unused.
	Current(ctx context.Context, tenantID string, kind domain.SequenceKind) (int64, error)
}

// JournalRepository stores journal entries. It has no method that changes
// amounts or deletes entries; MarkReversed is the only mutation.
type JournalRepository interface {
	Create(ctx context.Context, tx Transaction, entry *domain.JournalEntry) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.JournalEntry, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, tenantID, id string) (*domain.JournalEntry, error)
	// MarkReversed stamps an unreversed entry. It fails with
	// AlreadyReversedError when the stamp is already set.
	MarkReversed(ctx context.Context, tx Transaction, tenantID, id, reversedBy string, reversedAt time.Time) error
	ListBySource(ctx context.Context, tenantID string, source domain.SourceRef) ([]*domain.JournalEntry, error)
	List(ctx context.Context, tenantID string, limit, offset int) ([]*domain.JournalEntry, error)
}

// DocumentFilter narrows document listings.
type DocumentFilter struct {
	Status    domain.DocumentStatus
	Kind      domain.DocumentKind
	Direction domain.DocumentDirection
	Limit     int
	Offset    int
}

// DocumentRepository defines data access for commercial documents.
type DocumentRepository interface {
	Create(ctx context.Context, tx Transaction, doc *domain.Document) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.Document, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, tenantID, id string) (*domain.Document, error)
	// Update replaces the header and lines of doc.
	Update(ctx context.Context, tx Transaction, doc *domain.Document) error
	Delete(ctx context.Context, tx Transaction, tenantID, id string) error
	List(ctx context.Context, tenantID string, filter DocumentFilter) ([]*domain.Document, error)
}

// PeriodRepository defines data access for fiscal periods.
type PeriodRepository interface {
	Create(ctx context.Context, tx Transaction, period *domain.FiscalPeriod) error
	GetByIDForUpdate(ctx context.Context, tx Transaction, tenantID, id string) (*domain.FiscalPeriod, error)
	// FindByDateForShare returns the period containing date, read with a
	// shared lock, or ErrPeriodNotFound.
	FindByDateForShare(ctx context.Context, tx Transaction, tenantID string, date time.Time) (*domain.FiscalPeriod, error)
	ListOverlapping(ctx context.Context, tx Transaction, tenantID string, start, end time.Time) ([]*domain.FiscalPeriod, error)
	UpdateStatus(ctx context.Context, tx Transaction, tenantID, id string, status domain.PeriodStatus, updatedAt time.Time) error
	List(ctx context.Context, tenantID string) ([]*domain.FiscalPeriod, error)
}

// AccountTotal is the debit and credit total of one account.
type AccountTotal struct {
	AccountID string
	Code      string
	Name      string
	Type      domain.AccountType
	Debits    domain.Money
	Credits   domain.Money
}

// LedgerRepository defines data access for tenant-wide ledger checks.
type LedgerRepository interface {
	CheckConsistency(ctx context.Context, tenantID string) (totalDebits, totalCredits domain.Money, err error)
	AccountTotals(ctx context.Context, tenantID string) ([]AccountTotal, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	GetByAggregate(ctx context.Context, tenantID, aggregateType, aggregateID string) ([]*domain.OutboxEvent, error)
	DeletePublished(ctx context.Context, before time.Time) error
}

// AuditRepository defines data access for audit logs.
type AuditRepository interface {
	CreateTx(ctx context.Context, tx Transaction, log *domain.AuditLog) error
	List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier re-runs an operation on transient storage failures.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// ExchangeRateProvider snapshots a conversion rate into journal entries
// posted in a currency other than the tenant's base currency.
type ExchangeRateProvider interface {
	Rate(ctx context.Context, tenantID, currency string, on time.Time) (decimal.Decimal, error)
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}
