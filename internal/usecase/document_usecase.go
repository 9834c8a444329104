package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/taxledger/internal/domain"
	"github.com/iho/taxledger/internal/infrastructure/metrics"
)

// DocumentUseCase drives invoices, credit notes, debit notes and quotes
// through their lifecycle.
type DocumentUseCase struct {
	txManager    TransactionManager
	documentRepo DocumentRepository
	taxCodeRepo  TaxCodeRepository
	profileRepo  PostingProfileRepository
	ledger       *LedgerUseCase
	sequences    *SequenceGenerator
	tax          *TaxUseCase
	idGen        IDGenerator
	recorder     recorder
	clock        Clock
	retrier      Retrier
	metrics      *metrics.Metrics
	numberWidth  int
	baseCurrency string
}

// NewDocumentUseCase creates a new DocumentUseCase.
func NewDocumentUseCase(
	txManager TransactionManager,
	documentRepo DocumentRepository,
	taxCodeRepo TaxCodeRepository,
	profileRepo PostingProfileRepository,
	ledger *LedgerUseCase,
	sequences *SequenceGenerator,
	tax *TaxUseCase,
	outboxRepo OutboxRepository,
	auditRepo AuditRepository,
	idGen IDGenerator,
) *DocumentUseCase {
	return &DocumentUseCase{
		txManager:    txManager,
		documentRepo: documentRepo,
		taxCodeRepo:  taxCodeRepo,
		profileRepo:  profileRepo,
		ledger:       ledger,
		sequences:    sequences,
		tax:          tax,
		idGen:        idGen,
		recorder:     recorder{outboxRepo: outboxRepo, auditRepo: auditRepo, idGen: idGen},
		clock:        SystemClock(),
		retrier:      directRetrier{},
		numberWidth:  DefaultNumberWidth,
		baseCurrency: DefaultBaseCurrency,
	}
}

// WithRetrier wraps whole transactions in r.
func (uc *DocumentUseCase) WithRetrier(r Retrier) *DocumentUseCase {
	uc.retrier = r
	return uc
}

// WithClock overrides the clock.
func (uc *DocumentUseCase) WithClock(c Clock) *DocumentUseCase {
	uc.clock = c
	return uc
}

// WithMetrics enables document metrics.
func (uc *DocumentUseCase) WithMetrics(m *metrics.Metrics) *DocumentUseCase {
	uc.metrics = m
	return uc
}

// WithNumberWidth sets the zero padding of document numbers.
func (uc *DocumentUseCase) WithNumberWidth(width int) *DocumentUseCase {
	if width > 0 {
		uc.numberWidth = width
	}
	return uc
}

// WithBaseCurrency sets the currency used when a draft names none.
func (uc *DocumentUseCase) WithBaseCurrency(currency string) *DocumentUseCase {
	if currency != "" {
		uc.baseCurrency = strings.ToUpper(currency)
	}
	return uc
}

// DocumentLineInput is one requested document line.
type DocumentLineInput struct {
	AccountID           string
	Description         string
	Quantity            decimal.Decimal
	UnitPrice           domain.Money
	DiscountPct         decimal.Decimal
	TaxCode             string
	IsTaxInclusive      bool
	IsTaxExemptOverride bool
}

// CreateDraftInput represents input for creating a draft document.
type CreateDraftInput struct {
	TenantID       string
	ActorID        string
	Kind           domain.DocumentKind
	Direction      domain.DocumentDirection
	CounterpartyID string
	Reference      string
	Date           time.Time
	DueDate        *time.Time
	Currency       string
	Lines          []DocumentLineInput
}

// UpdateDraftInput replaces the header fields and lines of a draft.
type UpdateDraftInput struct {
	TenantID       string
	ActorID        string
	DocumentID     string
	CounterpartyID string
	Reference      string
	Date           time.Time
	DueDate        *time.Time
	Currency       string
	Lines          []DocumentLineInput
}

// ApproveInput represents input for approving a draft.
type ApproveInput struct {
	TenantID   string
	ActorID    string
	DocumentID string
}

// VoidInput represents input for voiding a document.
type VoidInput struct {
	TenantID   string
	ActorID    string
	DocumentID string
	Reason     string
}

// RecordPaymentInput represents a payment against a document.
type RecordPaymentInput struct {
	TenantID   string
	ActorID    string
	DocumentID string
	Amount     domain.Money
}

// MarkOverdueInput represents input for flagging an unpaid document.
type MarkOverdueInput struct {
	TenantID   string
	ActorID    string
	DocumentID string
	AsOf       time.Time
}

// DocumentResult is a document together with the journal entry an operation
// posted for it, if any.
type DocumentResult struct {
	Document *domain.Document
	Entry    *domain.JournalEntry
}

// CreateDraft stores a new DRAFT document with preview totals.
func (uc *DocumentUseCase) CreateDraft(ctx context.Context, input CreateDraftInput) (*domain.Document, error) {
	if err := domain.ValidateTenantID(input.TenantID); err != nil {
		return nil, err
	}
	if !input.Kind.Valid() || !input.Direction.Valid() {
		return nil, fmt.Errorf("%w: %s %s", domain.ErrInvalidDocumentKind, input.Direction, input.Kind)
	}

	now := uc.clock.Now()
	doc := &domain.Document{
		ID:        uc.idGen.Generate(),
		TenantID:  input.TenantID,
		Kind:      input.Kind,
		Direction: input.Direction,
		Status:    domain.DocumentStatusDraft,
		CreatedAt: now,
	}
	if err := uc.applyDraft(ctx, doc, input.CounterpartyID, input.Reference, input.Date, input.DueDate, input.Currency, input.Lines); err != nil {
		return nil, err
	}
	doc.UpdatedAt = now

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	if err := uc.documentRepo.Create(txCtx, tx, doc); err != nil {
		return nil, err
	}

	if err := uc.recorder.audit(txCtx, tx, input.TenantID, input.ActorID, domain.AuditActionDocumentCreate,
		domain.AggregateTypeDocument, doc.ID, nil, doc, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	return doc, nil
}

// UpdateDraft replaces the header fields and lines of a DRAFT document.
func (uc *DocumentUseCase) UpdateDraft(ctx context.Context, input UpdateDraftInput) (*domain.Document, error) {
	if err := domain.ValidateTenantID(input.TenantID); err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	doc, err := uc.documentRepo.GetByIDForUpdate(txCtx, tx, input.TenantID, input.DocumentID)
	if err != nil {
		return nil, err
	}
	if !doc.IsEditable() {
		return nil, fmt.Errorf("%w: status %s", domain.ErrDocumentNotEditable, doc.Status)
	}

	before := doc.Clone()
	if err := uc.applyDraft(txCtx, doc, input.CounterpartyID, input.Reference, input.Date, input.DueDate, input.Currency, input.Lines); err != nil {
		return nil, err
	}
	now := uc.clock.Now()
	doc.UpdatedAt = now

	if err := uc.documentRepo.Update(txCtx, tx, doc); err != nil {
		return nil, err
	}

	if err := uc.recorder.audit(txCtx, tx, input.TenantID, input.ActorID, domain.AuditActionDocumentUpdate,
		domain.AggregateTypeDocument, doc.ID, before, doc, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	return doc, nil
}

// DeleteDraft removes a DRAFT document. Other documents are voided instead.
func (uc *DocumentUseCase) DeleteDraft(ctx context.Context, tenantID, actorID, id string) error {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	doc, err := uc.documentRepo.GetByIDForUpdate(txCtx, tx, tenantID, id)
	if err != nil {
		return err
	}
	if !doc.IsEditable() {
		return fmt.Errorf("%w: status %s, void it instead", domain.ErrDocumentNotEditable, doc.Status)
	}

	if err := uc.documentRepo.Delete(txCtx, tx, tenantID, id); err != nil {
		return err
	}

	if err := uc.recorder.audit(txCtx, tx, tenantID, actorID, domain.AuditActionDocumentDelete,
		domain.AggregateTypeDocument, id, doc, nil, uc.clock.Now()); err != nil {
		return err
	}

	return tx.Commit(txCtx)
}

// GetDocument returns one document of the tenant.
func (uc *DocumentUseCase) GetDocument(ctx context.Context, tenantID, id string) (*domain.Document, error) {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}
	return uc.documentRepo.GetByID(ctx, tenantID, id)
}

// ListDocuments lists documents matching filter, newest first.
func (uc *DocumentUseCase) ListDocuments(ctx context.Context, tenantID string, filter DocumentFilter) ([]*domain.Document, error) {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}
	filter.Limit, filter.Offset, _ = domain.ValidatePagination(filter.Limit, filter.Offset)
	return uc.documentRepo.List(ctx, tenantID, filter)
}

// Approve numbers a draft, recomputes it from the current tax codes, posts
// its journal entry and flips it to APPROVED, all in one transaction.
func (uc *DocumentUseCase) Approve(ctx context.Context, input ApproveInput) (*DocumentResult, error) {
	if err := domain.ValidateTenantID(input.TenantID); err != nil {
		return nil, err
	}

	start := time.Now()

	var result *DocumentResult
	err := uc.retrier.Retry(ctx, func() error {
		txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
		defer cancel()

		tx, err := uc.txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		result, err = uc.approveTx(txCtx, tx, input)
		if err != nil {
			return err
		}

		return tx.Commit(txCtx)
	})
	if err != nil {
		uc.recordError(err)
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.DocumentsApproved.WithLabelValues(string(result.Document.Kind)).Inc()
		uc.metrics.ApproveDuration.Observe(time.Since(start).Seconds())
		if result.Entry != nil {
			uc.metrics.JournalEntriesPosted.Inc()
		}
	}

	return result, nil
}

func (uc *DocumentUseCase) approveTx(ctx context.Context, tx Transaction, input ApproveInput) (*DocumentResult, error) {
	doc, err := uc.documentRepo.GetByIDForUpdate(ctx, tx, input.TenantID, input.DocumentID)
	if err != nil {
		return nil, err
	}
	if !doc.Status.CanTransitionTo(domain.DocumentStatusApproved) {
		return nil, &domain.InvalidTransitionError{DocumentID: doc.ID, From: doc.Status, To: domain.DocumentStatusApproved}
	}
	if len(doc.Lines) == 0 {
		return nil, domain.ErrNoLines
	}

	before := doc.Clone()

	// 1. Recompute from rate rows read inside this transaction
	rows, err := uc.taxCodeRepo.ListByCodesTx(ctx, tx, input.TenantID, doc.TaxCodes())
	if err != nil {
		return nil, err
	}
	if err := doc.Recompute(domain.TaxTable(rows)); err != nil {
		return nil, err
	}
	if doc.Totals.IsNegative() {
		return nil, domain.ErrNegativeTotal
	}

	posts := doc.Kind.Posts() && !doc.Totals.GrossTotal.IsZero()

	var profile *domain.PostingProfile
	if posts {
		profile, err = uc.profileRepo.GetTx(ctx, tx, input.TenantID)
		if err != nil {
			return nil, err
		}
		if err := profile.Validate(); err != nil {
			return nil, err
		}
	}

	// 2. Document number, returned to the pool if anything below fails
	n, err := uc.sequences.Next(ctx, tx, input.TenantID, doc.SequenceKind())
	if err != nil {
		return nil, err
	}
	doc.SequenceNumber = n
	doc.Number = domain.FormatDocumentNumber(doc.NumberPrefix(), n, uc.numberWidth)

	// 3. Journal entry, accounts and period are re-validated by the ledger
	var entry *domain.JournalEntry
	if posts {
		lines, err := domain.BuildDocumentPosting(doc, profile)
		if err != nil {
			return nil, err
		}
		entry, err = uc.ledger.PostTx(ctx, tx, PostEntryInput{
			TenantID:  input.TenantID,
			ActorID:   input.ActorID,
			EntryDate: doc.Date,
			Currency:  doc.Currency,
			Memo:      documentMemo(doc),
			Source:    &domain.SourceRef{Kind: domain.SourceKindDocument, ID: doc.ID},
			Lines:     toPostLines(lines),
		})
		if err != nil {
			return nil, err
		}
		doc.LinkedJournalEntryID = &entry.ID
	}

	// 4. Status flips last
	now := uc.clock.Now()
	if err := doc.TransitionTo(domain.DocumentStatusApproved); err != nil {
		return nil, err
	}
	doc.ApprovedAt = &now
	doc.UpdatedAt = now

	if err := uc.documentRepo.Update(ctx, tx, doc); err != nil {
		return nil, err
	}

	approved := domain.DocumentApprovedEvent{
		DocumentID: doc.ID,
		Kind:       string(doc.Kind),
		Direction:  string(doc.Direction),
		Number:     doc.Number,
		GrossTotal: doc.Totals.GrossTotal.String(),
		Currency:   doc.Currency,
	}
	if entry != nil {
		approved.JournalEntryID = entry.ID
	}
	if err := uc.recorder.event(ctx, tx, input.TenantID, domain.AggregateTypeDocument, doc.ID,
		domain.EventTypeDocumentApproved, approved, now); err != nil {
		return nil, err
	}
	if err := uc.recorder.audit(ctx, tx, input.TenantID, input.ActorID, domain.AuditActionDocumentApprove,
		domain.AggregateTypeDocument, doc.ID, before, doc, now); err != nil {
		return nil, err
	}

	return &DocumentResult{Document: doc, Entry: entry}, nil
}

// Void reverses the document's journal entry and flips it to VOID.
func (uc *DocumentUseCase) Void(ctx context.Context, input VoidInput) (*DocumentResult, error) {
	if err := domain.ValidateTenantID(input.TenantID); err != nil {
		return nil, err
	}
	if err := domain.ValidateReason(input.Reason, domain.ErrVoidReasonRequired); err != nil {
		return nil, err
	}

	var result *DocumentResult
	err := uc.retrier.Retry(ctx, func() error {
		txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
		defer cancel()

		tx, err := uc.txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		result, err = uc.voidTx(txCtx, tx, input)
		if err != nil {
			return err
		}

		return tx.Commit(txCtx)
	})
	if err != nil {
		uc.recordError(err)
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.DocumentsVoided.Inc()
		if result.Entry != nil {
			uc.metrics.JournalEntriesReversed.Inc()
		}
	}

	return result, nil
}

func (uc *DocumentUseCase) voidTx(ctx context.Context, tx Transaction, input VoidInput) (*DocumentResult, error) {
	doc, err := uc.documentRepo.GetByIDForUpdate(ctx, tx, input.TenantID, input.DocumentID)
	if err != nil {
		return nil, err
	}
	if !doc.Status.CanTransitionTo(domain.DocumentStatusVoid) {
		return nil, &domain.InvalidTransitionError{DocumentID: doc.ID, From: doc.Status, To: domain.DocumentStatusVoid}
	}

	before := doc.Clone()
	reason := strings.TrimSpace(input.Reason)

	var reversal *domain.JournalEntry
	if doc.LinkedJournalEntryID != nil {
		reversal, err = uc.ledger.ReverseTx(ctx, tx, ReverseEntryInput{
			TenantID: input.TenantID,
			ActorID:  input.ActorID,
			EntryID:  *doc.LinkedJournalEntryID,
			Reason:   reason,
		})
		if err != nil {
			return nil, err
		}
	}

	now := uc.clock.Now()
	if err := doc.TransitionTo(domain.DocumentStatusVoid); err != nil {
		return nil, err
	}
	doc.VoidReason = &reason
	doc.VoidedAt = &now
	doc.UpdatedAt = now

	if err := uc.documentRepo.Update(ctx, tx, doc); err != nil {
		return nil, err
	}

	voided := domain.DocumentVoidedEvent{DocumentID: doc.ID, Number: doc.Number, Reason: reason}
	if reversal != nil {
		voided.ReversalEntryID = reversal.ID
	}
	if err := uc.recorder.event(ctx, tx, input.TenantID, domain.AggregateTypeDocument, doc.ID,
		domain.EventTypeDocumentVoided, voided, now); err != nil {
		return nil, err
	}
	if err := uc.recorder.audit(ctx, tx, input.TenantID, input.ActorID, domain.AuditActionDocumentVoid,
		domain.AggregateTypeDocument, doc.ID, before, doc, now); err != nil {
		return nil, err
	}

	return &DocumentResult{Document: doc, Entry: reversal}, nil
}

// MarkSent records that the document went out to the counterparty.
func (uc *DocumentUseCase) MarkSent(ctx context.Context, tenantID, actorID, id string) (*domain.Document, error) {
	return uc.changeStatus(ctx, tenantID, actorID, id, func(doc *domain.Document) (string, any, error) {
		return "", nil, doc.TransitionTo(domain.DocumentStatusSent)
	})
}

// RecordPayment adds a payment and moves the document to PARTIALLY_PAID or
// PAID. Cash postings for the payment are not made here.
func (uc *DocumentUseCase) RecordPayment(ctx context.Context, input RecordPaymentInput) (*domain.Document, error) {
	if !input.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", domain.ErrInvalidPayment)
	}

	return uc.changeStatus(ctx, input.TenantID, input.ActorID, input.DocumentID, func(doc *domain.Document) (string, any, error) {
		if !doc.Kind.Posts() {
			return "", nil, fmt.Errorf("%w: %s documents take no payments", domain.ErrInvalidDocumentKind, doc.Kind)
		}

		paid := doc.AmountPaid.Add(input.Amount)
		if paid.GreaterThan(doc.Totals.GrossTotal) {
			return "", nil, fmt.Errorf("%w: %s due, %s offered", domain.ErrOverpayment,
				doc.AmountDue().Display(), input.Amount.Display())
		}

		target := domain.DocumentStatusPartiallyPaid
		if paid.Equal(doc.Totals.GrossTotal) {
			target = domain.DocumentStatusPaid
		}
		if err := doc.TransitionTo(target); err != nil {
			return "", nil, err
		}
		doc.AmountPaid = paid

		return domain.EventTypeDocumentPaid, map[string]any{
			"document_id": doc.ID,
			"number":      doc.Number,
			"amount":      input.Amount.String(),
			"amount_paid": paid.String(),
			"status":      string(doc.Status),
		}, nil
	})
}

// MarkOverdue flags a document whose due date is before asOf.
func (uc *DocumentUseCase) MarkOverdue(ctx context.Context, input MarkOverdueInput) (*domain.Document, error) {
	asOf := input.AsOf
	if asOf.IsZero() {
		asOf = uc.clock.Now()
	}
	asOf = domain.DateOnly(asOf)

	return uc.changeStatus(ctx, input.TenantID, input.ActorID, input.DocumentID, func(doc *domain.Document) (string, any, error) {
		if doc.DueDate == nil || !domain.DateOnly(*doc.DueDate).Before(asOf) {
			return "", nil, domain.ErrNotOverdue
		}
		return "", nil, doc.TransitionTo(domain.DocumentStatusOverdue)
	})
}

// changeStatus runs fn against the locked document and persists the result.
// fn may return an outbox event to write alongside.
func (uc *DocumentUseCase) changeStatus(ctx context.Context, tenantID, actorID, id string, fn func(doc *domain.Document) (string, any, error)) (*domain.Document, error) {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}

	var doc *domain.Document
	err := uc.retrier.Retry(ctx, func() error {
		txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
		defer cancel()

		tx, err := uc.txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		doc, err = uc.documentRepo.GetByIDForUpdate(txCtx, tx, tenantID, id)
		if err != nil {
			return err
		}
		before := doc.Clone()

		eventType, payload, err := fn(doc)
		if err != nil {
			return err
		}

		now := uc.clock.Now()
		doc.UpdatedAt = now

		if err := uc.documentRepo.Update(txCtx, tx, doc); err != nil {
			return err
		}

		if eventType != "" {
			if err := uc.recorder.event(txCtx, tx, tenantID, domain.AggregateTypeDocument, doc.ID,
				eventType, payload, now); err != nil {
				return err
			}
		}
		if err := uc.recorder.audit(txCtx, tx, tenantID, actorID, domain.AuditActionDocumentStatus,
			domain.AggregateTypeDocument, doc.ID, before, doc, now); err != nil {
			return err
		}

		return tx.Commit(txCtx)
	})
	if err != nil {
		return nil, err
	}

	return doc, nil
}

// applyDraft copies header fields and lines onto doc and computes preview
// totals with the cached tax codes.
func (uc *DocumentUseCase) applyDraft(ctx context.Context, doc *domain.Document, counterpartyID, reference string, date time.Time, dueDate *time.Time, currency string, lines []DocumentLineInput) error {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = uc.baseCurrency
	}
	if err := domain.ValidateCurrency(currency); err != nil {
		return err
	}

	if date.IsZero() {
		date = uc.clock.Now()
	}
	doc.Date = domain.DateOnly(date)
	doc.DueDate = nil
	if dueDate != nil {
		d := domain.DateOnly(*dueDate)
		doc.DueDate = &d
	}
	doc.CounterpartyID = counterpartyID
	doc.Reference = reference
	doc.Currency = currency

	doc.Lines = make([]domain.DocumentLine, len(lines))
	for i, l := range lines {
		if l.AccountID == "" {
			return fmt.Errorf("line %d: %w", i+1, domain.ErrInvalidJournalLine)
		}
		doc.Lines[i] = domain.DocumentLine{
			LineNumber:          i + 1,
			AccountID:           l.AccountID,
			Description:         l.Description,
			Quantity:            l.Quantity,
			UnitPrice:           l.UnitPrice,
			DiscountPct:         l.DiscountPct,
			TaxCode:             normalizeTaxCode(l.TaxCode),
			IsTaxInclusive:      l.IsTaxInclusive,
			IsTaxExemptOverride: l.IsTaxExemptOverride,
		}
	}

	table, err := uc.tax.Table(ctx, doc.TenantID, doc.TaxCodes())
	if err != nil {
		return err
	}
	return doc.Recompute(table)
}

func (uc *DocumentUseCase) recordError(err error) {
	if uc.metrics == nil {
		return
	}
	uc.metrics.LedgerErrors.WithLabelValues(ErrorType(err)).Inc()
}

func documentMemo(doc *domain.Document) string {
	label := strings.ReplaceAll(string(doc.Kind), "_", " ")
	if doc.CounterpartyID == "" {
		return fmt.Sprintf("%s %s %s", doc.Direction, label, doc.Number)
	}
	return fmt.Sprintf("%s %s %s (%s)", doc.Direction, label, doc.Number, doc.CounterpartyID)
}

func toPostLines(lines []domain.JournalLine) []PostLineInput {
	out := make([]PostLineInput, len(lines))
	for i, l := range lines {
		out[i] = PostLineInput{AccountID: l.AccountID, Debit: l.Debit, Credit: l.Credit, Description: l.Description}
	}
	return out
}
