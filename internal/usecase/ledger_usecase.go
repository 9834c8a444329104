package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/taxledger/internal/domain"
	"github.com/iho/taxledger/internal/infrastructure/metrics"
)

// LedgerUseCase posts and reverses journal entries.
type LedgerUseCase struct {
	txManager   TransactionManager
	accountRepo AccountRepository
	journalRepo JournalRepository
	periodRepo  PeriodRepository
	sequences   *SequenceGenerator
	idGen       IDGenerator
	recorder    recorder
	clock       Clock
	retrier     Retrier
	rates       ExchangeRateProvider
	metrics     *metrics.Metrics
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	journalRepo JournalRepository,
	periodRepo PeriodRepository,
	sequences *SequenceGenerator,
	outboxRepo OutboxRepository,
	auditRepo AuditRepository,
	idGen IDGenerator,
) *LedgerUseCase {
	return &LedgerUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		journalRepo: journalRepo,
		periodRepo:  periodRepo,
		sequences:   sequences,
		idGen:       idGen,
		recorder:    recorder{outboxRepo: outboxRepo, auditRepo: auditRepo, idGen: idGen},
		clock:       SystemClock(),
		retrier:     directRetrier{},
	}
}

// WithRetrier wraps whole transactions in r.
func (uc *LedgerUseCase) WithRetrier(r Retrier) *LedgerUseCase {
	uc.retrier = r
	return uc
}

// WithClock overrides the clock.
func (uc *LedgerUseCase) WithClock(c Clock) *LedgerUseCase {
	uc.clock = c
	return uc
}

// WithMetrics enables ledger metrics.
func (uc *LedgerUseCase) WithMetrics(m *metrics.Metrics) *LedgerUseCase {
	uc.metrics = m
	return uc
}

// WithExchangeRates sets the provider consulted for foreign-currency entries.
func (uc *LedgerUseCase) WithExchangeRates(p ExchangeRateProvider) *LedgerUseCase {
	uc.rates = p
	return uc
}

// PostLineInput is one requested posting line.
type PostLineInput struct {
	AccountID   string
	Debit       domain.Money
	Credit      domain.Money
	Description string
}

// PostEntryInput represents input for posting a journal entry.
type PostEntryInput struct {
	TenantID  string
	ActorID   string
	EntryDate time.Time
	Currency  string
	Memo      string
	Source    *domain.SourceRef
	Lines     []PostLineInput
}

// ReverseEntryInput represents input for reversing a journal entry.
type ReverseEntryInput struct {
	TenantID string
	ActorID  string
	EntryID  string
	Reason   string
	// EntryDate defaults to today, so reversals of entries in closed
	// periods land in the current period.
	EntryDate *time.Time
}

// PostEntry posts a balanced journal entry in its own transaction.
func (uc *LedgerUseCase) PostEntry(ctx context.Context, input PostEntryInput) (*domain.JournalEntry, error) {
	start := time.Now()

	var entry *domain.JournalEntry
	err := uc.retrier.Retry(ctx, func() error {
		txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
		defer cancel()

		tx, err := uc.txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		entry, err = uc.PostTx(txCtx, tx, input)
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
		uc.metrics.JournalEntriesPosted.Inc()
		uc.metrics.PostDuration.Observe(time.Since(start).Seconds())
	}

	return entry, nil
}

// PostTx posts a journal entry inside tx. The caller commits.
func (uc *LedgerUseCase) PostTx(ctx context.Context, tx Transaction, input PostEntryInput) (*domain.JournalEntry, error) {
	return uc.post(ctx, tx, input, nil)
}

func (uc *LedgerUseCase) post(ctx context.Context, tx Transaction, input PostEntryInput, reversalOf *string) (*domain.JournalEntry, error) {
	if err := domain.ValidateTenantID(input.TenantID); err != nil {
		return nil, err
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if err := domain.ValidateCurrency(currency); err != nil {
		return nil, err
	}

	lines := make([]domain.JournalLine, len(input.Lines))
	for i, l := range input.Lines {
		lines[i] = domain.JournalLine{
			LineNumber:  i + 1,
			AccountID:   l.AccountID,
			Debit:       l.Debit,
			Credit:      l.Credit,
			Description: l.Description,
		}
	}

	// 1. Balance check before touching the store
	if err := domain.ValidateJournalLines(lines); err != nil {
		return nil, err
	}

	now := uc.clock.Now()
	entryDate := input.EntryDate
	if entryDate.IsZero() {
		entryDate = now
	}
	entryDate = domain.DateOnly(entryDate)

	// 2. Re-read accounts under a shared lock
	if err := uc.validateAccounts(ctx, tx, input.TenantID, domain.AccountIDs(lines)); err != nil {
		return nil, err
	}

	// 3. Period must be open at commit time
	if err := uc.checkPeriod(ctx, tx, input.TenantID, entryDate); err != nil {
		return nil, err
	}

	rate, err := uc.exchangeRate(ctx, input.TenantID, currency, entryDate)
	if err != nil {
		return nil, err
	}

	// 4. Number as late as possible, the counter row stays locked until commit
	number, err := uc.sequences.Next(ctx, tx, input.TenantID, domain.SequenceJournalEntry)
	if err != nil {
		return nil, err
	}

	entry := &domain.JournalEntry{
		ID:           uc.idGen.Generate(),
		TenantID:     input.TenantID,
		EntryNumber:  number,
		EntryDate:    entryDate,
		Currency:     currency,
		ExchangeRate: rate,
		Memo:         input.Memo,
		Source:       input.Source,
		ReversalOf:   reversalOf,
		CreatedBy:    actorOrSystem(input.ActorID),
		CreatedAt:    now,
	}
	for i := range lines {
		lines[i].EntryID = entry.ID
	}
	entry.Lines = lines

	if err := uc.journalRepo.Create(ctx, tx, entry); err != nil {
		return nil, err
	}

	debits, _ := entry.Totals()
	posted := domain.JournalEntryPostedEvent{
		EntryID:     entry.ID,
		EntryNumber: entry.EntryNumber,
		EntryDate:   entry.EntryDate.Format(time.DateOnly),
		Total:       debits.String(),
	}
	if entry.Source != nil {
		posted.SourceKind, posted.SourceID = entry.Source.Kind, entry.Source.ID
	}
	if err := uc.recorder.event(ctx, tx, entry.TenantID, domain.AggregateTypeJournalEntry, entry.ID,
		domain.EventTypeJournalEntryPosted, posted, now); err != nil {
		return nil, err
	}
	if err := uc.recorder.audit(ctx, tx, entry.TenantID, input.ActorID, domain.AuditActionJournalPost,
		domain.AggregateTypeJournalEntry, entry.ID, nil, entry, now); err != nil {
		return nil, err
	}

	return entry, nil
}

// ReverseEntry reverses a posted entry in its own transaction.
func (uc *LedgerUseCase) ReverseEntry(ctx context.Context, input ReverseEntryInput) (*domain.JournalEntry, error) {
	var reversal *domain.JournalEntry
	err := uc.retrier.Retry(ctx, func() error {
		txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
		defer cancel()

		tx, err := uc.txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		reversal, err = uc.ReverseTx(txCtx, tx, input)
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
		uc.metrics.JournalEntriesReversed.Inc()
	}

	return reversal, nil
}

// ReverseTx posts the mirror image of an entry inside tx and stamps the
// original as reversed. The original's lines are never touched.
func (uc *LedgerUseCase) ReverseTx(ctx context.Context, tx Transaction, input ReverseEntryInput) (*domain.JournalEntry, error) {
	if err := domain.ValidateTenantID(input.TenantID); err != nil {
		return nil, err
	}
	if err := domain.ValidateReason(input.Reason, domain.ErrReversalReasonNeeded); err != nil {
		return nil, err
	}

	original, err := uc.journalRepo.GetByIDForUpdate(ctx, tx, input.TenantID, input.EntryID)
	if err != nil {
		return nil, err
	}

	if original.IsReversed {
		reversedBy := ""
		if original.ReversedByEntryID != nil {
			reversedBy = *original.ReversedByEntryID
		}
		return nil, &domain.AlreadyReversedError{EntryID: original.ID, ReversedBy: reversedBy}
	}

	entryDate := uc.clock.Now()
	if input.EntryDate != nil {
		entryDate = *input.EntryDate
	}

	swapped := original.ReversalLines()
	lines := make([]PostLineInput, len(swapped))
	for i, l := range swapped {
		lines[i] = PostLineInput{AccountID: l.AccountID, Debit: l.Debit, Credit: l.Credit, Description: l.Description}
	}

	reversalOf := original.ID
	reversal, err := uc.post(ctx, tx, PostEntryInput{
		TenantID:  input.TenantID,
		ActorID:   input.ActorID,
		EntryDate: entryDate,
		Currency:  original.Currency,
		Memo:      fmt.Sprintf("Reversal of entry %d: %s", original.EntryNumber, strings.TrimSpace(input.Reason)),
		Source:    original.Source,
		Lines:     lines,
	}, &reversalOf)
	if err != nil {
		return nil, err
	}

	now := uc.clock.Now()
	if err := uc.journalRepo.MarkReversed(ctx, tx, input.TenantID, original.ID, reversal.ID, now); err != nil {
		return nil, err
	}

	if err := uc.recorder.event(ctx, tx, input.TenantID, domain.AggregateTypeJournalEntry, original.ID,
		domain.EventTypeJournalEntryReversed, domain.JournalEntryReversedEvent{
			OriginalEntryID: original.ID,
			ReversalEntryID: reversal.ID,
			Reason:          input.Reason,
		}, now); err != nil {
		return nil, err
	}
	if err := uc.recorder.audit(ctx, tx, input.TenantID, input.ActorID, domain.AuditActionJournalReverse,
		domain.AggregateTypeJournalEntry, original.ID, original, map[string]any{
			"reversed_by_entry_id": reversal.ID,
			"reason":               input.Reason,
		}, now); err != nil {
		return nil, err
	}

	return reversal, nil
}

// GetEntry returns one entry of the tenant.
func (uc *LedgerUseCase) GetEntry(ctx context.Context, tenantID, id string) (*domain.JournalEntry, error) {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}
	return uc.journalRepo.GetByID(ctx, tenantID, id)
}

// ListEntriesInput represents input for listing journal entries.
type ListEntriesInput struct {
	TenantID string
	Limit    int
	Offset   int
}

// ListEntries lists entries, newest first.
func (uc *LedgerUseCase) ListEntries(ctx context.Context, input ListEntriesInput) ([]*domain.JournalEntry, error) {
	if err := domain.ValidateTenantID(input.TenantID); err != nil {
		return nil, err
	}
	limit, offset, _ := domain.ValidatePagination(input.Limit, input.Offset)
	return uc.journalRepo.List(ctx, input.TenantID, limit, offset)
}

// ListEntriesBySource returns the entries produced for a source, oldest first.
func (uc *LedgerUseCase) ListEntriesBySource(ctx context.Context, tenantID string, source domain.SourceRef) ([]*domain.JournalEntry, error) {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}
	return uc.journalRepo.ListBySource(ctx, tenantID, source)
}

func (uc *LedgerUseCase) validateAccounts(ctx context.Context, tx Transaction, tenantID string, ids []string) error {
	accounts, err := uc.accountRepo.GetByIDsForShare(ctx, tx, tenantID, ids)
	if err != nil {
		return err
	}

	byID := make(map[string]*domain.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}

	for _, id := range ids {
		account, ok := byID[id]
		if !ok || account.TenantID != tenantID {
			return &domain.AccountError{AccountID: id, Err: domain.ErrAccountNotFound}
		}
		if err := account.ValidatePostable(); err != nil {
			return err
		}
	}

	return nil
}

func (uc *LedgerUseCase) checkPeriod(ctx context.Context, tx Transaction, tenantID string, date time.Time) error {
	period, err := uc.periodRepo.FindByDateForShare(ctx, tx, tenantID, date)
	if errors.Is(err, domain.ErrPeriodNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return period.CheckPostable(date)
}

func (uc *LedgerUseCase) exchangeRate(ctx context.Context, tenantID, currency string, on time.Time) (decimal.Decimal, error) {
	if uc.rates == nil {
		return decimal.NewFromInt(1), nil
	}
	return uc.rates.Rate(ctx, tenantID, currency, on)
}

func (uc *LedgerUseCase) recordError(err error) {
	if uc.metrics == nil {
		return
	}
	uc.metrics.LedgerErrors.WithLabelValues(ErrorType(err)).Inc()
}

// ErrorType returns a short label for metrics and logs.
func ErrorType(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnbalancedEntry):
		return "unbalanced"
	case errors.Is(err, domain.ErrAlreadyReversed):
		return "already_reversed"
	case errors.Is(err, domain.ErrClosedPeriod):
		return "closed_period"
	case errors.Is(err, domain.ErrSequenceConflict):
		return "sequence_conflict"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, domain.ErrUnknownTaxRate):
		return "unknown_tax_rate"
	case errors.Is(err, domain.ErrPrecision):
		return "precision"
	case errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrHeaderAccount),
		errors.Is(err, domain.ErrAccountInactive):
		return "account"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	default:
		return "other"
	}
}
