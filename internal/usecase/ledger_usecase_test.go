package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/taxledger/internal/domain"
	"github.com/iho/taxledger/internal/usecase"
	"github.com/iho/taxledger/internal/usecase/mocks"
)

func postInput(f *fixture, debit, credit string) usecase.PostEntryInput {
	return usecase.PostEntryInput{
		TenantID:  tenant,
		ActorID:   "alice",
		EntryDate: day(2026, 3, 1),
		Currency:  "SGD",
		Memo:      "manual",
		Lines: []usecase.PostLineInput{
			{AccountID: f.account("1100"), Debit: money(debit)},
			{AccountID: f.account("4000"), Credit: money(credit)},
		},
	}
}

func TestLedgerUseCase_PostEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.ledger.PostEntry(ctx, postInput(f, "100", "100"))
	require.NoError(t, err)

	assert.Equal(t, int64(1), entry.EntryNumber)
	assert.Equal(t, day(2026, 3, 1), entry.EntryDate)
	assert.Equal(t, "1", entry.ExchangeRate.String())
	assert.Equal(t, "alice", entry.CreatedBy)
	require.Len(t, entry.Lines, 2)
	assert.Equal(t, 1, entry.Lines[0].LineNumber)
	assert.Equal(t, entry.ID, entry.Lines[1].EntryID)

	stored, err := f.ledger.GetEntry(ctx, tenant, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, viewLines(entry.Lines), viewLines(stored.Lines))

	events, err := f.store.Outbox().GetByAggregate(ctx, tenant, domain.AggregateTypeJournalEntry, entry.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventTypeJournalEntryPosted, events[0].EventType)

	require.NoError(t, f.recon.CheckLedgerConsistency(ctx, tenant))
}

func TestLedgerUseCase_PostEntryRejections(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(t *testing.T, f *fixture) usecase.PostEntryInput
		wantErr error
	}{
		{
			name: "unbalanced",
			prepare: func(t *testing.T, f *fixture) usecase.PostEntryInput {
				return postInput(f, "100", "99.99")
			},
			wantErr: domain.ErrUnbalancedEntry,
		},
		{
			name: "single line",
			prepare: func(t *testing.T, f *fixture) usecase.PostEntryInput {
				in := postInput(f, "100", "100")
				in.Lines = in.Lines[:1]
				return in
			},
			wantErr: domain.ErrTooFewJournalLines,
		},
		{
			name: "line with both sides",
			prepare: func(t *testing.T, f *fixture) usecase.PostEntryInput {
				in := postInput(f, "100", "100")
				in.Lines[0].Credit = money("1")
				return in
			},
			wantErr: domain.ErrInvalidJournalLine,
		},
		{
			name: "header account",
			prepare: func(t *testing.T, f *fixture) usecase.PostEntryInput {
				in := postInput(f, "100", "100")
				in.Lines[0].AccountID = f.account("1000")
				return in
			},
			wantErr: domain.ErrHeaderAccount,
		},
		{
			name: "inactive account",
			prepare: func(t *testing.T, f *fixture) usecase.PostEntryInput {
				_, err := f.accounts.DeactivateAccount(context.Background(), tenant, "alice", f.account("4000"))
				require.NoError(t, err)
				return postInput(f, "100", "100")
			},
			wantErr: domain.ErrAccountInactive,
		},
		{
			name: "account of another tenant",
			prepare: func(t *testing.T, f *fixture) usecase.PostEntryInput {
				f.seed(t, "globex")
				in := postInput(f, "100", "100")
				in.Lines[1].AccountID = f.acct["globex"]["4000"]
				return in
			},
			wantErr: domain.ErrAccountNotFound,
		},
		{
			name: "closed period",
			prepare: func(t *testing.T, f *fixture) usecase.PostEntryInput {
				ctx := context.Background()
				p, err := f.periods.CreatePeriod(ctx, usecase.CreatePeriodInput{
					TenantID: tenant, StartDate: day(2026, 3, 1), EndDate: day(2026, 3, 31),
				})
				require.NoError(t, err)
				_, err = f.periods.ClosePeriod(ctx, tenant, "alice", p.ID)
				require.NoError(t, err)
				return postInput(f, "100", "100")
			},
			wantErr: domain.ErrClosedPeriod,
		},
		{
			name: "invalid currency",
			prepare: func(t *testing.T, f *fixture) usecase.PostEntryInput {
				in := postInput(f, "100", "100")
				in.Currency = "XXX"
				return in
			},
			wantErr: domain.ErrInvalidCurrency,
		},
		{
			name: "missing tenant",
			prepare: func(t *testing.T, f *fixture) usecase.PostEntryInput {
				in := postInput(f, "100", "100")
				in.TenantID = ""
				return in
			},
			wantErr: domain.ErrTenantRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			in := tt.prepare(t, f)

			_, err := f.ledger.PostEntry(context.Background(), in)
			require.ErrorIs(t, err, tt.wantErr)

			assert.Zero(t, f.entryCount(t))
			assert.Zero(t, f.currentNumber(t, domain.SequenceJournalEntry))
		})
	}
}

func TestLedgerUseCase_ClosedPeriodError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.periods.CreatePeriod(ctx, usecase.CreatePeriodInput{
		TenantID: tenant, StartDate: day(2026, 3, 1), EndDate: day(2026, 3, 31),
	})
	require.NoError(t, err)
	_, err = f.periods.LockPeriod(ctx, tenant, "alice", p.ID)
	require.NoError(t, err)

	_, err = f.ledger.PostEntry(ctx, postInput(f, "100", "100"))
	var closed *domain.ClosedPeriodError
	require.True(t, errors.As(err, &closed))
	assert.Equal(t, p.ID, closed.PeriodID)
	assert.Equal(t, domain.PeriodStatusLocked, closed.Status)

	// April has no period and stays open.
	in := postInput(f, "100", "100")
	in.EntryDate = day(2026, 4, 1)
	_, err = f.ledger.PostEntry(ctx, in)
	require.NoError(t, err)
}

func TestLedgerUseCase_NumbersAreGapless(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.ledger.PostEntry(ctx, postInput(f, "10", "10"))
	require.NoError(t, err)

	_, err = f.ledger.PostEntry(ctx, postInput(f, "10", "9"))
	require.Error(t, err)

	in := postInput(f, "10", "10")
	in.Lines[0].AccountID = f.account("1000")
	_, err = f.ledger.PostEntry(ctx, in)
	require.Error(t, err)

	second, err := f.ledger.PostEntry(ctx, postInput(f, "20", "20"))
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.EntryNumber)
	assert.Equal(t, int64(2), second.EntryNumber)
}

func TestLedgerUseCase_ReverseEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	original, err := f.ledger.PostEntry(ctx, postInput(f, "109", "109"))
	require.NoError(t, err)

	reversal, err := f.ledger.ReverseEntry(ctx, usecase.ReverseEntryInput{
		TenantID: tenant,
		ActorID:  "alice",
		EntryID:  original.ID,
		Reason:   "posted twice",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(2), reversal.EntryNumber)
	require.NotNil(t, reversal.ReversalOf)
	assert.Equal(t, original.ID, *reversal.ReversalOf)
	assert.Equal(t, domain.DateOnly(testNow), reversal.EntryDate)
	assert.Equal(t, []lineView{
		{Account: f.account("1100"), Debit: "0.00", Credit: "109.00"},
		{Account: f.account("4000"), Debit: "109.00", Credit: "0.00"},
	}, viewLines(reversal.Lines))
	assert.Contains(t, reversal.Memo, "posted twice")

	stored, err := f.ledger.GetEntry(ctx, tenant, original.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsReversed)
	require.NotNil(t, stored.ReversedByEntryID)
	assert.Equal(t, reversal.ID, *stored.ReversedByEntryID)
	assert.Equal(t, viewLines(original.Lines), viewLines(stored.Lines))

	_, err = f.ledger.ReverseEntry(ctx, usecase.ReverseEntryInput{
		TenantID: tenant, EntryID: original.ID, Reason: "again",
	})
	var already *domain.AlreadyReversedError
	require.True(t, errors.As(err, &already))
	assert.Equal(t, reversal.ID, already.ReversedBy)

	totals, err := f.store.Ledger().AccountTotals(ctx, tenant)
	require.NoError(t, err)
	for _, total := range totals {
		assert.True(t, total.Debits.Equal(total.Credits), "account %s nets to zero", total.Code)
	}
}

func TestLedgerUseCase_ReverseEntryValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	original, err := f.ledger.PostEntry(ctx, postInput(f, "5", "5"))
	require.NoError(t, err)

	_, err = f.ledger.ReverseEntry(ctx, usecase.ReverseEntryInput{TenantID: tenant, EntryID: original.ID, Reason: "  "})
	assert.ErrorIs(t, err, domain.ErrReversalReasonNeeded)

	_, err = f.ledger.ReverseEntry(ctx, usecase.ReverseEntryInput{TenantID: tenant, EntryID: "missing", Reason: "x"})
	assert.ErrorIs(t, err, domain.ErrEntryNotFound)

	_, err = f.ledger.ReverseEntry(ctx, usecase.ReverseEntryInput{TenantID: "globex", EntryID: original.ID, Reason: "x"})
	assert.ErrorIs(t, err, domain.ErrEntryNotFound)

	assert.Equal(t, int64(1), f.currentNumber(t, domain.SequenceJournalEntry))
}

func TestLedgerUseCase_ExchangeRateSnapshot(t *testing.T) {
	f := newFixture(t)
	f.ledger.WithExchangeRates(mocks.StaticExchangeRates{"USD": dec("1.3456"), "SGD": dec("1")})

	in := postInput(f, "10", "10")
	in.Currency = "usd"
	entry, err := f.ledger.PostEntry(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, "USD", entry.Currency)
	assert.Equal(t, "1.3456", entry.ExchangeRate.String())

	in.Currency = "EUR"
	_, err = f.ledger.PostEntry(context.Background(), in)
	require.Error(t, err)
	assert.Equal(t, int64(1), f.currentNumber(t, domain.SequenceJournalEntry))
}

func TestLedgerUseCase_ListEntriesBySource(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := postInput(f, "10", "10")
	in.Source = &domain.SourceRef{Kind: domain.SourceKindManual, ID: "batch-1"}
	first, err := f.ledger.PostEntry(ctx, in)
	require.NoError(t, err)
	_, err = f.ledger.PostEntry(ctx, postInput(f, "1", "1"))
	require.NoError(t, err)

	entries, err := f.ledger.ListEntriesBySource(ctx, tenant, *in.Source)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, first.ID, entries[0].ID)

	all, err := f.ledger.ListEntries(ctx, usecase.ListEntriesInput{TenantID: tenant})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, int64(2), all[0].EntryNumber)
}

func TestErrorType(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&domain.UnbalancedEntryError{}, "unbalanced"},
		{&domain.AlreadyReversedError{}, "already_reversed"},
		{&domain.ClosedPeriodError{}, "closed_period"},
		{&domain.SequenceConflictError{}, "sequence_conflict"},
		{&domain.InvalidTransitionError{}, "invalid_transition"},
		{&domain.UnknownTaxRateError{}, "unknown_tax_rate"},
		{&domain.AccountError{Err: domain.ErrHeaderAccount}, "account"},
		{context.DeadlineExceeded, "timeout"},
		{errors.New("boom"), "other"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, usecase.ErrorType(tt.err))
		})
	}
}
