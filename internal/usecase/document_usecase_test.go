package usecase_test

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/iho/taxledger/internal/adapter/repository/memory"
	"github.com/iho/taxledger/internal/domain"
	"github.com/iho/taxledger/internal/infrastructure/metrics"
	"github.com/iho/taxledger/internal/usecase"
)

func approve(t *testing.T, f *fixture, id string) *usecase.DocumentResult {
	t.Helper()
	res, err := f.documents.Approve(context.Background(), usecase.ApproveInput{TenantID: tenant, ActorID: "alice", DocumentID: id})
	require.NoError(t, err)
	return res
}

func TestDocumentUseCase_ApprovePostsEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	draft := f.salesInvoice(t, "100")
	assert.Equal(t, domain.DocumentStatusDraft, draft.Status)
	assert.Empty(t, draft.Number)
	assert.Equal(t, "109.00", draft.Totals.GrossTotal.Display())

	res := approve(t, f, draft.ID)
	doc := res.Document

	assert.Equal(t, domain.DocumentStatusApproved, doc.Status)
	assert.Equal(t, "INV-000001", doc.Number)
	assert.Equal(t, int64(1), doc.SequenceNumber)
	require.NotNil(t, doc.ApprovedAt)
	assert.Equal(t, testNow, *doc.ApprovedAt)

	require.NotNil(t, res.Entry)
	require.NotNil(t, doc.LinkedJournalEntryID)
	assert.Equal(t, res.Entry.ID, *doc.LinkedJournalEntryID)
	assert.Equal(t, &domain.SourceRef{Kind: domain.SourceKindDocument, ID: doc.ID}, res.Entry.Source)
	assert.Equal(t, day(2026, 3, 10), res.Entry.EntryDate)
	assert.Equal(t, []lineView{
		{Account: f.account("1100"), Debit: "109.00", Credit: "0.00"},
		{Account: f.account("4000"), Debit: "0.00", Credit: "100.00"},
		{Account: f.account("2200"), Debit: "0.00", Credit: "9.00"},
	}, viewLines(res.Entry.Lines))

	stored, err := f.documents.GetDocument(ctx, tenant, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusApproved, stored.Status)

	events, err := f.store.Outbox().GetByAggregate(ctx, tenant, domain.AggregateTypeDocument, doc.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventTypeDocumentApproved, events[0].EventType)

	logs, err := f.store.Audit().List(ctx, domain.AuditFilter{
		TenantID:   tenant,
		ResourceID: doc.ID,
		Action:     string(domain.AuditActionDocumentApprove),
	})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "alice", logs[0].ActorID)

	require.NoError(t, f.recon.CheckLedgerConsistency(ctx, tenant))
}

func TestDocumentUseCase_VoidReversesEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	approved := approve(t, f, f.salesInvoice(t, "100").ID)

	res, err := f.documents.Void(ctx, usecase.VoidInput{
		TenantID:   tenant,
		ActorID:    "bob",
		DocumentID: approved.Document.ID,
		Reason:     "wrong customer",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.DocumentStatusVoid, res.Document.Status)
	require.NotNil(t, res.Document.VoidReason)
	assert.Equal(t, "wrong customer", *res.Document.VoidReason)
	assert.Equal(t, "INV-000001", res.Document.Number)

	require.NotNil(t, res.Entry)
	assert.Equal(t, []lineView{
		{Account: f.account("1100"), Debit: "0.00", Credit: "109.00"},
		{Account: f.account("4000"), Debit: "100.00", Credit: "0.00"},
		{Account: f.account("2200"), Debit: "9.00", Credit: "0.00"},
	}, viewLines(res.Entry.Lines))

	original, err := f.ledger.GetEntry(ctx, tenant, approved.Entry.ID)
	require.NoError(t, err)
	assert.True(t, original.IsReversed)
	require.NotNil(t, original.ReversedByEntryID)
	assert.Equal(t, res.Entry.ID, *original.ReversedByEntryID)

	bySource, err := f.ledger.ListEntriesBySource(ctx, tenant, domain.SourceRef{Kind: domain.SourceKindDocument, ID: approved.Document.ID})
	require.NoError(t, err)
	assert.Len(t, bySource, 2)

	_, err = f.documents.Void(ctx, usecase.VoidInput{TenantID: tenant, DocumentID: approved.Document.ID, Reason: "again"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestDocumentUseCase_TransitionErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	draft := f.salesInvoice(t, "100")

	_, err := f.documents.Void(ctx, usecase.VoidInput{TenantID: tenant, DocumentID: draft.ID, Reason: "nope"})
	var invalid *domain.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, domain.DocumentStatusDraft, invalid.From)
	assert.Equal(t, domain.DocumentStatusVoid, invalid.To)

	_, err = f.documents.Void(ctx, usecase.VoidInput{TenantID: tenant, DocumentID: draft.ID})
	assert.ErrorIs(t, err, domain.ErrVoidReasonRequired)

	_, err = f.documents.MarkSent(ctx, tenant, "alice", draft.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	approve(t, f, draft.ID)

	_, err = f.documents.Approve(ctx, usecase.ApproveInput{TenantID: tenant, DocumentID: draft.ID})
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, domain.DocumentStatusApproved, invalid.From)

	assert.Equal(t, int64(1), f.currentNumber(t, domain.DocumentSequenceKind(domain.DirectionSales, domain.DocumentKindInvoice)))
	assert.Equal(t, 1, f.entryCount(t))

	sent, err := f.documents.MarkSent(ctx, tenant, "alice", draft.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusSent, sent.Status)
}

func TestDocumentUseCase_Numbering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var numbers []string
	for i := 0; i < 3; i++ {
		numbers = append(numbers, approve(t, f, f.salesInvoice(t, "10").ID).Document.Number)
	}
	assert.Equal(t, []string{"INV-000001", "INV-000002", "INV-000003"}, numbers)

	newDoc := func(kind domain.DocumentKind, direction domain.DocumentDirection, account string) string {
		doc, err := f.documents.CreateDraft(ctx, usecase.CreateDraftInput{
			TenantID:  tenant,
			Kind:      kind,
			Direction: direction,
			Date:      day(2026, 3, 12),
			Lines: []usecase.DocumentLineInput{{
				AccountID: f.account(account),
				Quantity:  decimal.NewFromInt(1),
				UnitPrice: money("10"),
				TaxCode:   "SR",
			}},
		})
		require.NoError(t, err)
		return approve(t, f, doc.ID).Document.Number
	}

	assert.Equal(t, "CN-000001", newDoc(domain.DocumentKindCreditNote, domain.DirectionSales, "4000"))
	assert.Equal(t, "DN-000001", newDoc(domain.DocumentKindDebitNote, domain.DirectionSales, "4000"))
	assert.Equal(t, "QT-000001", newDoc(domain.DocumentKindQuote, domain.DirectionSales, "4000"))
	assert.Equal(t, "BILL-000001", newDoc(domain.DocumentKindInvoice, domain.DirectionPurchase, "5000"))
	assert.Equal(t, "INV-000004", newDoc(domain.DocumentKindInvoice, domain.DirectionSales, "4000"))

	// The quote posts nothing: 3 invoices, CN, DN, bill and the last invoice.
	entries, err := f.ledger.ListEntries(ctx, usecase.ListEntriesInput{TenantID: tenant, Limit: 100})
	require.NoError(t, err)
	require.Len(t, entries, 7)
	for i, e := range entries {
		assert.Equal(t, int64(7-i), e.EntryNumber)
	}
}

func TestDocumentUseCase_NumberWidth(t *testing.T) {
	f := newFixture(t)
	f.documents.WithNumberWidth(4)

	res := approve(t, f, f.salesInvoice(t, "10").ID)
	assert.Equal(t, "INV-0001", res.Document.Number)
}

func TestDocumentUseCase_Postings(t *testing.T) {
	tests := []struct {
		name      string
		kind      domain.DocumentKind
		direction domain.DocumentDirection
		lines     func(f *fixture) []usecase.DocumentLineInput
		want      func(f *fixture) []lineView
	}{
		{
			name:      "sales credit note mirrors the invoice",
			kind:      domain.DocumentKindCreditNote,
			direction: domain.DirectionSales,
			lines: func(f *fixture) []usecase.DocumentLineInput {
				return []usecase.DocumentLineInput{{AccountID: f.account("4000"), Quantity: decimal.NewFromInt(1), UnitPrice: money("100"), TaxCode: "SR"}}
			},
			want: func(f *fixture) []lineView {
				return []lineView{
					{Account: f.account("1100"), Debit: "0.00", Credit: "109.00"},
					{Account: f.account("4000"), Debit: "100.00", Credit: "0.00"},
					{Account: f.account("2200"), Debit: "9.00", Credit: "0.00"},
				}
			},
		},
		{
			name:      "purchase with claimable tax",
			kind:      domain.DocumentKindInvoice,
			direction: domain.DirectionPurchase,
			lines: func(f *fixture) []usecase.DocumentLineInput {
				return []usecase.DocumentLineInput{{AccountID: f.account("5000"), Quantity: decimal.NewFromInt(1), UnitPrice: money("100"), TaxCode: "SR"}}
			},
			want: func(f *fixture) []lineView {
				return []lineView{
					{Account: f.account("5000"), Debit: "100.00", Credit: "0.00"},
					{Account: f.account("1300"), Debit: "9.00", Credit: "0.00"},
					{Account: f.account("2100"), Debit: "0.00", Credit: "109.00"},
				}
			},
		},
		{
			name:      "purchase with non-claimable tax folds tax into cost",
			kind:      domain.DocumentKindInvoice,
			direction: domain.DirectionPurchase,
			lines: func(f *fixture) []usecase.DocumentLineInput {
				return []usecase.DocumentLineInput{{AccountID: f.account("5000"), Quantity: decimal.NewFromInt(1), UnitPrice: money("100"), TaxCode: "BL"}}
			},
			want: func(f *fixture) []lineView {
				return []lineView{
					{Account: f.account("5000"), Debit: "109.00", Credit: "0.00"},
					{Account: f.account("2100"), Debit: "0.00", Credit: "109.00"},
				}
			},
		},
		{
			name:      "exempt override goes to the deposit account",
			kind:      domain.DocumentKindInvoice,
			direction: domain.DirectionSales,
			lines: func(f *fixture) []usecase.DocumentLineInput {
				return []usecase.DocumentLineInput{
					{AccountID: f.account("4000"), Quantity: decimal.NewFromInt(1), UnitPrice: money("100"), TaxCode: "SR"},
					{AccountID: f.account("4000"), Quantity: decimal.NewFromInt(1), UnitPrice: money("2"), TaxCode: "SR", IsTaxExemptOverride: true},
				}
			},
			want: func(f *fixture) []lineView {
				return []lineView{
					{Account: f.account("1100"), Debit: "111.00", Credit: "0.00"},
					{Account: f.account("4000"), Debit: "0.00", Credit: "100.00"},
					{Account: f.account("2200"), Debit: "0.00", Credit: "9.00"},
					{Account: f.account("2300"), Debit: "0.00", Credit: "2.00"},
				}
			},
		},
		{
			name:      "zero-rated line has no tax line",
			kind:      domain.DocumentKindInvoice,
			direction: domain.DirectionSales,
			lines: func(f *fixture) []usecase.DocumentLineInput {
				return []usecase.DocumentLineInput{{AccountID: f.account("4000"), Quantity: decimal.NewFromInt(2), UnitPrice: money("50"), TaxCode: "ZR"}}
			},
			want: func(f *fixture) []lineView {
				return []lineView{
					{Account: f.account("1100"), Debit: "100.00", Credit: "0.00"},
					{Account: f.account("4000"), Debit: "0.00", Credit: "100.00"},
				}
			},
		},
		{
			name:      "inclusive price",
			kind:      domain.DocumentKindInvoice,
			direction: domain.DirectionSales,
			lines: func(f *fixture) []usecase.DocumentLineInput {
				return []usecase.DocumentLineInput{{AccountID: f.account("4000"), Quantity: decimal.NewFromInt(1), UnitPrice: money("109"), TaxCode: "SR", IsTaxInclusive: true}}
			},
			want: func(f *fixture) []lineView {
				return []lineView{
					{Account: f.account("1100"), Debit: "109.00", Credit: "0.00"},
					{Account: f.account("4000"), Debit: "0.00", Credit: "100.00"},
					{Account: f.account("2200"), Debit: "0.00", Credit: "9.00"},
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			draft, err := f.documents.CreateDraft(context.Background(), usecase.CreateDraftInput{
				TenantID:  tenant,
				Kind:      tt.kind,
				Direction: tt.direction,
				Date:      day(2026, 3, 1),
				Lines:     tt.lines(f),
			})
			require.NoError(t, err)

			res := approve(t, f, draft.ID)
			require.NotNil(t, res.Entry)
			assert.Equal(t, tt.want(f), viewLines(res.Entry.Lines))
			require.NoError(t, f.recon.CheckLedgerConsistency(context.Background(), tenant))
		})
	}
}

func TestDocumentUseCase_QuoteAndZeroTotalPostNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	quote, err := f.documents.CreateDraft(ctx, usecase.CreateDraftInput{
		TenantID:  tenant,
		Kind:      domain.DocumentKindQuote,
		Direction: domain.DirectionSales,
		Lines: []usecase.DocumentLineInput{{
			AccountID: f.account("4000"), Quantity: decimal.NewFromInt(1), UnitPrice: money("100"), TaxCode: "SR",
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DateOnly(testNow), quote.Date)
	assert.Equal(t, "SGD", quote.Currency)

	res := approve(t, f, quote.ID)
	assert.Nil(t, res.Entry)
	assert.Nil(t, res.Document.LinkedJournalEntryID)
	assert.Equal(t, "QT-000001", res.Document.Number)

	_, err = f.documents.RecordPayment(ctx, usecase.RecordPaymentInput{TenantID: tenant, DocumentID: quote.ID, Amount: money("1")})
	assert.ErrorIs(t, err, domain.ErrInvalidDocumentKind)

	voided, err := f.documents.Void(ctx, usecase.VoidInput{TenantID: tenant, DocumentID: quote.ID, Reason: "declined"})
	require.NoError(t, err)
	assert.Nil(t, voided.Entry)

	free, err := f.documents.CreateDraft(ctx, usecase.CreateDraftInput{
		TenantID:  tenant,
		Kind:      domain.DocumentKindInvoice,
		Direction: domain.DirectionSales,
		Lines: []usecase.DocumentLineInput{{
			AccountID: f.account("4000"), Quantity: decimal.Zero, UnitPrice: money("100"), TaxCode: "SR",
		}},
	})
	require.NoError(t, err)

	res = approve(t, f, free.ID)
	assert.Nil(t, res.Entry)
	assert.Equal(t, "INV-000001", res.Document.Number)
	assert.Zero(t, f.entryCount(t))
}

// ratesAtApproval serves different tax code rows inside approval
// transactions than the cached preview sees.
type ratesAtApproval struct {
	*memory.TaxCodeRepository
	rows []domain.TaxCode
}

func (r ratesAtApproval) ListByCodesTx(context.Context, usecase.Transaction, string, []string) ([]domain.TaxCode, error) {
	return r.rows, nil
}

func (f *fixture) documentsWithRates(rows []domain.TaxCode) *usecase.DocumentUseCase {
	return usecase.NewDocumentUseCase(f.store, f.store.Documents(), ratesAtApproval{f.store.TaxCodes(), rows},
		f.store.PostingProfiles(), f.ledger, f.sequences, f.tax, f.store.Outbox(), f.store.Audit(), f.ids).
		WithClock(f.clock).WithBaseCurrency("SGD")
}

func TestDocumentUseCase_ApproveRecomputesWithCurrentRates(t *testing.T) {
	f := newFixture(t)
	draft := f.salesInvoice(t, "100")

	docs := f.documentsWithRates([]domain.TaxCode{{Code: "SR", Rate: dec("0.10"), EffectiveFrom: day(2020, 1, 1)}})
	res, err := docs.Approve(context.Background(), usecase.ApproveInput{TenantID: tenant, DocumentID: draft.ID})
	require.NoError(t, err)

	assert.Equal(t, "110.00", res.Document.Totals.GrossTotal.Display())
	assert.Equal(t, "10.00", res.Document.Lines[0].TaxAmount.Display())
	assert.Equal(t, "110.00", res.Entry.Lines[0].Debit.Display())
}

func TestDocumentUseCase_FailedApprovalReturnsNumbers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	invoices := domain.DocumentSequenceKind(domain.DirectionSales, domain.DocumentKindInvoice)

	draft := f.salesInvoice(t, "100")

	// Rate removed between preview and approval.
	docs := f.documentsWithRates(nil)
	_, err := docs.Approve(ctx, usecase.ApproveInput{TenantID: tenant, DocumentID: draft.ID})
	var unknown *domain.UnknownTaxRateError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "SR", unknown.Code)

	// Revenue account deactivated after the number was taken.
	_, err = f.accounts.DeactivateAccount(ctx, tenant, "alice", f.account("4000"))
	require.NoError(t, err)
	_, err = f.documents.Approve(ctx, usecase.ApproveInput{TenantID: tenant, DocumentID: draft.ID})
	assert.ErrorIs(t, err, domain.ErrAccountInactive)

	// Closed period.
	_, err = f.accounts.ActivateAccount(ctx, tenant, "alice", f.account("4000"))
	require.NoError(t, err)
	p, err := f.periods.CreatePeriod(ctx, usecase.CreatePeriodInput{TenantID: tenant, StartDate: day(2026, 3, 1), EndDate: day(2026, 3, 31)})
	require.NoError(t, err)
	_, err = f.periods.ClosePeriod(ctx, tenant, "alice", p.ID)
	require.NoError(t, err)
	_, err = f.documents.Approve(ctx, usecase.ApproveInput{TenantID: tenant, DocumentID: draft.ID})
	assert.ErrorIs(t, err, domain.ErrClosedPeriod)

	assert.Zero(t, f.currentNumber(t, invoices))
	assert.Zero(t, f.currentNumber(t, domain.SequenceJournalEntry))
	assert.Zero(t, f.entryCount(t))

	stored, err := f.documents.GetDocument(ctx, tenant, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusDraft, stored.Status)
	assert.Empty(t, stored.Number)

	_, err = f.periods.ReopenPeriod(ctx, tenant, "alice", p.ID)
	require.NoError(t, err)
	res := approve(t, f, draft.ID)
	assert.Equal(t, "INV-000001", res.Document.Number)
	assert.Equal(t, int64(1), res.Entry.EntryNumber)
}

func TestDocumentUseCase_ApproveRequiresProfileAndLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	empty, err := f.documents.CreateDraft(ctx, usecase.CreateDraftInput{
		TenantID: tenant, Kind: domain.DocumentKindInvoice, Direction: domain.DirectionSales,
	})
	require.NoError(t, err)
	_, err = f.documents.Approve(ctx, usecase.ApproveInput{TenantID: tenant, DocumentID: empty.ID})
	assert.ErrorIs(t, err, domain.ErrNoLines)

	// A tenant with accounts but no posting profile.
	tx, err := f.store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, f.store.Accounts().Create(ctx, tx, &domain.Account{
		ID: "g-rev", TenantID: "globex", Code: "4000", Name: "Revenue", Type: domain.AccountTypeRevenue, Depth: 1, IsActive: true,
	}))
	require.NoError(t, f.store.TaxCodes().Create(ctx, tx, &domain.TaxCode{
		ID: "g-sr", TenantID: "globex", Code: "SR", Rate: dec("0.09"), EffectiveFrom: day(2024, 1, 1),
	}))
	require.NoError(t, tx.Commit(ctx))

	draft, err := f.documents.CreateDraft(ctx, usecase.CreateDraftInput{
		TenantID: "globex", Kind: domain.DocumentKindInvoice, Direction: domain.DirectionSales,
		Lines: []usecase.DocumentLineInput{{AccountID: "g-rev", Quantity: decimal.NewFromInt(1), UnitPrice: money("10"), TaxCode: "SR"}},
	})
	require.NoError(t, err)
	_, err = f.documents.Approve(ctx, usecase.ApproveInput{TenantID: "globex", DocumentID: draft.ID})
	assert.ErrorIs(t, err, domain.ErrPostingProfileNotSet)
}

func TestDocumentUseCase_CreateDraftValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(f *fixture, in *usecase.CreateDraftInput)
		wantErr error
	}{
		{
			name:    "unknown tax code",
			mutate:  func(_ *fixture, in *usecase.CreateDraftInput) { in.Lines[0].TaxCode = "XX" },
			wantErr: domain.ErrUnknownTaxRate,
		},
		{
			name:    "no rate effective on the document date",
			mutate:  func(_ *fixture, in *usecase.CreateDraftInput) { in.Date = day(2022, 6, 1) },
			wantErr: domain.ErrUnknownTaxRate,
		},
		{
			name:    "invalid kind",
			mutate:  func(_ *fixture, in *usecase.CreateDraftInput) { in.Kind = "receipt" },
			wantErr: domain.ErrInvalidDocumentKind,
		},
		{
			name:    "invalid currency",
			mutate:  func(_ *fixture, in *usecase.CreateDraftInput) { in.Currency = "ABC" },
			wantErr: domain.ErrInvalidCurrency,
		},
		{
			name:    "line without account",
			mutate:  func(_ *fixture, in *usecase.CreateDraftInput) { in.Lines[0].AccountID = "" },
			wantErr: domain.ErrInvalidJournalLine,
		},
		{
			name:    "negative quantity",
			mutate:  func(_ *fixture, in *usecase.CreateDraftInput) { in.Lines[0].Quantity = dec("-1") },
			wantErr: domain.ErrInvalidQuantity,
		},
		{
			name:    "discount above 100",
			mutate:  func(_ *fixture, in *usecase.CreateDraftInput) { in.Lines[0].DiscountPct = dec("101") },
			wantErr: domain.ErrInvalidDiscount,
		},
		{
			name:    "missing tenant",
			mutate:  func(_ *fixture, in *usecase.CreateDraftInput) { in.TenantID = "" },
			wantErr: domain.ErrTenantRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			in := usecase.CreateDraftInput{
				TenantID:  tenant,
				Kind:      domain.DocumentKindInvoice,
				Direction: domain.DirectionSales,
				Date:      day(2026, 3, 1),
				Lines: []usecase.DocumentLineInput{{
					AccountID: f.account("4000"), Quantity: decimal.NewFromInt(1), UnitPrice: money("10"), TaxCode: "SR",
				}},
			}
			tt.mutate(f, &in)

			_, err := f.documents.CreateDraft(context.Background(), in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDocumentUseCase_HistoricalRate(t *testing.T) {
	f := newFixture(t)

	draft, err := f.documents.CreateDraft(context.Background(), usecase.CreateDraftInput{
		TenantID:  tenant,
		Kind:      domain.DocumentKindInvoice,
		Direction: domain.DirectionSales,
		Date:      day(2023, 12, 31),
		Lines: []usecase.DocumentLineInput{{
			AccountID: f.account("4000"), Quantity: decimal.NewFromInt(1), UnitPrice: money("100"), TaxCode: "sr",
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "SR", draft.Lines[0].TaxCode)
	assert.Equal(t, "8.00", draft.Totals.TaxTotal.Display())

	res := approve(t, f, draft.ID)
	assert.Equal(t, "108.00", res.Document.Totals.GrossTotal.Display())
}

func TestDocumentUseCase_UpdateAndDeleteDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	draft := f.salesInvoice(t, "100")

	due := day(2026, 4, 10)
	updated, err := f.documents.UpdateDraft(ctx, usecase.UpdateDraftInput{
		TenantID:       tenant,
		ActorID:        "alice",
		DocumentID:     draft.ID,
		CounterpartyID: "cust-2",
		Reference:      "PO-7",
		Date:           day(2026, 3, 11),
		DueDate:        &due,
		Lines: []usecase.DocumentLineInput{
			{AccountID: f.account("4000"), Quantity: decimal.NewFromInt(2), UnitPrice: money("100"), DiscountPct: dec("10"), TaxCode: "SR"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "cust-2", updated.CounterpartyID)
	assert.Equal(t, "180.00", updated.Totals.Subtotal.Display())
	assert.Equal(t, "16.20", updated.Totals.TaxTotal.Display())
	assert.Equal(t, "196.20", updated.Totals.GrossTotal.Display())

	second := f.salesInvoice(t, "5")
	require.NoError(t, f.documents.DeleteDraft(ctx, tenant, "alice", second.ID))
	_, err = f.documents.GetDocument(ctx, tenant, second.ID)
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)

	approve(t, f, draft.ID)

	_, err = f.documents.UpdateDraft(ctx, usecase.UpdateDraftInput{TenantID: tenant, DocumentID: draft.ID})
	assert.ErrorIs(t, err, domain.ErrDocumentNotEditable)
	assert.ErrorIs(t, f.documents.DeleteDraft(ctx, tenant, "alice", draft.ID), domain.ErrDocumentNotEditable)

	docs, err := f.documents.ListDocuments(ctx, tenant, usecase.DocumentFilter{Status: domain.DocumentStatusApproved})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, draft.ID, docs[0].ID)
}

func TestDocumentUseCase_RecordPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := approve(t, f, f.salesInvoice(t, "100").ID).Document.ID
	pay := func(amount string) (*domain.Document, error) {
		return f.documents.RecordPayment(ctx, usecase.RecordPaymentInput{TenantID: tenant, ActorID: "alice", DocumentID: id, Amount: money(amount)})
	}

	_, err := pay("0")
	assert.ErrorIs(t, err, domain.ErrInvalidPayment)

	doc, err := pay("50")
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusPartiallyPaid, doc.Status)
	assert.Equal(t, "59.00", doc.AmountDue().Display())

	_, err = pay("60")
	assert.ErrorIs(t, err, domain.ErrOverpayment)

	doc, err = pay("59")
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusPaid, doc.Status)
	assert.True(t, doc.AmountDue().IsZero())

	_, err = pay("1")
	assert.ErrorIs(t, err, domain.ErrOverpayment)

	events, err := f.store.Outbox().GetByAggregate(ctx, tenant, domain.AggregateTypeDocument, id)
	require.NoError(t, err)
	var paid int
	for _, e := range events {
		if e.EventType == domain.EventTypeDocumentPaid {
			paid++
		}
	}
	assert.Equal(t, 2, paid)
}

func TestDocumentUseCase_MarkOverdue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	due := day(2026, 3, 20)
	draft, err := f.documents.CreateDraft(ctx, usecase.CreateDraftInput{
		TenantID:  tenant,
		Kind:      domain.DocumentKindInvoice,
		Direction: domain.DirectionSales,
		Date:      day(2026, 3, 1),
		DueDate:   &due,
		Lines: []usecase.DocumentLineInput{{
			AccountID: f.account("4000"), Quantity: decimal.NewFromInt(1), UnitPrice: money("100"), TaxCode: "SR",
		}},
	})
	require.NoError(t, err)
	approve(t, f, draft.ID)

	// The clock is on the 15th.
	_, err = f.documents.MarkOverdue(ctx, usecase.MarkOverdueInput{TenantID: tenant, DocumentID: draft.ID})
	assert.ErrorIs(t, err, domain.ErrNotOverdue)

	_, err = f.documents.MarkOverdue(ctx, usecase.MarkOverdueInput{TenantID: tenant, DocumentID: draft.ID, AsOf: due})
	assert.ErrorIs(t, err, domain.ErrNotOverdue)

	doc, err := f.documents.MarkOverdue(ctx, usecase.MarkOverdueInput{TenantID: tenant, DocumentID: draft.ID, AsOf: day(2026, 3, 21)})
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusOverdue, doc.Status)

	doc, err = f.documents.RecordPayment(ctx, usecase.RecordPaymentInput{TenantID: tenant, DocumentID: draft.ID, Amount: money("109")})
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusPaid, doc.Status)
}

func TestDocumentUseCase_ConcurrentApprovalsAreContiguous(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const n = 20
	ids := make([]string, n)
	for i := range ids {
		ids[i] = f.salesInvoice(t, fmt.Sprintf("%d", i+1)).ID
	}

	results := make([]*usecase.DocumentResult, n)
	var g errgroup.Group
	for i := range ids {
		g.Go(func() error {
			res, err := f.documents.Approve(ctx, usecase.ApproveInput{TenantID: tenant, DocumentID: ids[i]})
			results[i] = res
			return err
		})
	}
	require.NoError(t, g.Wait())

	docNumbers := make([]int, n)
	entryNumbers := make([]int, n)
	for i, r := range results {
		docNumbers[i] = int(r.Document.SequenceNumber)
		entryNumbers[i] = int(r.Entry.EntryNumber)
	}
	sort.Ints(docNumbers)
	sort.Ints(entryNumbers)
	for i := 0; i < n; i++ {
		assert.Equal(t, i+1, docNumbers[i])
		assert.Equal(t, i+1, entryNumbers[i])
	}

	require.NoError(t, f.recon.CheckLedgerConsistency(ctx, tenant))
}

func TestDocumentUseCase_TenantIsolation(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "globex")
	ctx := context.Background()

	acme := approve(t, f, f.salesInvoice(t, "100").ID)

	_, err := f.documents.GetDocument(ctx, "globex", acme.Document.ID)
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)

	_, err = f.documents.Void(ctx, usecase.VoidInput{TenantID: "globex", DocumentID: acme.Document.ID, Reason: "x"})
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)

	// Lines may not reference another tenant's accounts.
	foreign, err := f.documents.CreateDraft(ctx, usecase.CreateDraftInput{
		TenantID: "globex", Kind: domain.DocumentKindInvoice, Direction: domain.DirectionSales,
		Lines: []usecase.DocumentLineInput{{AccountID: f.account("4000"), Quantity: decimal.NewFromInt(1), UnitPrice: money("1"), TaxCode: "SR"}},
	})
	require.NoError(t, err)
	_, err = f.documents.Approve(ctx, usecase.ApproveInput{TenantID: "globex", DocumentID: foreign.ID})
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	own, err := f.documents.CreateDraft(ctx, usecase.CreateDraftInput{
		TenantID: "globex", Kind: domain.DocumentKindInvoice, Direction: domain.DirectionSales,
		Lines: []usecase.DocumentLineInput{{AccountID: f.acct["globex"]["4000"], Quantity: decimal.NewFromInt(1), UnitPrice: money("1"), TaxCode: "SR"}},
	})
	require.NoError(t, err)
	res, err := f.documents.Approve(ctx, usecase.ApproveInput{TenantID: "globex", DocumentID: own.ID})
	require.NoError(t, err)
	assert.Equal(t, "INV-000001", res.Document.Number)
	assert.Equal(t, int64(1), res.Entry.EntryNumber)

	list, err := f.documents.ListDocuments(ctx, "globex", usecase.DocumentFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestDocumentUseCase_Metrics(t *testing.T) {
	f := newFixture(t)
	m := metrics.NewWithRegisterer(prometheus.NewRegistry())
	f.documents.WithMetrics(m)

	id := approve(t, f, f.salesInvoice(t, "100").ID).Document.ID
	_, err := f.documents.Approve(context.Background(), usecase.ApproveInput{TenantID: tenant, DocumentID: id})
	require.Error(t, err)
	_, err = f.documents.Void(context.Background(), usecase.VoidInput{TenantID: tenant, DocumentID: id, Reason: "dup"})
	require.NoError(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.DocumentsApproved.WithLabelValues("invoice")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.JournalEntriesPosted))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DocumentsVoided))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.JournalEntriesReversed))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.LedgerErrors.WithLabelValues("invalid_transition")))
}
