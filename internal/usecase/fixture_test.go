package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iho/taxledger/internal/adapter/repository/memory"
	"github.com/iho/taxledger/internal/domain"
	"github.com/iho/taxledger/internal/usecase"
	"github.com/iho/taxledger/internal/usecase/mocks"
)

const tenant = "acme"

var testNow = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func money(s string) domain.Money { return domain.MustParseMoney(s) }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// fixture wires every use case to one in-memory store.
type fixture struct {
	store     *memory.Store
	clock     *mocks.FixedClock
	ids       *mocks.SequentialIDGenerator
	sequences *usecase.SequenceGenerator
	ledger    *usecase.LedgerUseCase
	tax       *usecase.TaxUseCase
	accounts  *usecase.AccountUseCase
	periods   *usecase.PeriodUseCase
	documents *usecase.DocumentUseCase
	recon     *usecase.ReconciliationUseCase

	// acct maps account codes to ids, per tenant.
	acct map[string]map[string]string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	clock := mocks.NewFixedClock(testNow)
	ids := mocks.NewSequentialIDGenerator("id")

	sequences := usecase.NewSequenceGenerator(store, store.Sequences())
	ledger := usecase.NewLedgerUseCase(store, store.Accounts(), store.Journal(), store.Periods(),
		sequences, store.Outbox(), store.Audit(), ids).WithClock(clock)
	tax := usecase.NewTaxUseCase(store, store.TaxCodes(), nil, store.Audit(), ids).WithClock(clock)

	f := &fixture{
		store:     store,
		clock:     clock,
		ids:       ids,
		sequences: sequences,
		ledger:    ledger,
		tax:       tax,
		accounts:  usecase.NewAccountUseCase(store, store.Accounts(), store.PostingProfiles(), store.Audit(), ids).WithClock(clock),
		periods:   usecase.NewPeriodUseCase(store, store.Periods(), store.Audit(), ids).WithClock(clock),
		documents: usecase.NewDocumentUseCase(store, store.Documents(), store.TaxCodes(), store.PostingProfiles(),
			ledger, sequences, tax, store.Outbox(), store.Audit(), ids).WithClock(clock).WithBaseCurrency("SGD"),
		recon: usecase.NewReconciliationUseCase(store.Ledger()).WithClock(clock),
		acct:  map[string]map[string]string{},
	}
	f.seed(t, tenant)
	return f
}

// seed creates a small chart of accounts, the posting profile and the SR,
// ZR and BL tax codes for tenantID.
func (f *fixture) seed(t *testing.T, tenantID string) {
	t.Helper()
	ctx := context.Background()

	f.acct[tenantID] = map[string]string{}
	accounts := []struct {
		code, name string
		typ        domain.AccountType
		header     bool
	}{
		{"1000", "Assets", domain.AccountTypeAsset, true},
		{"1100", "Accounts Receivable", domain.AccountTypeAsset, false},
		{"1300", "Input Tax", domain.AccountTypeAsset, false},
		{"2100", "Accounts Payable", domain.AccountTypeLiability, false},
		{"2200", "Output Tax", domain.AccountTypeLiability, false},
		{"2300", "Customer Deposits", domain.AccountTypeLiability, false},
		{"4000", "Revenue", domain.AccountTypeRevenue, false},
		{"5000", "Expenses", domain.AccountTypeExpense, false},
		{"5900", "Exempt Purchases", domain.AccountTypeExpense, false},
	}
	for _, a := range accounts {
		created, err := f.accounts.CreateAccount(ctx, usecase.CreateAccountInput{
			TenantID: tenantID,
			ActorID:  "seed",
			Code:     a.code,
			Name:     a.name,
			Type:     a.typ,
			IsHeader: a.header,
		})
		require.NoError(t, err)
		f.acct[tenantID][a.code] = created.ID
	}

	_, err := f.accounts.SetPostingProfile(ctx, usecase.SetPostingProfileInput{
		TenantID:                tenantID,
		ActorID:                 "seed",
		ReceivableAccountID:     f.acct[tenantID]["1100"],
		PayableAccountID:        f.acct[tenantID]["2100"],
		OutputTaxAccountID:      f.acct[tenantID]["2200"],
		InputTaxAccountID:       f.acct[tenantID]["1300"],
		ExemptSalesAccountID:    f.acct[tenantID]["2300"],
		ExemptPurchaseAccountID: f.acct[tenantID]["5900"],
	})
	require.NoError(t, err)

	endOf2023 := day(2024, 1, 1)
	codes := []usecase.CreateTaxCodeInput{
		{Code: "SR", Rate: dec("0.08"), EffectiveFrom: day(2023, 1, 1), EffectiveTo: &endOf2023, Claimable: true},
		{Code: "SR", Rate: dec("0.09"), EffectiveFrom: day(2024, 1, 1), Claimable: true},
		{Code: "ZR", Rate: decimal.Zero, EffectiveFrom: day(2020, 1, 1), IsZeroRated: true},
		{Code: "BL", Rate: dec("0.09"), EffectiveFrom: day(2024, 1, 1)},
	}
	for _, c := range codes {
		c.TenantID = tenantID
		c.ActorID = "seed"
		_, err := f.tax.CreateTaxCode(ctx, c)
		require.NoError(t, err)
	}
}

func (f *fixture) account(code string) string {
	return f.acct[tenant][code]
}

// salesInvoice creates a draft sales invoice with one SR line.
func (f *fixture) salesInvoice(t *testing.T, price string) *domain.Document {
	t.Helper()
	doc, err := f.documents.CreateDraft(context.Background(), usecase.CreateDraftInput{
		TenantID:       tenant,
		ActorID:        "alice",
		Kind:           domain.DocumentKindInvoice,
		Direction:      domain.DirectionSales,
		CounterpartyID: "cust-1",
		Date:           day(2026, 3, 10),
		Lines: []usecase.DocumentLineInput{{
			AccountID:   f.account("4000"),
			Description: "Consulting",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   money(price),
			TaxCode:     "SR",
		}},
	})
	require.NoError(t, err)
	return doc
}

func (f *fixture) entryCount(t *testing.T) int {
	t.Helper()
	entries, err := f.ledger.ListEntries(context.Background(), usecase.ListEntriesInput{TenantID: tenant, Limit: 100})
	require.NoError(t, err)
	return len(entries)
}

func (f *fixture) currentNumber(t *testing.T, kind domain.SequenceKind) int64 {
	t.Helper()
	n, err := f.sequences.Current(context.Background(), tenant, kind)
	require.NoError(t, err)
	return n
}

// lineView flattens a journal line for comparisons.
type lineView struct {
	Account string
	Debit   string
	Credit  string
}

func viewLines(lines []domain.JournalLine) []lineView {
	out := make([]lineView, len(lines))
	for i, l := range lines {
		out[i] = lineView{Account: l.AccountID, Debit: l.Debit.Display(), Credit: l.Credit.Display()}
	}
	return out
}
