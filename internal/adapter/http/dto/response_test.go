package dto

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/taxledger/internal/domain"
	"github.com/iho/taxledger/internal/usecase"
)

func TestAccountFromDomain(t *testing.T) {
	now := time.Now()
	parent := "acc-1000"
	account := &domain.Account{
		ID:        "acc-1100",
		Code:      "1100",
		Name:      "Receivables",
		Type:      domain.AccountTypeAsset,
		ParentID:  &parent,
		Depth:     2,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	resp := AccountFromDomain(account)
	if resp.ID != account.ID || resp.Type != "asset" || resp.Depth != 2 || *resp.ParentID != parent {
		t.Fatalf("unexpected account response: %+v", resp)
	}

	list := AccountsFromDomain([]*domain.Account{account, account})
	if len(list) != 2 {
		t.Fatalf("expected two accounts, got %d", len(list))
	}
}

func TestComputeTaxFromDomain(t *testing.T) {
	code := &domain.TaxCode{Code: "SR", Rate: decimal.RequireFromString("0.09")}
	results := []domain.TaxLineResult{
		{Net: domain.MustParseMoney("100"), Tax: domain.MustParseMoney("9"), Gross: domain.MustParseMoney("109"), Code: code},
		{Net: domain.MustParseMoney("5"), Gross: domain.MustParseMoney("5")},
	}

	totals, err := domain.SumLines(results)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp := ComputeTaxFromDomain(results, totals)
	if resp.Lines[0].TaxCode != "SR" || resp.Lines[0].Rate.String() != "0.09" {
		t.Fatalf("unexpected first line %+v", resp.Lines[0])
	}
	if resp.Lines[1].Rate != nil {
		t.Fatalf("expected exempt line without a rate")
	}

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"gross_total":"114.0000"`) {
		t.Fatalf("expected money as strings, got %s", data)
	}
}

func TestDocumentFromResultIncludesEntry(t *testing.T) {
	res := &usecase.DocumentResult{
		Document: &domain.Document{ID: "doc-1", Number: "INV-000001", Status: domain.DocumentStatusApproved},
		Entry:    &domain.JournalEntry{ID: "je-1", EntryNumber: 1},
	}

	data, err := json.Marshal(DocumentFromResult(res))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	body := string(data)
	if !strings.Contains(body, `"number":"INV-000001"`) || !strings.Contains(body, `"journal_entry":{"id":"je-1"`) {
		t.Fatalf("unexpected body %s", body)
	}
}

func TestTrialBalanceFromUseCase(t *testing.T) {
	tb := &usecase.TrialBalance{
		Lines: []usecase.TrialBalanceLine{
			{AccountID: "a", Code: "1100", Type: domain.AccountTypeAsset, Debits: domain.MustParseMoney("109"), Balance: domain.MustParseMoney("109")},
			{AccountID: "b", Code: "4000", Type: domain.AccountTypeRevenue, Credits: domain.MustParseMoney("109"), Balance: domain.MustParseMoney("109")},
		},
		TotalDebits:  domain.MustParseMoney("109"),
		TotalCredits: domain.MustParseMoney("109"),
		Balanced:     true,
	}

	resp := TrialBalanceFromUseCase(tb)
	if len(resp.Lines) != 2 || !resp.Balanced || resp.Lines[1].Type != "revenue" {
		t.Fatalf("unexpected trial balance %+v", resp)
	}

	report := ConsistencyFromReport(&usecase.ReconciliationReport{LedgerConsistent: true, TotalAccounts: 2, TrialBalance: tb})
	if !report.Consistent || report.TrialBalance.TotalDebits.String() != "109.0000" {
		t.Fatalf("unexpected report %+v", report)
	}
}
