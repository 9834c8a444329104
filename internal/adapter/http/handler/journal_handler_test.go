package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/taxledger/internal/adapter/http/dto"
	"github.com/iho/taxledger/internal/domain"
	"github.com/iho/taxledger/internal/usecase"
)

type journalServiceStub struct {
	postFn     func(ctx context.Context, input usecase.PostEntryInput) (*domain.JournalEntry, error)
	reverseFn  func(ctx context.Context, input usecase.ReverseEntryInput) (*domain.JournalEntry, error)
	getFn      func(ctx context.Context, tenantID, id string) (*domain.JournalEntry, error)
	listFn     func(ctx context.Context, input usecase.ListEntriesInput) ([]*domain.JournalEntry, error)
	bySourceFn func(ctx context.Context, tenantID string, source domain.SourceRef) ([]*domain.JournalEntry, error)
}

func (s *journalServiceStub) PostEntry(ctx context.Context, input usecase.PostEntryInput) (*domain.JournalEntry, error) {
	return s.postFn(ctx, input)
}

func (s *journalServiceStub) ReverseEntry(ctx context.Context, input usecase.ReverseEntryInput) (*domain.JournalEntry, error) {
	return s.reverseFn(ctx, input)
}

func (s *journalServiceStub) GetEntry(ctx context.Context, tenantID, id string) (*domain.JournalEntry, error) {
	return s.getFn(ctx, tenantID, id)
}

func (s *journalServiceStub) ListEntries(ctx context.Context, input usecase.ListEntriesInput) ([]*domain.JournalEntry, error) {
	return s.listFn(ctx, input)
}

func (s *journalServiceStub) ListEntriesBySource(ctx context.Context, tenantID string, source domain.SourceRef) ([]*domain.JournalEntry, error) {
	return s.bySourceFn(ctx, tenantID, source)
}

const entryBody = `{
	"entry_date": "2026-03-10",
	"currency": "USD",
	"memo": "accrual",
	"lines": [
		{"account_id": "acc-exp", "debit": "100.00", "credit": "0"},
		{"account_id": "acc-ap", "debit": "0", "credit": "100.00"}
	]
}`

func TestJournalHandler_Post(t *testing.T) {
	h := NewJournalHandler(&journalServiceStub{
		postFn: func(ctx context.Context, input usecase.PostEntryInput) (*domain.JournalEntry, error) {
			assert.Equal(t, testTenant, input.TenantID)
			require.Len(t, input.Lines, 2)
			assert.Equal(t, "100.0000", input.Lines[0].Debit.String())
			return &domain.JournalEntry{ID: "je-1", EntryNumber: 1}, nil
		},
	})

	rec := serve(h.Post, http.MethodPost, "/journal-entries", entryBody, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var entry domain.JournalEntry
	decodeBody(t, rec, &entry)
	assert.Equal(t, int64(1), entry.EntryNumber)
}

func TestJournalHandler_Post_Unbalanced(t *testing.T) {
	h := NewJournalHandler(&journalServiceStub{
		postFn: func(ctx context.Context, input usecase.PostEntryInput) (*domain.JournalEntry, error) {
			return nil, &domain.UnbalancedEntryError{Debits: domain.MustParseMoney("100"), Credits: domain.MustParseMoney("90")}
		},
	})

	rec := serve(h.Post, http.MethodPost, "/journal-entries", entryBody, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp dto.ErrorResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "unbalanced_entry", resp.Error)
	assert.Equal(t, "100.0000", resp.Details["debits"])
	assert.Equal(t, "90.0000", resp.Details["credits"])
}

func TestJournalHandler_Post_SingleLine(t *testing.T) {
	h := NewJournalHandler(&journalServiceStub{})

	body := `{"entry_date":"2026-03-10","currency":"USD","lines":[{"account_id":"a","debit":"1","credit":"0"}]}`
	rec := serve(h.Post, http.MethodPost, "/journal-entries", body, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJournalHandler_Reverse(t *testing.T) {
	tests := []struct {
		name   string
		body   any
		err    error
		status int
	}{
		{"reversed", dto.ReverseEntryRequest{Reason: "wrong account"}, nil, http.StatusCreated},
		{"missing reason", dto.ReverseEntryRequest{}, nil, http.StatusBadRequest},
		{"twice", dto.ReverseEntryRequest{Reason: "again"}, &domain.AlreadyReversedError{EntryID: "je-1", ReversedBy: "je-2"}, http.StatusConflict},
		{"entry missing", dto.ReverseEntryRequest{Reason: "x"}, domain.ErrEntryNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewJournalHandler(&journalServiceStub{
				reverseFn: func(ctx context.Context, input usecase.ReverseEntryInput) (*domain.JournalEntry, error) {
					assert.Equal(t, "je-1", input.EntryID)
					if tt.err != nil {
						return nil, tt.err
					}
					original := input.EntryID
					return &domain.JournalEntry{ID: "je-2", ReversalOf: &original}, nil
				},
			})
			rec := serve(h.Reverse, http.MethodPost, "/journal-entries/je-1/reverse", tt.body, map[string]string{"id": "je-1"})
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestJournalHandler_List(t *testing.T) {
	h := NewJournalHandler(&journalServiceStub{
		listFn: func(ctx context.Context, input usecase.ListEntriesInput) ([]*domain.JournalEntry, error) {
			assert.Equal(t, 20, input.Limit)
			return []*domain.JournalEntry{{ID: "je-1"}, {ID: "je-2"}}, nil
		},
		bySourceFn: func(ctx context.Context, tenantID string, source domain.SourceRef) ([]*domain.JournalEntry, error) {
			assert.Equal(t, domain.SourceRef{Kind: "document", ID: "doc-1"}, source)
			return []*domain.JournalEntry{{ID: "je-7"}}, nil
		},
	})

	rec := serve(h.List, http.MethodGet, "/journal-entries?limit=20", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp dto.ListEntriesResponse
	decodeBody(t, rec, &resp)
	assert.Len(t, resp.Entries, 2)

	rec = serve(h.List, http.MethodGet, "/journal-entries?source_kind=document&source_id=doc-1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &resp)
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, "je-7", resp.Entries[0].ID)
}

func TestJournalHandler_Get(t *testing.T) {
	h := NewJournalHandler(&journalServiceStub{
		getFn: func(ctx context.Context, tenantID, id string) (*domain.JournalEntry, error) {
			if tenantID != testTenant {
				return nil, domain.ErrEntryNotFound
			}
			return &domain.JournalEntry{ID: id}, nil
		},
	})

	rec := serve(h.Get, http.MethodGet, "/journal-entries/je-1", nil, map[string]string{"id": "je-1"})
	assert.Equal(t, http.StatusOK, rec.Code)
}
