package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/taxledger/internal/adapter/http/dto"
	"github.com/iho/taxledger/internal/domain"
	"github.com/iho/taxledger/internal/usecase"
)

// JournalService defines the behavior needed by JournalHandler.
type JournalService interface {
	PostEntry(ctx context.Context, input usecase.PostEntryInput) (*domain.JournalEntry, error)
	ReverseEntry(ctx context.Context, input usecase.ReverseEntryInput) (*domain.JournalEntry, error)
	GetEntry(ctx context.Context, tenantID, id string) (*domain.JournalEntry, error)
	ListEntries(ctx context.Context, input usecase.ListEntriesInput) ([]*domain.JournalEntry, error)
	ListEntriesBySource(ctx context.Context, tenantID string, source domain.SourceRef) ([]*domain.JournalEntry, error)
}

// JournalHandler handles manual journal entries and reversals.
type JournalHandler struct {
	ledgerUC JournalService
}

// NewJournalHandler creates a new JournalHandler.
func NewJournalHandler(ledgerUC JournalService) *JournalHandler {
	return &JournalHandler{ledgerUC: ledgerUC}
}

// Post posts a balanced manual entry.
func (h *JournalHandler) Post(w http.ResponseWriter, r *http.Request) {
	var req dto.PostEntryRequest
	if !decode(w, r, &req) {
		return
	}

	tenantID, actorID := tenantAndActor(r)
	input, err := req.ToUseCaseInput(tenantID, actorID)
	if err != nil {
		badInput(w, err)
		return
	}

	entry, err := h.ledgerUC.PostEntry(r.Context(), input)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// Reverse posts the mirror entry of a posted one.
func (h *JournalHandler) Reverse(w http.ResponseWriter, r *http.Request) {
	var req dto.ReverseEntryRequest
	if !decode(w, r, &req) {
		return
	}

	tenantID, actorID := tenantAndActor(r)
	input, err := req.ToUseCaseInput(tenantID, actorID, chi.URLParam(r, "id"))
	if err != nil {
		badInput(w, err)
		return
	}

	entry, err := h.ledgerUC.ReverseEntry(r.Context(), input)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// Get retrieves an entry with its lines.
func (h *JournalHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := tenantAndActor(r)
	entry, err := h.ledgerUC.GetEntry(r.Context(), tenantID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// List lists entries by entry number. With source_kind and source_id it
// returns the entries posted for that source document instead.
func (h *JournalHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := tenantAndActor(r)

	var (
		entries []*domain.JournalEntry
		err     error
	)
	q := r.URL.Query()
	if kind, id := q.Get("source_kind"), q.Get("source_id"); kind != "" || id != "" {
		entries, err = h.ledgerUC.ListEntriesBySource(r.Context(), tenantID, domain.SourceRef{Kind: kind, ID: id})
	} else {
		entries, err = h.ledgerUC.ListEntries(r.Context(), usecase.ListEntriesInput{
			TenantID: tenantID,
			Limit:    parseIntQuery(r, "limit", 50),
			Offset:   parseIntQuery(r, "offset", 0),
		})
	}
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListEntriesResponse{
		Entries: entries,
		Total:   int64(len(entries)),
	})
}
