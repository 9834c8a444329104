package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/iho/taxledger/internal/adapter/http/dto"
	"github.com/iho/taxledger/internal/domain"
	"github.com/iho/taxledger/internal/usecase"
)

// DocumentService defines the behavior needed by DocumentHandler.
type DocumentService interface {
	CreateDraft(ctx context.Context, input usecase.CreateDraftInput) (*domain.Document, error)
	UpdateDraft(ctx context.Context, input usecase.UpdateDraftInput) (*domain.Document, error)
	DeleteDraft(ctx context.Context, tenantID, actorID, id string) error
	GetDocument(ctx context.Context, tenantID, id string) (*domain.Document, error)
	ListDocuments(ctx context.Context, tenantID string, filter usecase.DocumentFilter) ([]*domain.Document, error)
	Approve(ctx context.Context, input usecase.ApproveInput) (*usecase.DocumentResult, error)
	Void(ctx context.Context, input usecase.VoidInput) (*usecase.DocumentResult, error)
	MarkSent(ctx context.Context, tenantID, actorID, id string) (*domain.Document, error)
	RecordPayment(ctx context.Context, input usecase.RecordPaymentInput) (*domain.Document, error)
	MarkOverdue(ctx context.Context, input usecase.MarkOverdueInput) (*domain.Document, error)
}

// DocumentHandler handles invoice, note and quote HTTP requests.
type DocumentHandler struct {
	documentUC DocumentService
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(documentUC DocumentService) *DocumentHandler {
	return &DocumentHandler{documentUC: documentUC}
}

// Create stores a new draft.
func (h *DocumentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.DocumentRequest
	if !decode(w, r, &req) {
		return
	}

	tenantID, actorID := tenantAndActor(r)
	input, err := req.ToCreateInput(tenantID, actorID)
	if err != nil {
		badInput(w, err)
		return
	}

	doc, err := h.documentUC.CreateDraft(r.Context(), input)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// Update replaces the header and lines of a draft.
func (h *DocumentHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.DocumentRequest
	if !decode(w, r, &req) {
		return
	}

	tenantID, actorID := tenantAndActor(r)
	input, err := req.ToUpdateInput(tenantID, actorID, chi.URLParam(r, "id"))
	if err != nil {
		badInput(w, err)
		return
	}

	doc, err := h.documentUC.UpdateDraft(r.Context(), input)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// Delete removes a draft.
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID, actorID := tenantAndActor(r)
	if err := h.documentUC.DeleteDraft(r.Context(), tenantID, actorID, chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Get retrieves a document with its lines.
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := tenantAndActor(r)
	doc, err := h.documentUC.GetDocument(r.Context(), tenantID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// List lists documents filtered by status, kind and direction.
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := usecase.DocumentFilter{
		Status:    domain.DocumentStatus(strings.ToUpper(q.Get("status"))),
		Kind:      domain.DocumentKind(q.Get("kind")),
		Direction: domain.DocumentDirection(q.Get("direction")),
		Limit:     parseIntQuery(r, "limit", 50),
		Offset:    parseIntQuery(r, "offset", 0),
	}
	if (filter.Kind != "" && !filter.Kind.Valid()) || (filter.Direction != "" && !filter.Direction.Valid()) {
		respondError(w, domain.ErrInvalidDocumentKind)
		return
	}

	tenantID, _ := tenantAndActor(r)
	docs, err := h.documentUC.ListDocuments(r.Context(), tenantID, filter)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ListDocumentsResponse{
		Documents: docs,
		Total:     int64(len(docs)),
	})
}

// Approve numbers the document, posts its entry and emits document.approved.
func (h *DocumentHandler) Approve(w http.ResponseWriter, r *http.Request) {
	tenantID, actorID := tenantAndActor(r)
	res, err := h.documentUC.Approve(r.Context(), usecase.ApproveInput{
		TenantID:   tenantID,
		ActorID:    actorID,
		DocumentID: chi.URLParam(r, "id"),
	})
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.DocumentFromResult(res))
}

// Void voids the document, reversing its entry when one was posted.
func (h *DocumentHandler) Void(w http.ResponseWriter, r *http.Request) {
	var req dto.VoidRequest
	if !decode(w, r, &req) {
		return
	}

	tenantID, actorID := tenantAndActor(r)
	res, err := h.documentUC.Void(r.Context(), usecase.VoidInput{
		TenantID:   tenantID,
		ActorID:    actorID,
		DocumentID: chi.URLParam(r, "id"),
		Reason:     req.Reason,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.DocumentFromResult(res))
}

// Send marks an approved document as sent.
func (h *DocumentHandler) Send(w http.ResponseWriter, r *http.Request) {
	tenantID, actorID := tenantAndActor(r)
	doc, err := h.documentUC.MarkSent(r.Context(), tenantID, actorID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// RecordPayment applies a payment to the outstanding balance.
func (h *DocumentHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req dto.PaymentRequest
	if !decode(w, r, &req) {
		return
	}

	tenantID, actorID := tenantAndActor(r)
	doc, err := h.documentUC.RecordPayment(r.Context(), usecase.RecordPaymentInput{
		TenantID:   tenantID,
		ActorID:    actorID,
		DocumentID: chi.URLParam(r, "id"),
		Amount:     req.Amount,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// MarkOverdue flags an unpaid document past its due date.
func (h *DocumentHandler) MarkOverdue(w http.ResponseWriter, r *http.Request) {
	var req dto.OverdueRequest
	if !decode(w, r, &req) {
		return
	}
	asOf, err := req.AsOfDate()
	if err != nil {
		badInput(w, err)
		return
	}

	tenantID, actorID := tenantAndActor(r)
	doc, err := h.documentUC.MarkOverdue(r.Context(), usecase.MarkOverdueInput{
		TenantID:   tenantID,
		ActorID:    actorID,
		DocumentID: chi.URLParam(r, "id"),
		AsOf:       asOf,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}
