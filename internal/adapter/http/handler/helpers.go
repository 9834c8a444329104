package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/iho/taxledger/internal/adapter/http/dto"
	"github.com/iho/taxledger/internal/adapter/http/middleware"
	"github.com/iho/taxledger/internal/domain"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, code, message string, details map[string]any) {
	writeJSON(w, status, dto.ErrorResponse{
		Error:   code,
		Message: message,
		Details: details,
	})
}

// decode reads and validates a JSON body. It writes the 400 response itself
// and reports whether the handler should continue.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var precision *domain.PrecisionError
		if errors.As(err, &precision) {
			respondError(w, precision)
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body", map[string]any{"reason": err.Error()})
		return false
	}

	if err := dto.Validate(v); err != nil {
		details := map[string]any{}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				details[fe.Namespace()] = fe.Tag()
			}
		}
		writeError(w, http.StatusBadRequest, "validation_error", "request failed validation", details)
		return false
	}
	return true
}

// badInput writes a 400 for a malformed field that passed tag validation.
func badInput(w http.ResponseWriter, err error) {
	writeError(w, http.StatusBadRequest, "validation_error", err.Error(), nil)
}

// respondError maps domain errors to status codes and structured details.
// Errors the domain does not name are reported without their text so storage
// details never reach the client.
func respondError(w http.ResponseWriter, err error) {
	status, code, details := mapDomainError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	writeError(w, status, code, message, details)
}

func mapDomainError(err error) (int, string, map[string]any) {
	var (
		precision  *domain.PrecisionError
		unknown    *domain.UnknownTaxRateError
		unbalanced *domain.UnbalancedEntryError
		transition *domain.InvalidTransitionError
		reversed   *domain.AlreadyReversedError
		closed     *domain.ClosedPeriodError
		sequence   *domain.SequenceConflictError
		account    *domain.AccountError
	)

	switch {
	case errors.As(err, &precision):
		return http.StatusBadRequest, "precision_error", map[string]any{"input": precision.Input, "reason": precision.Reason}
	case errors.As(err, &unknown):
		return http.StatusUnprocessableEntity, "unknown_tax_rate", map[string]any{"tax_code": unknown.Code, "as_of": unknown.AsOf.Format(dto.DateLayout)}
	case errors.As(err, &unbalanced):
		details := map[string]any{"debits": unbalanced.Debits.String(), "credits": unbalanced.Credits.String()}
		if unbalanced.EntryID != "" {
			details["entry_id"] = unbalanced.EntryID
		}
		return http.StatusUnprocessableEntity, "unbalanced_entry", details
	case errors.As(err, &transition):
		return http.StatusConflict, "invalid_transition", map[string]any{"document_id": transition.DocumentID, "from": transition.From, "to": transition.To}
	case errors.As(err, &reversed):
		return http.StatusConflict, "already_reversed", map[string]any{"entry_id": reversed.EntryID, "reversed_by": reversed.ReversedBy}
	case errors.As(err, &closed):
		return http.StatusUnprocessableEntity, "closed_period", map[string]any{"period_id": closed.PeriodID, "status": closed.Status, "date": closed.Date.Format(dto.DateLayout)}
	case errors.As(err, &sequence):
		return http.StatusConflict, "sequence_conflict", map[string]any{"kind": sequence.Kind, "number": sequence.Number}
	case errors.As(err, &account):
		status, code, _ := mapDomainError(account.Err)
		return status, code, map[string]any{"account_id": account.AccountID}
	}

	switch {
	case errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrTaxCodeNotFound),
		errors.Is(err, domain.ErrEntryNotFound),
		errors.Is(err, domain.ErrDocumentNotFound),
		errors.Is(err, domain.ErrPeriodNotFound):
		return http.StatusNotFound, "not_found", nil

	case errors.Is(err, domain.ErrAccountExists),
		errors.Is(err, domain.ErrTaxRangeOverlap),
		errors.Is(err, domain.ErrPeriodOverlap),
		errors.Is(err, domain.ErrDocumentNotEditable),
		errors.Is(err, domain.ErrInvalidPeriodTransition):
		return http.StatusConflict, "conflict", nil

	case errors.Is(err, domain.ErrHeaderAccount),
		errors.Is(err, domain.ErrAccountInactive),
		errors.Is(err, domain.ErrPostingProfileNotSet),
		errors.Is(err, domain.ErrNegativeTotal),
		errors.Is(err, domain.ErrOverpayment),
		errors.Is(err, domain.ErrNotOverdue):
		return http.StatusUnprocessableEntity, "business_rule_violation", nil

	case errors.Is(err, domain.ErrTenantRequired),
		errors.Is(err, domain.ErrInvalidTenant),
		errors.Is(err, domain.ErrInvalidAccountName),
		errors.Is(err, domain.ErrInvalidAccountCode),
		errors.Is(err, domain.ErrInvalidAccountType),
		errors.Is(err, domain.ErrInvalidParentAccount),
		errors.Is(err, domain.ErrAccountDepthExceeded),
		errors.Is(err, domain.ErrInvalidCurrency),
		errors.Is(err, domain.ErrReasonTooLong),
		errors.Is(err, domain.ErrInvalidTaxCode),
		errors.Is(err, domain.ErrInvalidTaxRate),
		errors.Is(err, domain.ErrInvalidTaxRange),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidDiscount),
		errors.Is(err, domain.ErrNegativeUnitPrice),
		errors.Is(err, domain.ErrTooFewJournalLines),
		errors.Is(err, domain.ErrInvalidJournalLine),
		errors.Is(err, domain.ErrReversalReasonNeeded),
		errors.Is(err, domain.ErrNoLines),
		errors.Is(err, domain.ErrVoidReasonRequired),
		errors.Is(err, domain.ErrInvalidPayment),
		errors.Is(err, domain.ErrInvalidDocumentKind),
		errors.Is(err, domain.ErrInvalidPeriodRange):
		return http.StatusBadRequest, "validation_error", nil

	default:
		return http.StatusInternalServerError, "internal_error", nil
	}
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}

func tenantAndActor(r *http.Request) (string, string) {
	return middleware.TenantID(r.Context()), middleware.ActorID(r.Context())
}
