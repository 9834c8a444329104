package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/iho/taxledger/internal/domain"
)

// SQLSTATE codes the adapter interprets.
const (
	pgErrUniqueViolation    = "23505"
	pgErrCheckViolation     = "23514"
	pgErrExclusionViolation = "23P01"
	pgErrSerialization      = "40001"
	pgErrDeadlock           = "40P01"
)

// Constraint names from the migrations.
const (
	constraintEntryBalanced   = "journal_entry_balanced"
	constraintEntryNumber     = "journal_entries_tenant_number_key"
	constraintEntryReversalOf = "journal_entries_reversal_of_key"
	constraintDocumentNumber  = "documents_number_key"
	constraintAccountCode     = "accounts_tenant_code_key"
	constraintTaxOverlap      = "tax_codes_no_overlap"
	constraintPeriodOverlap   = "fiscal_periods_no_overlap"
)

// mapError translates constraint violations into domain errors. Other
// errors, including retryable ones, pass through unchanged.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgErrCheckViolation:
		if pgErr.ConstraintName == constraintEntryBalanced {
			return &domain.UnbalancedEntryError{EntryID: pgErr.Detail}
		}
	case pgErrUniqueViolation:
		switch pgErr.ConstraintName {
		case constraintEntryNumber:
			return &domain.SequenceConflictError{Kind: domain.SequenceJournalEntry}
		case constraintDocumentNumber:
			return &domain.SequenceConflictError{}
		case constraintEntryReversalOf:
			return domain.ErrAlreadyReversed
		case constraintAccountCode:
			return domain.ErrAccountExists
		}
	case pgErrExclusionViolation:
		switch pgErr.ConstraintName {
		case constraintTaxOverlap:
			return domain.ErrTaxRangeOverlap
		case constraintPeriodOverlap:
			return domain.ErrPeriodOverlap
		}
	}

	return err
}
