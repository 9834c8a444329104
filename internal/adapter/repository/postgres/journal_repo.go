package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/taxledger/internal/domain"
	"github.com/iho/taxledger/internal/usecase"
)

const entryColumns = `id, tenant_id, entry_number, entry_date, currency, exchange_rate, memo,
	source_kind, source_id, reversal_of, is_reversed, reversed_by_entry_id, reversed_at,
	created_by, created_at`

// JournalRepository implements usecase.JournalRepository. Lines are
// insert-only; triggers reject any other change.
type JournalRepository struct {
	db DBTX
}

// NewJournalRepository creates a new JournalRepository.
func NewJournalRepository(db DBTX) *JournalRepository {
	return &JournalRepository{db: db}
}

// Create inserts the entry and its lines. Balance is verified by a deferred
// trigger at commit.
func (r *JournalRepository) Create(ctx context.Context, tx usecase.Transaction, e *domain.JournalEntry) error {
	q := pgxTx(tx)

	var sourceKind, sourceID pgtype.Text
	if e.Source != nil {
		sourceKind = pgtype.Text{String: e.Source.Kind, Valid: true}
		sourceID = pgtype.Text{String: e.Source.ID, Valid: true}
	}

	_, err := q.Exec(ctx, `
		INSERT INTO journal_entries (`+entryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		e.ID,
		e.TenantID,
		e.EntryNumber,
		dateToPg(e.EntryDate),
		e.Currency,
		decimalToNumeric(e.ExchangeRate),
		e.Memo,
		sourceKind,
		sourceID,
		optionalText(e.ReversalOf),
		e.IsReversed,
		optionalText(e.ReversedByEntryID),
		optionalTimestamptz(e.ReversedAt),
		e.CreatedBy,
		e.CreatedAt,
	)
	if err != nil {
		return mapError(err)
	}

	for _, l := range e.Lines {
		_, err := q.Exec(ctx, `
			INSERT INTO journal_lines (entry_id, line_number, tenant_id, account_id, debit, credit, description)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			e.ID,
			l.LineNumber,
			e.TenantID,
			l.AccountID,
			moneyToNumeric(l.Debit),
			moneyToNumeric(l.Credit),
			l.Description,
		)
		if err != nil {
			return mapError(err)
		}
	}

	return nil
}

// GetByID retrieves an entry with its lines.
func (r *JournalRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.JournalEntry, error) {
	return r.getOne(ctx, r.db, `SELECT `+entryColumns+` FROM journal_entries WHERE tenant_id = $1 AND id = $2`, tenantID, id)
}

// GetByIDForUpdate retrieves an entry and locks its row.
func (r *JournalRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, tenantID, id string) (*domain.JournalEntry, error) {
	return r.getOne(ctx, pgxTx(tx), `SELECT `+entryColumns+` FROM journal_entries WHERE tenant_id = $1 AND id = $2 FOR UPDATE`, tenantID, id)
}

// MarkReversed sets the reversal stamp once.
func (r *JournalRepository) MarkReversed(ctx context.Context, tx usecase.Transaction, tenantID, id, reversedBy string, reversedAt time.Time) error {
	q := pgxTx(tx)

	tag, err := q.Exec(ctx, `
		UPDATE journal_entries
		SET is_reversed = TRUE, reversed_by_entry_id = $3, reversed_at = $4
		WHERE tenant_id = $1 AND id = $2 AND NOT is_reversed`,
		tenantID, id, reversedBy, reversedAt,
	)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var by pgtype.Text
	err = q.QueryRow(ctx, `SELECT reversed_by_entry_id FROM journal_entries WHERE tenant_id = $1 AND id = $2`,
		tenantID, id,
	).Scan(&by)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrEntryNotFound
	}
	if err != nil {
		return err
	}

	return &domain.AlreadyReversedError{EntryID: id, ReversedBy: by.String}
}

// ListBySource returns entries produced by source, oldest first.
func (r *JournalRepository) ListBySource(ctx context.Context, tenantID string, source domain.SourceRef) ([]*domain.JournalEntry, error) {
	return r.getMany(ctx, `
		SELECT `+entryColumns+` FROM journal_entries
		WHERE tenant_id = $1 AND source_kind = $2 AND source_id = $3
		ORDER BY entry_number`,
		tenantID, source.Kind, source.ID,
	)
}

// List returns entries newest first.
func (r *JournalRepository) List(ctx context.Context, tenantID string, limit, offset int) ([]*domain.JournalEntry, error) {
	return r.getMany(ctx, `
		SELECT `+entryColumns+` FROM journal_entries
		WHERE tenant_id = $1
		ORDER BY entry_number DESC
		LIMIT $2 OFFSET $3`,
		tenantID, limit, offset,
	)
}

// getOne and getMany take queries whose first parameter is the tenant id.
func (r *JournalRepository) getOne(ctx context.Context, q DBTX, sql, tenantID string, args ...any) (*domain.JournalEntry, error) {
	e, err := scanEntry(q.QueryRow(ctx, sql, append([]any{tenantID}, args...)...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}
		return nil, err
	}

	if err := loadLines(ctx, q, tenantID, []*domain.JournalEntry{e}); err != nil {
		return nil, err
	}

	return e, nil
}

func (r *JournalRepository) getMany(ctx context.Context, sql, tenantID string, args ...any) ([]*domain.JournalEntry, error) {
	rows, err := r.db.Query(ctx, sql, append([]any{tenantID}, args...)...)
	if err != nil {
		return nil, err
	}

	entries := make([]*domain.JournalEntry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		entries = append(entries, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := loadLines(ctx, r.db, tenantID, entries); err != nil {
		return nil, err
	}

	return entries, nil
}

func loadLines(ctx context.Context, q DBTX, tenantID string, entries []*domain.JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}

	byID := make(map[string]*domain.JournalEntry, len(entries))
	ids := make([]string, len(entries))
	for i, e := range entries {
		byID[e.ID] = e
		ids[i] = e.ID
	}

	rows, err := q.Query(ctx, `
		SELECT entry_id, line_number, account_id, debit, credit, description
		FROM journal_lines
		WHERE tenant_id = $1 AND entry_id = ANY($2)
		ORDER BY entry_id, line_number`,
		tenantID, ids,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			l             domain.JournalLine
			debit, credit pgtype.Numeric
		)
		if err := rows.Scan(&l.EntryID, &l.LineNumber, &l.AccountID, &debit, &credit, &l.Description); err != nil {
			return err
		}
		if l.Debit, err = numericToMoney(debit); err != nil {
			return err
		}
		if l.Credit, err = numericToMoney(credit); err != nil {
			return err
		}
		if e, ok := byID[l.EntryID]; ok {
			e.Lines = append(e.Lines, l)
		}
	}

	return rows.Err()
}

func scanEntry(row rowScanner) (*domain.JournalEntry, error) {
	var (
		e                      domain.JournalEntry
		entryDate              pgtype.Date
		rate                   pgtype.Numeric
		sourceKind, sourceID   pgtype.Text
		reversalOf, reversedBy pgtype.Text
		reversedAt             pgtype.Timestamptz
		createdAt              time.Time
	)

	if err := row.Scan(
		&e.ID, &e.TenantID, &e.EntryNumber, &entryDate, &e.Currency, &rate, &e.Memo,
		&sourceKind, &sourceID, &reversalOf, &e.IsReversed, &reversedBy, &reversedAt,
		&e.CreatedBy, &createdAt,
	); err != nil {
		return nil, err
	}

	e.EntryDate = domain.DateOnly(entryDate.Time)
	e.ExchangeRate = numericToDecimal(rate)
	if sourceKind.Valid {
		e.Source = &domain.SourceRef{Kind: sourceKind.String, ID: sourceID.String}
	}
	e.ReversalOf = pgToOptionalString(reversalOf)
	e.ReversedByEntryID = pgToOptionalString(reversedBy)
	e.ReversedAt = pgToOptionalTime(reversedAt)
	e.CreatedAt = createdAt.UTC()
	e.Lines = []domain.JournalLine{}

	return &e, nil
}
