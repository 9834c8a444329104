package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/taxledger/internal/domain"
	"github.com/iho/taxledger/internal/usecase"
)

const documentColumns = `id, tenant_id, kind, direction, number, sequence_number, status,
	counterparty_id, reference, date, due_date, currency, subtotal, tax_total, gross_total,
	amount_paid, linked_journal_entry_id, void_reason, approved_at, voided_at, created_at, updated_at`

// DocumentRepository implements usecase.DocumentRepository. Lines live in
// document_lines and are replaced wholesale on update.
type DocumentRepository struct {
	db DBTX
}

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(db DBTX) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create inserts a document with its lines.
func (r *DocumentRepository) Create(ctx context.Context, tx usecase.Transaction, d *domain.Document) error {
	q := pgxTx(tx)

	_, err := q.Exec(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`,
		documentArgs(d)...,
	)
	if err != nil {
		return mapError(err)
	}

	return insertDocumentLines(ctx, q, d)
}

// GetByID retrieves a document with its lines.
func (r *DocumentRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Document, error) {
	return getDocument(ctx, r.db, `SELECT `+documentColumns+` FROM documents WHERE tenant_id = $1 AND id = $2`, tenantID, id)
}

// GetByIDForUpdate retrieves a document and locks its row.
func (r *DocumentRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, tenantID, id string) (*domain.Document, error) {
	return getDocument(ctx, pgxTx(tx), `SELECT `+documentColumns+` FROM documents WHERE tenant_id = $1 AND id = $2 FOR UPDATE`, tenantID, id)
}

// Update replaces the header and lines.
func (r *DocumentRepository) Update(ctx context.Context, tx usecase.Transaction, d *domain.Document) error {
	q := pgxTx(tx)

	tag, err := q.Exec(ctx, `
		UPDATE documents SET
			kind = $3, direction = $4, number = $5, sequence_number = $6, status = $7,
			counterparty_id = $8, reference = $9, date = $10, due_date = $11, currency = $12,
			subtotal = $13, tax_total = $14, gross_total = $15, amount_paid = $16,
			linked_journal_entry_id = $17, void_reason = $18, approved_at = $19, voided_at = $20,
			created_at = $21, updated_at = $22
		WHERE tenant_id = $2 AND id = $1`,
		documentArgs(d)...,
	)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}

	if _, err := q.Exec(ctx, `DELETE FROM document_lines WHERE document_id = $1`, d.ID); err != nil {
		return err
	}

	return insertDocumentLines(ctx, q, d)
}

// Delete removes a document and, by cascade, its lines.
func (r *DocumentRepository) Delete(ctx context.Context, tx usecase.Transaction, tenantID, id string) error {
	tag, err := pgxTx(tx).Exec(ctx, `DELETE FROM documents WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}

	return nil
}

// List returns documents newest first.
func (r *DocumentRepository) List(ctx context.Context, tenantID string, filter usecase.DocumentFilter) ([]*domain.Document, error) {
	where := []string{"tenant_id = $1"}
	args := []any{tenantID}

	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		where = append(where, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("status", string(filter.Status))
	add("kind", string(filter.Kind))
	add("direction", string(filter.Direction))

	sql := `SELECT ` + documentColumns + ` FROM documents WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		sql += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		sql += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}

	docs := make([]*domain.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		docs = append(docs, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := loadDocumentLines(ctx, r.db, docs); err != nil {
		return nil, err
	}

	return docs, nil
}

func getDocument(ctx context.Context, q DBTX, sql string, args ...any) (*domain.Document, error) {
	d, err := scanDocument(q.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}

	if err := loadDocumentLines(ctx, q, []*domain.Document{d}); err != nil {
		return nil, err
	}

	return d, nil
}

func documentArgs(d *domain.Document) []any {
	var (
		number pgtype.Text
		seq    pgtype.Int8
	)
	if d.Number != "" {
		number = pgtype.Text{String: d.Number, Valid: true}
	}
	if d.SequenceNumber > 0 {
		seq = pgtype.Int8{Int64: d.SequenceNumber, Valid: true}
	}

	return []any{
		d.ID,
		d.TenantID,
		string(d.Kind),
		string(d.Direction),
		number,
		seq,
		string(d.Status),
		d.CounterpartyID,
		d.Reference,
		dateToPg(d.Date),
		optionalDateToPg(d.DueDate),
		d.Currency,
		moneyToNumeric(d.Totals.Subtotal),
		moneyToNumeric(d.Totals.TaxTotal),
		moneyToNumeric(d.Totals.GrossTotal),
		moneyToNumeric(d.AmountPaid),
		optionalText(d.LinkedJournalEntryID),
		optionalText(d.VoidReason),
		optionalTimestamptz(d.ApprovedAt),
		optionalTimestamptz(d.VoidedAt),
		d.CreatedAt,
		d.UpdatedAt,
	}
}

func insertDocumentLines(ctx context.Context, q DBTX, d *domain.Document) error {
	for _, l := range d.Lines {
		_, err := q.Exec(ctx, `
			INSERT INTO document_lines (
				document_id, line_number, account_id, description, quantity, unit_price, discount_pct,
				tax_code, is_tax_inclusive, is_tax_exempt_override, net_amount, tax_amount, gross_amount,
				tax_claimable
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			d.ID,
			l.LineNumber,
			l.AccountID,
			l.Description,
			decimalToNumeric(l.Quantity),
			moneyToNumeric(l.UnitPrice),
			decimalToNumeric(l.DiscountPct),
			l.TaxCode,
			l.IsTaxInclusive,
			l.IsTaxExemptOverride,
			moneyToNumeric(l.NetAmount),
			moneyToNumeric(l.TaxAmount),
			moneyToNumeric(l.GrossAmount),
			l.TaxClaimable,
		)
		if err != nil {
			return mapError(err)
		}
	}

	return nil
}

func loadDocumentLines(ctx context.Context, q DBTX, docs []*domain.Document) error {
	if len(docs) == 0 {
		return nil
	}

	byID := make(map[string]*domain.Document, len(docs))
	ids := make([]string, len(docs))
	for i, d := range docs {
		byID[d.ID] = d
		ids[i] = d.ID
	}

	rows, err := q.Query(ctx, `
		SELECT document_id, line_number, account_id, description, quantity, unit_price, discount_pct,
		       tax_code, is_tax_inclusive, is_tax_exempt_override, net_amount, tax_amount, gross_amount,
		       tax_claimable
		FROM document_lines
		WHERE document_id = ANY($1)
		ORDER BY document_id, line_number`,
		ids,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			docID                string
			l                    domain.DocumentLine
			qty, price, discount pgtype.Numeric
			net, tax, gross      pgtype.Numeric
		)
		if err := rows.Scan(
			&docID, &l.LineNumber, &l.AccountID, &l.Description, &qty, &price, &discount,
			&l.TaxCode, &l.IsTaxInclusive, &l.IsTaxExemptOverride, &net, &tax, &gross,
			&l.TaxClaimable,
		); err != nil {
			return err
		}

		l.Quantity = numericToDecimal(qty)
		l.DiscountPct = numericToDecimal(discount)
		for _, m := range []struct {
			dst *domain.Money
			src pgtype.Numeric
		}{
			{&l.UnitPrice, price},
			{&l.NetAmount, net},
			{&l.TaxAmount, tax},
			{&l.GrossAmount, gross},
		} {
			if *m.dst, err = numericToMoney(m.src); err != nil {
				return err
			}
		}

		if d, ok := byID[docID]; ok {
			d.Lines = append(d.Lines, l)
		}
	}

	return rows.Err()
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var (
		d                         domain.Document
		kind, direction, status   string
		number                    pgtype.Text
		seq                       pgtype.Int8
		date, dueDate             pgtype.Date
		subtotal, taxTotal, gross pgtype.Numeric
		paid                      pgtype.Numeric
		linkedEntry, voidReason   pgtype.Text
		approvedAt, voidedAt      pgtype.Timestamptz
		createdAt, updatedAt      time.Time
	)

	if err := row.Scan(
		&d.ID, &d.TenantID, &kind, &direction, &number, &seq, &status,
		&d.CounterpartyID, &d.Reference, &date, &dueDate, &d.Currency,
		&subtotal, &taxTotal, &gross, &paid, &linkedEntry, &voidReason,
		&approvedAt, &voidedAt, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	d.Kind = domain.DocumentKind(kind)
	d.Direction = domain.DocumentDirection(direction)
	d.Status = domain.DocumentStatus(status)
	d.Number = number.String
	d.SequenceNumber = seq.Int64
	d.Date = domain.DateOnly(date.Time)
	d.DueDate = pgToOptionalDate(dueDate)
	d.LinkedJournalEntryID = pgToOptionalString(linkedEntry)
	d.VoidReason = pgToOptionalString(voidReason)
	d.ApprovedAt = pgToOptionalTime(approvedAt)
	d.VoidedAt = pgToOptionalTime(voidedAt)
	d.CreatedAt = createdAt.UTC()
	d.UpdatedAt = updatedAt.UTC()
	d.Lines = []domain.DocumentLine{}

	var err error
	if d.Totals.Subtotal, err = numericToMoney(subtotal); err != nil {
		return nil, err
	}
	if d.Totals.TaxTotal, err = numericToMoney(taxTotal); err != nil {
		return nil, err
	}
	if d.Totals.GrossTotal, err = numericToMoney(gross); err != nil {
		return nil, err
	}
	if d.AmountPaid, err = numericToMoney(paid); err != nil {
		return nil, err
	}

	return &d, nil
}
