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

const periodColumns = `id, tenant_id, name, start_date, end_date, status, closed_at, created_at, updated_at`

// PeriodRepository implements usecase.PeriodRepository.
type PeriodRepository struct {
	db DBTX
}

// NewPeriodRepository creates a new PeriodRepository.
func NewPeriodRepository(db DBTX) *PeriodRepository {
	return &PeriodRepository{db: db}
}

// Create inserts a period. Overlaps are rejected by the exclusion constraint.
func (r *PeriodRepository) Create(ctx context.Context, tx usecase.Transaction, p *domain.FiscalPeriod) error {
	_, err := pgxTx(tx).Exec(ctx, `
		INSERT INTO fiscal_periods (`+periodColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID,
		p.TenantID,
		p.Name,
		dateToPg(p.StartDate),
		dateToPg(p.EndDate),
		string(p.Status),
		optionalTimestamptz(p.ClosedAt),
		p.CreatedAt,
		p.UpdatedAt,
	)

	return mapError(err)
}

// GetByIDForUpdate locks the period row. Postings hold FOR SHARE on the
// same row, so a close waits for in-flight postings to finish.
func (r *PeriodRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, tenantID, id string) (*domain.FiscalPeriod, error) {
	p, err := scanPeriod(pgxTx(tx).QueryRow(ctx,
		`SELECT `+periodColumns+` FROM fiscal_periods WHERE tenant_id = $1 AND id = $2 FOR UPDATE`,
		tenantID, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPeriodNotFound
	}

	return p, err
}

// FindByDateForShare returns the period containing date.
func (r *PeriodRepository) FindByDateForShare(ctx context.Context, tx usecase.Transaction, tenantID string, date time.Time) (*domain.FiscalPeriod, error) {
	p, err := scanPeriod(pgxTx(tx).QueryRow(ctx, `
		SELECT `+periodColumns+` FROM fiscal_periods
		WHERE tenant_id = $1 AND start_date <= $2 AND end_date >= $2
		FOR SHARE`,
		tenantID, dateToPg(date),
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPeriodNotFound
	}

	return p, err
}

// ListOverlapping returns periods sharing a day with [start, end].
func (r *PeriodRepository) ListOverlapping(ctx context.Context, tx usecase.Transaction, tenantID string, start, end time.Time) ([]*domain.FiscalPeriod, error) {
	rows, err := pgxTx(tx).Query(ctx, `
		SELECT `+periodColumns+` FROM fiscal_periods
		WHERE tenant_id = $1 AND start_date <= $3 AND end_date >= $2
		ORDER BY start_date`,
		tenantID, dateToPg(start), dateToPg(end),
	)
	if err != nil {
		return nil, err
	}

	return collectPeriods(rows)
}

// UpdateStatus changes the status. closed_at is cleared on reopen and set on
// the first close or lock.
func (r *PeriodRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, tenantID, id string, status domain.PeriodStatus, updatedAt time.Time) error {
	tag, err := pgxTx(tx).Exec(ctx, `
		UPDATE fiscal_periods SET
			status = $3,
			updated_at = $4,
			closed_at = CASE WHEN $3 = 'OPEN' THEN NULL ELSE COALESCE(closed_at, $4) END
		WHERE tenant_id = $1 AND id = $2`,
		tenantID, id, string(status), updatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPeriodNotFound
	}

	return nil
}

// List returns the tenant's periods by start date.
func (r *PeriodRepository) List(ctx context.Context, tenantID string) ([]*domain.FiscalPeriod, error) {
	rows, err := r.db.Query(ctx, `SELECT `+periodColumns+` FROM fiscal_periods WHERE tenant_id = $1 ORDER BY start_date`, tenantID)
	if err != nil {
		return nil, err
	}

	return collectPeriods(rows)
}

func collectPeriods(rows pgx.Rows) ([]*domain.FiscalPeriod, error) {
	defer rows.Close()

	periods := make([]*domain.FiscalPeriod, 0)
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}

	return periods, rows.Err()
}

func scanPeriod(row rowScanner) (*domain.FiscalPeriod, error) {
	var (
		p                    domain.FiscalPeriod
		start, end           pgtype.Date
		status               string
		closedAt             pgtype.Timestamptz
		createdAt, updatedAt time.Time
	)

	if err := row.Scan(&p.ID, &p.TenantID, &p.Name, &start, &end, &status, &closedAt, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	p.StartDate = domain.DateOnly(start.Time)
	p.EndDate = domain.DateOnly(end.Time)
	p.Status = domain.PeriodStatus(status)
	p.ClosedAt = pgToOptionalTime(closedAt)
	p.CreatedAt = createdAt.UTC()
	p.UpdatedAt = updatedAt.UTC()

	return &p, nil
}
