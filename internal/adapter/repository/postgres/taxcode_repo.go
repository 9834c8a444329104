package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/taxledger/internal/domain"
	"github.com/iho/taxledger/internal/usecase"
)

const taxCodeColumns = `id, tenant_id, code, description, rate, effective_from, effective_to,
	is_zero_rated, is_exempt, is_out_of_scope, claimable, created_at`

// TaxCodeRepository implements usecase.TaxCodeRepository.
type TaxCodeRepository struct {
	db DBTX
}

// NewTaxCodeRepository creates a new TaxCodeRepository.
func NewTaxCodeRepository(db DBTX) *TaxCodeRepository {
	return &TaxCodeRepository{db: db}
}

// Create inserts a rate row. An overlapping range of the same code is
// rejected by the exclusion constraint.
func (r *TaxCodeRepository) Create(ctx context.Context, tx usecase.Transaction, c *domain.TaxCode) error {
	_, err := pgxTx(tx).Exec(ctx, `
		INSERT INTO tax_codes (`+taxCodeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		c.ID,
		c.TenantID,
		c.Code,
		c.Description,
		decimalToNumeric(c.Rate),
		dateToPg(c.EffectiveFrom),
		optionalDateToPg(c.EffectiveTo),
		c.IsZeroRated,
		c.IsExempt,
		c.IsOutOfScope,
		c.Claimable,
		c.CreatedAt,
	)

	return mapError(err)
}

// ListByCodes returns every row of codes.
func (r *TaxCodeRepository) ListByCodes(ctx context.Context, tenantID string, codes []string) ([]domain.TaxCode, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+taxCodeColumns+` FROM tax_codes
		WHERE tenant_id = $1 AND code = ANY($2)
		ORDER BY code, effective_from`,
		tenantID, codes,
	)
	if err != nil {
		return nil, err
	}

	return collectTaxCodes(rows)
}

// ListByCodesTx returns every row of codes with FOR SHARE locks.
func (r *TaxCodeRepository) ListByCodesTx(ctx context.Context, tx usecase.Transaction, tenantID string, codes []string) ([]domain.TaxCode, error) {
	rows, err := pgxTx(tx).Query(ctx, `
		SELECT `+taxCodeColumns+` FROM tax_codes
		WHERE tenant_id = $1 AND code = ANY($2)
		ORDER BY code, effective_from
		FOR SHARE`,
		tenantID, codes,
	)
	if err != nil {
		return nil, err
	}

	return collectTaxCodes(rows)
}

// List returns all rows of the tenant.
func (r *TaxCodeRepository) List(ctx context.Context, tenantID string) ([]domain.TaxCode, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+taxCodeColumns+` FROM tax_codes
		WHERE tenant_id = $1
		ORDER BY code, effective_from`,
		tenantID,
	)
	if err != nil {
		return nil, err
	}

	return collectTaxCodes(rows)
}

func collectTaxCodes(rows pgx.Rows) ([]domain.TaxCode, error) {
	defer rows.Close()

	codes := make([]domain.TaxCode, 0)
	for rows.Next() {
		var (
			c         domain.TaxCode
			rate      pgtype.Numeric
			from      pgtype.Date
			to        pgtype.Date
			createdAt time.Time
		)
		if err := rows.Scan(
			&c.ID, &c.TenantID, &c.Code, &c.Description, &rate, &from, &to,
			&c.IsZeroRated, &c.IsExempt, &c.IsOutOfScope, &c.Claimable, &createdAt,
		); err != nil {
			return nil, err
		}
		c.Rate = numericToDecimal(rate)
		c.EffectiveFrom = domain.DateOnly(from.Time)
		c.EffectiveTo = pgToOptionalDate(to)
		c.CreatedAt = createdAt.UTC()
		codes = append(codes, c)
	}

	return codes, rows.Err()
}
