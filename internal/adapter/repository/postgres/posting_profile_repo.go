package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/iho/taxledger/internal/domain"
	"github.com/iho/taxledger/internal/usecase"
)

const selectPostingProfile = `
	SELECT tenant_id, receivable_account_id, payable_account_id, output_tax_account_id,
	       input_tax_account_id, exempt_sales_account_id, exempt_purchase_account_id, updated_at
	FROM posting_profiles
	WHERE tenant_id = $1`

// PostingProfileRepository implements usecase.PostingProfileRepository.
type PostingProfileRepository struct {
	db DBTX
}

// NewPostingProfileRepository creates a new PostingProfileRepository.
func NewPostingProfileRepository(db DBTX) *PostingProfileRepository {
	return &PostingProfileRepository{db: db}
}

// Get returns the tenant's profile.
func (r *PostingProfileRepository) Get(ctx context.Context, tenantID string) (*domain.PostingProfile, error) {
	return scanPostingProfile(r.db.QueryRow(ctx, selectPostingProfile, tenantID))
}

// GetTx returns the tenant's profile inside tx.
func (r *PostingProfileRepository) GetTx(ctx context.Context, tx usecase.Transaction, tenantID string) (*domain.PostingProfile, error) {
	return scanPostingProfile(pgxTx(tx).QueryRow(ctx, selectPostingProfile+` FOR SHARE`, tenantID))
}

// Upsert replaces the tenant's profile.
func (r *PostingProfileRepository) Upsert(ctx context.Context, tx usecase.Transaction, p *domain.PostingProfile) error {
	_, err := pgxTx(tx).Exec(ctx, `
		INSERT INTO posting_profiles (
			tenant_id, receivable_account_id, payable_account_id, output_tax_account_id,
			input_tax_account_id, exempt_sales_account_id, exempt_purchase_account_id, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (tenant_id) DO UPDATE SET
			receivable_account_id      = EXCLUDED.receivable_account_id,
			payable_account_id         = EXCLUDED.payable_account_id,
			output_tax_account_id      = EXCLUDED.output_tax_account_id,
			input_tax_account_id       = EXCLUDED.input_tax_account_id,
			exempt_sales_account_id    = EXCLUDED.exempt_sales_account_id,
			exempt_purchase_account_id = EXCLUDED.exempt_purchase_account_id,
			updated_at                 = EXCLUDED.updated_at`,
		p.TenantID,
		p.ReceivableAccountID,
		p.PayableAccountID,
		p.OutputTaxAccountID,
		p.InputTaxAccountID,
		p.ExemptSalesAccountID,
		p.ExemptPurchaseAccountID,
		p.UpdatedAt,
	)

	return err
}

func scanPostingProfile(row pgx.Row) (*domain.PostingProfile, error) {
	var (
		p         domain.PostingProfile
		updatedAt time.Time
	)

	err := row.Scan(
		&p.TenantID,
		&p.ReceivableAccountID,
		&p.PayableAccountID,
		&p.OutputTaxAccountID,
		&p.InputTaxAccountID,
		&p.ExemptSalesAccountID,
		&p.ExemptPurchaseAccountID,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPostingProfileNotSet
		}
		return nil, err
	}
	p.UpdatedAt = updatedAt.UTC()

	return &p, nil
}
