package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/taxledger/internal/domain"
	"github.com/iho/taxledger/internal/usecase"
)

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	db DBTX
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(db DBTX) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// CheckConsistency sums every journal line of the tenant.
func (r *LedgerRepository) CheckConsistency(ctx context.Context, tenantID string) (domain.Money, domain.Money, error) {
	var debits, credits pgtype.Numeric
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(debit), 0), COALESCE(SUM(credit), 0)
		FROM journal_lines
		WHERE tenant_id = $1`,
		tenantID,
	).Scan(&debits, &credits)
	if err != nil {
		return domain.Zero(), domain.Zero(), err
	}

	totalDebits, err := numericToMoney(debits)
	if err != nil {
		return domain.Zero(), domain.Zero(), err
	}
	totalCredits, err := numericToMoney(credits)
	if err != nil {
		return domain.Zero(), domain.Zero(), err
	}

	return totalDebits, totalCredits, nil
}

// AccountTotals returns per-account debit and credit sums ordered by code.
func (r *LedgerRepository) AccountTotals(ctx context.Context, tenantID string) ([]usecase.AccountTotal, error) {
	rows, err := r.db.Query(ctx, `
		SELECT a.id, a.code, a.name, a.type, SUM(l.debit), SUM(l.credit)
		FROM journal_lines l
		JOIN accounts a ON a.id = l.account_id
		WHERE l.tenant_id = $1
		GROUP BY a.id, a.code, a.name, a.type
		ORDER BY a.code`,
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := make([]usecase.AccountTotal, 0)
	for rows.Next() {
		var (
			t             usecase.AccountTotal
			accType       string
			debit, credit pgtype.Numeric
		)
		if err := rows.Scan(&t.AccountID, &t.Code, &t.Name, &accType, &debit, &credit); err != nil {
			return nil, err
		}
		t.Type = domain.AccountType(accType)
		if t.Debits, err = numericToMoney(debit); err != nil {
			return nil, err
		}
		if t.Credits, err = numericToMoney(credit); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}

	return totals, rows.Err()
}
