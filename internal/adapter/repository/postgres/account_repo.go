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

const accountColumns = `id, tenant_id, code, name, type, parent_id, depth, is_header, is_active, created_at, updated_at`

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	db DBTX
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db DBTX) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts an account.
func (r *AccountRepository) Create(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	_, err := pgxTx(tx).Exec(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		account.ID,
		account.TenantID,
		account.Code,
		account.Name,
		string(account.Type),
		optionalText(account.ParentID),
		account.Depth,
		account.IsHeader,
		account.IsActive,
		account.CreatedAt,
		account.UpdatedAt,
	)

	return mapError(err)
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE tenant_id = $1 AND id = $2`, tenantID, id)

	return scanOneAccount(row)
}

// GetByCode retrieves an account by its code.
func (r *AccountRepository) GetByCode(ctx context.Context, tenantID, code string) (*domain.Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE tenant_id = $1 AND code = $2`, tenantID, code)

	return scanOneAccount(row)
}

// GetByIDsForShare reads accounts with FOR SHARE locks.
func (r *AccountRepository) GetByIDsForShare(ctx context.Context, tx usecase.Transaction, tenantID string, ids []string) ([]*domain.Account, error) {
	rows, err := pgxTx(tx).Query(ctx, `
		SELECT `+accountColumns+` FROM accounts
		WHERE tenant_id = $1 AND id = ANY($2)
		ORDER BY id
		FOR SHARE`,
		tenantID, ids,
	)
	if err != nil {
		return nil, err
	}

	return collectAccounts(rows)
}

// SetActive flips the active flag.
func (r *AccountRepository) SetActive(ctx context.Context, tx usecase.Transaction, tenantID, id string, active bool, updatedAt time.Time) error {
	tag, err := pgxTx(tx).Exec(ctx, `
		UPDATE accounts SET is_active = $3, updated_at = $4
		WHERE tenant_id = $1 AND id = $2`,
		tenantID, id, active, updatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &domain.AccountError{AccountID: id, Err: domain.ErrAccountNotFound}
	}

	return nil
}

// List lists accounts ordered by code.
func (r *AccountRepository) List(ctx context.Context, tenantID string, limit, offset int) ([]*domain.Account, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+accountColumns+` FROM accounts
		WHERE tenant_id = $1
		ORDER BY code
		LIMIT $2 OFFSET $3`,
		tenantID, limit, offset,
	)
	if err != nil {
		return nil, err
	}

	return collectAccounts(rows)
}

func scanOneAccount(row pgx.Row) (*domain.Account, error) {
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, err
	}

	return account, nil
}

func collectAccounts(rows pgx.Rows) ([]*domain.Account, error) {
	defer rows.Close()

	accounts := make([]*domain.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	return accounts, rows.Err()
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	var (
		a         domain.Account
		accType   string
		parentID  pgtype.Text
		createdAt time.Time
		updatedAt time.Time
	)

	if err := row.Scan(
		&a.ID, &a.TenantID, &a.Code, &a.Name, &accType, &parentID,
		&a.Depth, &a.IsHeader, &a.IsActive, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	a.Type = domain.AccountType(accType)
	a.ParentID = pgToOptionalString(parentID)
	a.CreatedAt = createdAt.UTC()
	a.UpdatedAt = updatedAt.UTC()

	return &a, nil
}
