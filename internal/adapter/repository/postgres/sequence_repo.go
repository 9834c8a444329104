package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/iho/taxledger/internal/domain"
	"github.com/iho/taxledger/internal/usecase"
)

// SequenceRepository implements usecase.SequenceRepository on the
// sequences table. Postgres SEQUENCE objects are not used because nextval
// is not rolled back with the transaction.
type SequenceRepository struct {
	db DBTX
}

// NewSequenceRepository creates a new SequenceRepository.
func NewSequenceRepository(db DBTX) *SequenceRepository {
	return &SequenceRepository{db: db}
}

// Next increments the counter. The upsert holds the row lock until tx ends,
// so concurrent callers queue behind each other and a rollback frees the
// number for the next one.
func (r *SequenceRepository) Next(ctx context.Context, tx usecase.Transaction, tenantID string, kind domain.SequenceKind) (int64, error) {
	var n int64
	err := pgxTx(tx).QueryRow(ctx, `
		INSERT INTO sequences (tenant_id, kind, last_value)
		VALUES ($1, $2, 1)
		ON CONFLICT (tenant_id, kind) DO UPDATE SET last_value = sequences.last_value + 1
		RETURNING last_value`,
		tenantID, string(kind),
	).Scan(&n)
	if err != nil {
		return 0, mapError(err)
	}

	return n, nil
}

// Current returns the last committed value.
func (r *SequenceRepository) Current(ctx context.Context, tenantID string, kind domain.SequenceKind) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `SELECT last_value FROM sequences WHERE tenant_id = $1 AND kind = $2`,
		tenantID, string(kind),
	).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}

	return n, err
}
