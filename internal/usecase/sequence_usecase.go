package usecase

import (
	"context"

	"github.com/iho/taxledger/internal/domain"
	"github.com/iho/taxledger/internal/infrastructure/metrics"
)

// SequenceGenerator issues gap-free numbers per (tenant, kind).
//
// Numbers are taken inside the caller's transaction: the counter row stays
// locked until that transaction ends, and a rollback returns the number.
// Callers should call Next as late as possible in their transaction.
type SequenceGenerator struct {
	txManager TransactionManager
	repo      SequenceRepository
	metrics   *metrics.Metrics
}

// NewSequenceGenerator creates a new SequenceGenerator.
func NewSequenceGenerator(txManager TransactionManager, repo SequenceRepository) *SequenceGenerator {
	return &SequenceGenerator{
		txManager: txManager,
		repo:      repo,
	}
}

// WithMetrics enables sequence metrics.
func (g *SequenceGenerator) WithMetrics(m *metrics.Metrics) *SequenceGenerator {
	g.metrics = m
	return g
}

// Next returns the next number of (tenantID, kind) within tx.
func (g *SequenceGenerator) Next(ctx context.Context, tx Transaction, tenantID string, kind domain.SequenceKind) (int64, error) {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return 0, err
	}

	n, err := g.repo.Next(ctx, tx, tenantID, kind)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, &domain.SequenceConflictError{TenantID: tenantID, Kind: kind, Number: n}
	}

	if g.metrics != nil {
		g.metrics.SequenceNumbersIssued.WithLabelValues(string(kind)).Inc()
	}

	return n, nil
}

// Issue takes a number in its own transaction and commits it.
func (g *SequenceGenerator) Issue(ctx context.Context, tenantID string, kind domain.SequenceKind) (int64, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := g.txManager.Begin(txCtx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	n, err := g.Next(txCtx, tx, tenantID, kind)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return 0, err
	}

	return n, nil
}

// Current returns the last committed number of (tenantID, kind).
func (g *SequenceGenerator) Current(ctx context.Context, tenantID string, kind domain.SequenceKind) (int64, error) {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return 0, err
	}
	return g.repo.Current(ctx, tenantID, kind)
}
