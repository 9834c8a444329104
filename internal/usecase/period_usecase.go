package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iho/taxledger/internal/domain"
)

// PeriodUseCase manages fiscal periods. Postings re-read the period of their
// date with a shared lock; transitions here take the exclusive lock.
type PeriodUseCase struct {
	txManager  TransactionManager
	periodRepo PeriodRepository
	recorder   recorder
	idGen      IDGenerator
	clock      Clock
}

// NewPeriodUseCase creates a new PeriodUseCase.
func NewPeriodUseCase(txManager TransactionManager, periodRepo PeriodRepository, auditRepo AuditRepository, idGen IDGenerator) *PeriodUseCase {
	return &PeriodUseCase{
		txManager:  txManager,
		periodRepo: periodRepo,
		recorder:   recorder{auditRepo: auditRepo, idGen: idGen},
		idGen:      idGen,
		clock:      SystemClock(),
	}
}

// WithClock overrides the clock.
func (uc *PeriodUseCase) WithClock(c Clock) *PeriodUseCase {
	uc.clock = c
	return uc
}

// CreatePeriodInput represents input for opening a fiscal period.
type CreatePeriodInput struct {
	TenantID  string
	ActorID   string
	Name      string
	StartDate time.Time
	// EndDate is inclusive.
	EndDate time.Time
}

// CreatePeriod opens a new period. Periods of a tenant never overlap.
func (uc *PeriodUseCase) CreatePeriod(ctx context.Context, input CreatePeriodInput) (*domain.FiscalPeriod, error) {
	if err := domain.ValidateTenantID(input.TenantID); err != nil {
		return nil, err
	}

	now := uc.clock.Now()
	period := &domain.FiscalPeriod{
		ID:        uc.idGen.Generate(),
		TenantID:  input.TenantID,
		Name:      strings.TrimSpace(input.Name),
		StartDate: domain.DateOnly(input.StartDate),
		EndDate:   domain.DateOnly(input.EndDate),
		Status:    domain.PeriodStatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if period.Name == "" {
		period.Name = period.StartDate.Format("2006-01")
	}
	if err := period.Validate(); err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	overlapping, err := uc.periodRepo.ListOverlapping(txCtx, tx, input.TenantID, period.StartDate, period.EndDate)
	if err != nil {
		return nil, err
	}
	if len(overlapping) > 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrPeriodOverlap, overlapping[0].Name)
	}

	if err := uc.periodRepo.Create(txCtx, tx, period); err != nil {
		return nil, err
	}

	if err := uc.recorder.audit(txCtx, tx, input.TenantID, input.ActorID, domain.AuditActionPeriodCreate,
		"fiscal_period", period.ID, nil, period, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	return period, nil
}

// ListPeriods lists the tenant's periods by start date.
func (uc *PeriodUseCase) ListPeriods(ctx context.Context, tenantID string) ([]*domain.FiscalPeriod, error) {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}
	return uc.periodRepo.List(ctx, tenantID)
}

// ClosePeriod stops postings dated inside the period.
func (uc *PeriodUseCase) ClosePeriod(ctx context.Context, tenantID, actorID, id string) (*domain.FiscalPeriod, error) {
	return uc.transition(ctx, tenantID, actorID, id, domain.PeriodStatusClosed, false)
}

// ReopenPeriod re-opens a closed period.
func (uc *PeriodUseCase) ReopenPeriod(ctx context.Context, tenantID, actorID, id string) (*domain.FiscalPeriod, error) {
	return uc.transition(ctx, tenantID, actorID, id, domain.PeriodStatusOpen, false)
}

// LockPeriod makes a period final.
func (uc *PeriodUseCase) LockPeriod(ctx context.Context, tenantID, actorID, id string) (*domain.FiscalPeriod, error) {
	return uc.transition(ctx, tenantID, actorID, id, domain.PeriodStatusLocked, false)
}

// UnlockPeriod moves a locked period back to CLOSED. override must be set.
func (uc *PeriodUseCase) UnlockPeriod(ctx context.Context, tenantID, actorID, id string, override bool) (*domain.FiscalPeriod, error) {
	return uc.transition(ctx, tenantID, actorID, id, domain.PeriodStatusClosed, override)
}

func (uc *PeriodUseCase) transition(ctx context.Context, tenantID, actorID, id string, target domain.PeriodStatus, override bool) (*domain.FiscalPeriod, error) {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	period, err := uc.periodRepo.GetByIDForUpdate(txCtx, tx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if err := domain.ValidatePeriodTransition(period.Status, target, override); err != nil {
		return nil, err
	}
	if period.Status == target {
		return period, nil
	}

	before := *period
	now := uc.clock.Now()

	if err := uc.periodRepo.UpdateStatus(txCtx, tx, tenantID, id, target, now); err != nil {
		return nil, err
	}
	period.Status = target
	period.UpdatedAt = now
	switch target {
	case domain.PeriodStatusOpen:
		period.ClosedAt = nil
	default:
		if period.ClosedAt == nil {
			period.ClosedAt = &now
		}
	}

	if err := uc.recorder.audit(txCtx, tx, tenantID, actorID, domain.AuditActionPeriodTransition,
		"fiscal_period", id, before, period, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	return period, nil
}
