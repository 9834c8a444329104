package usecase

import (
	"context"
	"time"

	"github.com/iho/taxledger/internal/domain"
)

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock returns a Clock backed by time.Now in UTC.
func SystemClock() Clock { return systemClock{} }

type directRetrier struct{}

func (directRetrier) Retry(_ context.Context, operation func() error) error { return operation() }

func actorOrSystem(actorID string) string {
	if actorID == "" {
		return domain.SystemActor
	}
	return actorID
}

// recorder writes outbox events and audit logs inside a transaction.
type recorder struct {
	outboxRepo OutboxRepository
	auditRepo  AuditRepository
	idGen      IDGenerator
}

func (r recorder) event(ctx context.Context, tx Transaction, tenantID, aggregateType, aggregateID, eventType string, payload any, at time.Time) error {
	if r.outboxRepo == nil {
		return nil
	}
	return r.outboxRepo.Create(ctx, tx, &domain.OutboxEvent{
		ID:            r.idGen.Generate(),
		TenantID:      tenantID,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Payload:       domain.Payload(payload),
		CreatedAt:     at,
	})
}

func (r recorder) audit(ctx context.Context, tx Transaction, tenantID, actorID string, action domain.AuditAction, resourceType, resourceID string, before, after any, at time.Time) error {
	if r.auditRepo == nil {
		return nil
	}
	return r.auditRepo.CreateTx(ctx, tx, &domain.AuditLog{
		ID:           r.idGen.Generate(),
		TenantID:     tenantID,
		ActorID:      actorOrSystem(actorID),
		Action:       string(action),
		ResourceType: resourceType,
		ResourceID:   resourceID,
		BeforeState:  domain.MarshalState(before),
		AfterState:   domain.MarshalState(after),
		Status:       string(domain.AuditStatusSuccess),
		CreatedAt:    at,
	})
}
