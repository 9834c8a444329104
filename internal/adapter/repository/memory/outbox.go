package memory

import (
	"context"
	"sort"
	"time"

	"github.com/iho/taxledger/internal/domain"
	"github.com/iho/taxledger/internal/usecase"
)

// OutboxRepository implements usecase.OutboxRepository.
type OutboxRepository struct{ s *Store }

// Outbox returns the store's outbox repository.
func (s *Store) Outbox() *OutboxRepository { return &OutboxRepository{s: s} }

func (r *OutboxRepository) Create(_ context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	st, err := r.s.working(tx)
	if err != nil {
		return err
	}
	c := *event
	st.outbox = append(st.outbox, &c)
	return nil
}

func (r *OutboxRepository) GetUnpublished(_ context.Context, limit int) ([]*domain.OutboxEvent, error) {
	var out []*domain.OutboxEvent
	r.s.read(func(st *state) {
		for _, e := range st.outbox {
			if e.Published {
				continue
			}
			c := *e
			out = append(out, &c)
			if limit > 0 && len(out) == limit {
				return
			}
		}
	})
	return out, nil
}

func (r *OutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	return r.s.write(ctx, func(st *state) error {
		for i, e := range st.outbox {
			if e.ID == id {
				c := *e
				c.Published = true
				c.PublishedAt = &publishedAt
				st.outbox[i] = &c
				return nil
			}
		}
		return nil
	})
}

func (r *OutboxRepository) GetByAggregate(_ context.Context, tenantID, aggregateType, aggregateID string) ([]*domain.OutboxEvent, error) {
	var out []*domain.OutboxEvent
	r.s.read(func(st *state) {
		for _, e := range st.outbox {
			if e.TenantID == tenantID && e.AggregateType == aggregateType && e.AggregateID == aggregateID {
				c := *e
				out = append(out, &c)
			}
		}
	})
	return out, nil
}

func (r *OutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	return r.s.write(ctx, func(st *state) error {
		kept := st.outbox[:0:0]
		for _, e := range st.outbox {
			if e.Published && e.PublishedAt != nil && e.PublishedAt.Before(before) {
				continue
			}
			kept = append(kept, e)
		}
		st.outbox = kept
		return nil
	})
}

// AuditRepository implements usecase.AuditRepository.
type AuditRepository struct{ s *Store }

// Audit returns the store's audit log repository.
func (s *Store) Audit() *AuditRepository { return &AuditRepository{s: s} }

func (r *AuditRepository) CreateTx(_ context.Context, tx usecase.Transaction, log *domain.AuditLog) error {
	st, err := r.s.working(tx)
	if err != nil {
		return err
	}
	c := *log
	st.audit = append(st.audit, &c)
	return nil
}

func (r *AuditRepository) List(_ context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error) {
	var out []*domain.AuditLog
	r.s.read(func(st *state) {
		for _, l := range st.audit {
			if !matchesAudit(l, filter) {
				continue
			}
			c := *l
			out = append(out, &c)
		}
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, filter.Limit, filter.Offset), nil
}

func matchesAudit(l *domain.AuditLog, f domain.AuditFilter) bool {
	switch {
	case f.TenantID != "" && l.TenantID != f.TenantID:
		return false
	case f.ActorID != "" && l.ActorID != f.ActorID:
		return false
	case f.Action != "" && l.Action != f.Action:
		return false
	case f.ResourceType != "" && l.ResourceType != f.ResourceType:
		return false
	case f.ResourceID != "" && l.ResourceID != f.ResourceID:
		return false
	case f.StartDate != nil && l.CreatedAt.Before(*f.StartDate):
		return false
	case f.EndDate != nil && l.CreatedAt.After(*f.EndDate):
		return false
	}
	return true
}
