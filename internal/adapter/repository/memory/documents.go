package memory

import (
	"context"
	"sort"
	"time"

	"github.com/iho/taxledger/internal/domain"
	"github.com/iho/taxledger/internal/usecase"
)

// DocumentRepository implements usecase.DocumentRepository.
type DocumentRepository struct{ s *Store }

// Documents returns the store's document repository.
func (s *Store) Documents() *DocumentRepository { return &DocumentRepository{s: s} }

func (r *DocumentRepository) Create(_ context.Context, tx usecase.Transaction, doc *domain.Document) error {
	st, err := r.s.working(tx)
	if err != nil {
		return err
	}
	st.documents[key{doc.TenantID, doc.ID}] = doc.Clone()
	return nil
}

func (r *DocumentRepository) GetByID(_ context.Context, tenantID, id string) (*domain.Document, error) {
	var out *domain.Document
	r.s.read(func(st *state) {
		if d, ok := st.documents[key{tenantID, id}]; ok {
			out = d.Clone()
		}
	})
	if out == nil {
		return nil, domain.ErrDocumentNotFound
	}
	return out, nil
}

func (r *DocumentRepository) GetByIDForUpdate(_ context.Context, tx usecase.Transaction, tenantID, id string) (*domain.Document, error) {
	st, err := r.s.working(tx)
	if err != nil {
		return nil, err
	}
	d, ok := st.documents[key{tenantID, id}]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return d.Clone(), nil
}

func (r *DocumentRepository) Update(_ context.Context, tx usecase.Transaction, doc *domain.Document) error {
	st, err := r.s.working(tx)
	if err != nil {
		return err
	}
	k := key{doc.TenantID, doc.ID}
	if _, ok := st.documents[k]; !ok {
		return domain.ErrDocumentNotFound
	}
	st.documents[k] = doc.Clone()
	return nil
}

func (r *DocumentRepository) Delete(_ context.Context, tx usecase.Transaction, tenantID, id string) error {
	st, err := r.s.working(tx)
	if err != nil {
		return err
	}
	k := key{tenantID, id}
	if _, ok := st.documents[k]; !ok {
		return domain.ErrDocumentNotFound
	}
	delete(st.documents, k)
	return nil
}

func (r *DocumentRepository) List(_ context.Context, tenantID string, filter usecase.DocumentFilter) ([]*domain.Document, error) {
	var all []*domain.Document
	r.s.read(func(st *state) {
		for k, d := range st.documents {
			if k.tenantID != tenantID {
				continue
			}
			if filter.Status != "" && d.Status != filter.Status {
				continue
			}
			if filter.Kind != "" && d.Kind != filter.Kind {
				continue
			}
			if filter.Direction != "" && d.Direction != filter.Direction {
				continue
			}
			all = append(all, d.Clone())
		}
	})
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})
	return page(all, filter.Limit, filter.Offset), nil
}

// PeriodRepository implements usecase.PeriodRepository.
type PeriodRepository struct{ s *Store }

// Periods returns the store's fiscal period repository.
func (s *Store) Periods() *PeriodRepository { return &PeriodRepository{s: s} }

func (r *PeriodRepository) Create(_ context.Context, tx usecase.Transaction, period *domain.FiscalPeriod) error {
	st, err := r.s.working(tx)
	if err != nil {
		return err
	}
	for k, p := range st.periods {
		if k.tenantID == period.TenantID && p.Overlaps(period) {
			return domain.ErrPeriodOverlap
		}
	}
	st.periods[key{period.TenantID, period.ID}] = clonePeriod(period)
	return nil
}

func (r *PeriodRepository) GetByIDForUpdate(_ context.Context, tx usecase.Transaction, tenantID, id string) (*domain.FiscalPeriod, error) {
	st, err := r.s.working(tx)
	if err != nil {
		return nil, err
	}
	p, ok := st.periods[key{tenantID, id}]
	if !ok {
		return nil, domain.ErrPeriodNotFound
	}
	return clonePeriod(p), nil
}

func (r *PeriodRepository) FindByDateForShare(_ context.Context, tx usecase.Transaction, tenantID string, date time.Time) (*domain.FiscalPeriod, error) {
	st, err := r.s.working(tx)
	if err != nil {
		return nil, err
	}
	for k, p := range st.periods {
		if k.tenantID == tenantID && p.Contains(date) {
			return clonePeriod(p), nil
		}
	}
	return nil, domain.ErrPeriodNotFound
}

func (r *PeriodRepository) ListOverlapping(_ context.Context, tx usecase.Transaction, tenantID string, start, end time.Time) ([]*domain.FiscalPeriod, error) {
	st, err := r.s.working(tx)
	if err != nil {
		return nil, err
	}
	probe := &domain.FiscalPeriod{StartDate: start, EndDate: end}
	var out []*domain.FiscalPeriod
	for k, p := range st.periods {
		if k.tenantID == tenantID && p.Overlaps(probe) {
			out = append(out, clonePeriod(p))
		}
	}
	sortPeriods(out)
	return out, nil
}

func (r *PeriodRepository) UpdateStatus(_ context.Context, tx usecase.Transaction, tenantID, id string, status domain.PeriodStatus, updatedAt time.Time) error {
	st, err := r.s.working(tx)
	if err != nil {
		return err
	}
	p, ok := st.periods[key{tenantID, id}]
	if !ok {
		return domain.ErrPeriodNotFound
	}
	p.Status = status
	p.UpdatedAt = updatedAt
	switch {
	case status == domain.PeriodStatusOpen:
		p.ClosedAt = nil
	case p.ClosedAt == nil:
		at := updatedAt
		p.ClosedAt = &at
	}
	return nil
}

func (r *PeriodRepository) List(_ context.Context, tenantID string) ([]*domain.FiscalPeriod, error) {
	var out []*domain.FiscalPeriod
	r.s.read(func(st *state) {
		for k, p := range st.periods {
			if k.tenantID == tenantID {
				out = append(out, clonePeriod(p))
			}
		}
	})
	sortPeriods(out)
	return out, nil
}

func sortPeriods(ps []*domain.FiscalPeriod) {
	sort.Slice(ps, func(i, j int) bool { return ps[i].StartDate.Before(ps[j].StartDate) })
}
