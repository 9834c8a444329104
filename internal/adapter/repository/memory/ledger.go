package memory

import (
	"context"
	"sort"
	"time"

	"github.com/iho/taxledger/internal/domain"
	"github.com/iho/taxledger/internal/usecase"
)

// SequenceRepository implements usecase.SequenceRepository.
type SequenceRepository struct{ s *Store }

// Sequences returns the store's sequence repository.
func (s *Store) Sequences() *SequenceRepository { return &SequenceRepository{s: s} }

func (r *SequenceRepository) Next(_ context.Context, tx usecase.Transaction, tenantID string, kind domain.SequenceKind) (int64, error) {
	st, err := r.s.working(tx)
	if err != nil {
		return 0, err
	}
	k := seqKey{tenantID, kind}
	st.sequences[k]++
	return st.sequences[k], nil
}

func (r *SequenceRepository) Current(_ context.Context, tenantID string, kind domain.SequenceKind) (int64, error) {
	var n int64
	r.s.read(func(st *state) { n = st.sequences[seqKey{tenantID, kind}] })
	return n, nil
}

// JournalRepository implements usecase.JournalRepository.
type JournalRepository struct{ s *Store }

// Journal returns the store's journal repository.
func (s *Store) Journal() *JournalRepository { return &JournalRepository{s: s} }

func (r *JournalRepository) Create(_ context.Context, tx usecase.Transaction, entry *domain.JournalEntry) error {
	st, err := r.s.working(tx)
	if err != nil {
		return err
	}
	st.entries[key{entry.TenantID, entry.ID}] = entry.Clone()
	return nil
}

func (r *JournalRepository) GetByID(_ context.Context, tenantID, id string) (*domain.JournalEntry, error) {
	var out *domain.JournalEntry
	r.s.read(func(st *state) {
		if e, ok := st.entries[key{tenantID, id}]; ok {
			out = e.Clone()
		}
	})
	if out == nil {
		return nil, domain.ErrEntryNotFound
	}
	return out, nil
}

func (r *JournalRepository) GetByIDForUpdate(_ context.Context, tx usecase.Transaction, tenantID, id string) (*domain.JournalEntry, error) {
	st, err := r.s.working(tx)
	if err != nil {
		return nil, err
	}
	e, ok := st.entries[key{tenantID, id}]
	if !ok {
		return nil, domain.ErrEntryNotFound
	}
	return e.Clone(), nil
}

func (r *JournalRepository) MarkReversed(_ context.Context, tx usecase.Transaction, tenantID, id, reversedBy string, reversedAt time.Time) error {
	st, err := r.s.working(tx)
	if err != nil {
		return err
	}
	e, ok := st.entries[key{tenantID, id}]
	if !ok {
		return domain.ErrEntryNotFound
	}
	if e.IsReversed {
		by := ""
		if e.ReversedByEntryID != nil {
			by = *e.ReversedByEntryID
		}
		return &domain.AlreadyReversedError{EntryID: id, ReversedBy: by}
	}
	e.IsReversed = true
	e.ReversedByEntryID = &reversedBy
	e.ReversedAt = &reversedAt
	return nil
}

func (r *JournalRepository) ListBySource(_ context.Context, tenantID string, source domain.SourceRef) ([]*domain.JournalEntry, error) {
	var out []*domain.JournalEntry
	r.s.read(func(st *state) {
		for k, e := range st.entries {
			if k.tenantID == tenantID && e.Source != nil && *e.Source == source {
				out = append(out, e.Clone())
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].EntryNumber < out[j].EntryNumber })
	return out, nil
}

func (r *JournalRepository) List(_ context.Context, tenantID string, limit, offset int) ([]*domain.JournalEntry, error) {
	var all []*domain.JournalEntry
	r.s.read(func(st *state) {
		for k, e := range st.entries {
			if k.tenantID == tenantID {
				all = append(all, e.Clone())
			}
		}
	})
	sort.Slice(all, func(i, j int) bool { return all[i].EntryNumber > all[j].EntryNumber })
	return page(all, limit, offset), nil
}

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct{ s *Store }

// Ledger returns the store's ledger repository.
func (s *Store) Ledger() *LedgerRepository { return &LedgerRepository{s: s} }

func (r *LedgerRepository) CheckConsistency(_ context.Context, tenantID string) (domain.Money, domain.Money, error) {
	debits, credits := domain.Zero(), domain.Zero()
	r.s.read(func(st *state) {
		for k, e := range st.entries {
			if k.tenantID != tenantID {
				continue
			}
			d, c := e.Totals()
			debits = debits.Add(d)
			credits = credits.Add(c)
		}
	})
	return debits, credits, nil
}

func (r *LedgerRepository) AccountTotals(_ context.Context, tenantID string) ([]usecase.AccountTotal, error) {
	byAccount := make(map[string]*usecase.AccountTotal)
	r.s.read(func(st *state) {
		for k, e := range st.entries {
			if k.tenantID != tenantID {
				continue
			}
			for _, l := range e.Lines {
				t, ok := byAccount[l.AccountID]
				if !ok {
					t = &usecase.AccountTotal{AccountID: l.AccountID}
					if a, found := st.accounts[key{tenantID, l.AccountID}]; found {
						t.Code, t.Name, t.Type = a.Code, a.Name, a.Type
					}
					byAccount[l.AccountID] = t
				}
				t.Debits = t.Debits.Add(l.Debit)
				t.Credits = t.Credits.Add(l.Credit)
			}
		}
	})

	out := make([]usecase.AccountTotal, 0, len(byAccount))
	for _, t := range byAccount {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}
