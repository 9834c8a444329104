package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/iho/taxledger/internal/domain"
	"github.com/iho/taxledger/internal/usecase"
)

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct{ s *Store }

// Accounts returns the store's account repository.
func (s *Store) Accounts() *AccountRepository { return &AccountRepository{s: s} }

func (r *AccountRepository) Create(_ context.Context, tx usecase.Transaction, account *domain.Account) error {
	st, err := r.s.working(tx)
	if err != nil {
		return err
	}
	for k, a := range st.accounts {
		if k.tenantID == account.TenantID && strings.EqualFold(a.Code, account.Code) {
			return domain.ErrAccountExists
		}
	}
	st.accounts[key{account.TenantID, account.ID}] = cloneAccount(account)
	return nil
}

func (r *AccountRepository) GetByID(_ context.Context, tenantID, id string) (*domain.Account, error) {
	var out *domain.Account
	r.s.read(func(st *state) {
		if a, ok := st.accounts[key{tenantID, id}]; ok {
			out = cloneAccount(a)
		}
	})
	if out == nil {
		return nil, domain.ErrAccountNotFound
	}
	return out, nil
}

func (r *AccountRepository) GetByCode(_ context.Context, tenantID, code string) (*domain.Account, error) {
	var out *domain.Account
	r.s.read(func(st *state) {
		for k, a := range st.accounts {
			if k.tenantID == tenantID && strings.EqualFold(a.Code, code) {
				out = cloneAccount(a)
				return
			}
		}
	})
	if out == nil {
		return nil, domain.ErrAccountNotFound
	}
	return out, nil
}

func (r *AccountRepository) GetByIDsForShare(_ context.Context, tx usecase.Transaction, tenantID string, ids []string) ([]*domain.Account, error) {
	st, err := r.s.working(tx)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Account, 0, len(ids))
	for _, id := range ids {
		if a, ok := st.accounts[key{tenantID, id}]; ok {
			out = append(out, cloneAccount(a))
		}
	}
	return out, nil
}

func (r *AccountRepository) SetActive(_ context.Context, tx usecase.Transaction, tenantID, id string, active bool, updatedAt time.Time) error {
	st, err := r.s.working(tx)
	if err != nil {
		return err
	}
	a, ok := st.accounts[key{tenantID, id}]
	if !ok {
		return &domain.AccountError{AccountID: id, Err: domain.ErrAccountNotFound}
	}
	a.IsActive = active
	a.UpdatedAt = updatedAt
	return nil
}

func (r *AccountRepository) List(_ context.Context, tenantID string, limit, offset int) ([]*domain.Account, error) {
	var all []*domain.Account
	r.s.read(func(st *state) {
		for k, a := range st.accounts {
			if k.tenantID == tenantID {
				all = append(all, cloneAccount(a))
			}
		}
	})
	sort.Slice(all, func(i, j int) bool { return all[i].Code < all[j].Code })
	return page(all, limit, offset), nil
}

// PostingProfileRepository implements usecase.PostingProfileRepository.
type PostingProfileRepository struct{ s *Store }

// PostingProfiles returns the store's posting profile repository.
func (s *Store) PostingProfiles() *PostingProfileRepository {
	return &PostingProfileRepository{s: s}
}

func (r *PostingProfileRepository) Get(_ context.Context, tenantID string) (*domain.PostingProfile, error) {
	var out *domain.PostingProfile
	r.s.read(func(st *state) {
		if p, ok := st.profiles[tenantID]; ok {
			c := *p
			out = &c
		}
	})
	if out == nil {
		return nil, domain.ErrPostingProfileNotSet
	}
	return out, nil
}

func (r *PostingProfileRepository) GetTx(_ context.Context, tx usecase.Transaction, tenantID string) (*domain.PostingProfile, error) {
	st, err := r.s.working(tx)
	if err != nil {
		return nil, err
	}
	p, ok := st.profiles[tenantID]
	if !ok {
		return nil, domain.ErrPostingProfileNotSet
	}
	c := *p
	return &c, nil
}

func (r *PostingProfileRepository) Upsert(_ context.Context, tx usecase.Transaction, profile *domain.PostingProfile) error {
	st, err := r.s.working(tx)
	if err != nil {
		return err
	}
	c := *profile
	st.profiles[profile.TenantID] = &c
	return nil
}

// TaxCodeRepository implements usecase.TaxCodeRepository.
type TaxCodeRepository struct{ s *Store }

// TaxCodes returns the store's tax code repository.
func (s *Store) TaxCodes() *TaxCodeRepository { return &TaxCodeRepository{s: s} }

func (r *TaxCodeRepository) Create(_ context.Context, tx usecase.Transaction, code *domain.TaxCode) error {
	st, err := r.s.working(tx)
	if err != nil {
		return err
	}
	c := *code
	st.taxCodes[key{code.TenantID, code.ID}] = &c
	return nil
}

func (r *TaxCodeRepository) ListByCodes(_ context.Context, tenantID string, codes []string) ([]domain.TaxCode, error) {
	var out []domain.TaxCode
	r.s.read(func(st *state) { out = taxCodesOf(st, tenantID, codes, false) })
	return out, nil
}

func (r *TaxCodeRepository) ListByCodesTx(_ context.Context, tx usecase.Transaction, tenantID string, codes []string) ([]domain.TaxCode, error) {
	st, err := r.s.working(tx)
	if err != nil {
		return nil, err
	}
	return taxCodesOf(st, tenantID, codes, false), nil
}

func (r *TaxCodeRepository) List(_ context.Context, tenantID string) ([]domain.TaxCode, error) {
	var out []domain.TaxCode
	r.s.read(func(st *state) { out = taxCodesOf(st, tenantID, nil, true) })
	return out, nil
}

// taxCodesOf returns the tenant's rows of codes, or every row when all is set.
func taxCodesOf(st *state, tenantID string, codes []string, all bool) []domain.TaxCode {
	want := make(map[string]bool, len(codes))
	for _, c := range codes {
		want[c] = true
	}
	var out []domain.TaxCode
	for k, tc := range st.taxCodes {
		if k.tenantID != tenantID {
			continue
		}
		if !all && !want[tc.Code] {
			continue
		}
		out = append(out, *tc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Code != out[j].Code {
			return out[i].Code < out[j].Code
		}
		return out[i].EffectiveFrom.Before(out[j].EffectiveFrom)
	})
	return out
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
